package trading

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yskaaks/polymarket-bot/internal/clob"
)

func readOnlyService(t *testing.T, dryRun bool) *Service {
	t.Helper()
	client, err := clob.NewClient("https://clob.example.test", 137, nil, common.Address{}, 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewService(client, dryRun)
}

func TestService_DryRunSynthesizesOrder(t *testing.T) {
	s := readOnlyService(t, true)

	placed, err := s.PlaceLimitOrder(context.Background(), "tok", clob.SideBuy, "0.96", "10.4")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !placed.Success || !placed.DryRun {
		t.Fatalf("placed: %+v", placed)
	}
	if placed.OrderID != DryRunOrderID {
		t.Fatalf("order id: got %q want %q", placed.OrderID, DryRunOrderID)
	}
	if placed.Price != "0.96" {
		t.Fatalf("price: got %q", placed.Price)
	}
}

func TestService_LiveWithoutCredentialsFails(t *testing.T) {
	s := readOnlyService(t, false)

	if s.Authenticated() {
		t.Fatalf("read-only client must not be authenticated")
	}
	if _, err := s.PlaceLimitOrder(context.Background(), "tok", clob.SideBuy, "0.96", "10.4"); err == nil {
		t.Fatalf("expected error without signing key and creds")
	}
}

func TestService_DryRunCancelAndOpenOrders(t *testing.T) {
	s := readOnlyService(t, true)

	placed, err := s.CancelOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !placed.Success || !placed.DryRun {
		t.Fatalf("cancel result: %+v", placed)
	}

	orders, err := s.OpenOrders(context.Background(), "", "")
	if err != nil {
		t.Fatalf("open orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("dry run open orders: got %d want 0", len(orders))
	}
}

func TestService_DryRunToggle(t *testing.T) {
	s := readOnlyService(t, false)
	if s.DryRun() {
		t.Fatalf("expected live mode")
	}
	s.SetDryRun(true)
	if !s.DryRun() {
		t.Fatalf("expected dry-run after toggle")
	}
}

func TestPlacedFromResponse(t *testing.T) {
	resp := map[string]any{
		"success":  true,
		"orderID":  "0xdeadbeef",
		"status":   "live",
		"errorMsg": "",
	}
	placed := placedFromResponse(resp, "0.96")
	if !placed.Success || placed.OrderID != "0xdeadbeef" || placed.Status != "live" {
		t.Fatalf("placed: %+v", placed)
	}
	if placed.Price != "0.96" {
		t.Fatalf("price: got %q", placed.Price)
	}
}
