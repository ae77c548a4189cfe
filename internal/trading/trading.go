// Package trading wraps the CLOB client with a safety latch: in dry-run mode
// orders are synthesized locally and nothing is signed or sent.
package trading

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yskaaks/polymarket-bot/internal/clob"
)

// DryRunOrderID marks orders that were never sent to the exchange.
const DryRunOrderID = "DRY_RUN_ORDER"

// PlacedOrder is the outcome of a placement attempt.
type PlacedOrder struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"order_id,omitempty"`
	Status   string `json:"status,omitempty"`
	ErrorMsg string `json:"error_msg,omitempty"`
	Price    string `json:"price,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// Service places, cancels and lists limit orders.
type Service struct {
	client *clob.Client
	dryRun atomic.Bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(client *clob.Client, dryRun bool) *Service {
	s := &Service{
		client: client,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().UnixNano()>>1))),
	}
	s.dryRun.Store(dryRun)
	return s
}

func (s *Service) SetDryRun(v bool) { s.dryRun.Store(v) }
func (s *Service) DryRun() bool     { return s.dryRun.Load() }

// Authenticated reports whether live placement is possible at all: a signing
// key plus L2 API creds.
func (s *Service) Authenticated() bool {
	return s.client.CanSign() && s.client.HasApiCreds()
}

func (s *Service) salt() int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return int64(s.rng.Uint64() & 0x7fffffffffffffff)
}

// PlaceLimitOrder places a GTC limit order. In dry-run mode it returns a
// synthetic fill-less result without touching the network.
func (s *Service) PlaceLimitOrder(ctx context.Context, tokenID string, side clob.Side, price, size string) (*PlacedOrder, error) {
	if s.DryRun() {
		return &PlacedOrder{
			Success: true,
			OrderID: DryRunOrderID,
			Status:  "dry_run",
			Price:   price,
			DryRun:  true,
		}, nil
	}
	if !s.Authenticated() {
		return nil, fmt.Errorf("live trading requires signing key and api creds")
	}

	res, err := s.client.CreateSignedLimitOrder(ctx, tokenID, side, price, size, s.salt)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	resp, err := s.client.PostSignedOrder(ctx, res.SignedOrder, clob.OrderTypeGTC, true)
	if err != nil {
		return nil, fmt.Errorf("post order: %w", err)
	}
	return placedFromResponse(resp, res.Price), nil
}

func placedFromResponse(resp map[string]any, price string) *PlacedOrder {
	out := &PlacedOrder{Price: price}
	if v, ok := resp["success"].(bool); ok {
		out.Success = v
	}
	if v, ok := resp["orderID"].(string); ok {
		out.OrderID = v
	}
	if v, ok := resp["status"].(string); ok {
		out.Status = v
	}
	if v, ok := resp["errorMsg"].(string); ok {
		out.ErrorMsg = v
	}
	return out
}

// CancelOrder cancels one resting order. No-op success in dry-run mode.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*PlacedOrder, error) {
	if s.DryRun() {
		return &PlacedOrder{Success: true, OrderID: orderID, Status: "dry_run", DryRun: true}, nil
	}
	resp, err := s.client.CancelOrder(ctx, orderID, true)
	if err != nil {
		return nil, err
	}
	return placedFromResponse(resp, ""), nil
}

// OpenOrders lists resting orders, optionally filtered by market or token.
func (s *Service) OpenOrders(ctx context.Context, market, assetID string) ([]clob.OrderInfo, error) {
	if s.DryRun() {
		return nil, nil
	}
	return s.client.OpenOrders(ctx, clob.OpenOrderParams{Market: market, AssetID: assetID}, true)
}
