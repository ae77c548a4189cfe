package gamma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const marketFixture = `[{
	"id": "123",
	"question": "Will it settle?",
	"slug": "will-it-settle",
	"conditionId": "0xabc123",
	"clobTokenIds": "[\"111\",\"222\"]",
	"outcomes": "[\"Yes\",\"No\"]",
	"outcomePrices": "[\"0.55\",\"0.45\"]",
	"volume24hr": "1234.5",
	"liquidity": 9000,
	"active": true,
	"closed": false,
	"endDate": "2026-01-01T00:00:00Z"
}]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestMarketsByConditionID_ParsesStringifiedLists(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketFixture))
	})

	markets, err := c.MarketsByConditionID(context.Background(), "0xabc123")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if gotQuery != "condition_ids=0xabc123" {
		t.Fatalf("query: got %q", gotQuery)
	}
	if len(markets) != 1 {
		t.Fatalf("markets: got %d want 1", len(markets))
	}

	m := markets[0]
	if m.ConditionID != "0xabc123" || m.Question != "Will it settle?" {
		t.Fatalf("market fields: %+v", m)
	}
	if len(m.TokenIDs) != 2 || m.TokenIDs[0] != "111" || m.TokenIDs[1] != "222" {
		t.Fatalf("token ids: %v", m.TokenIDs)
	}
	if len(m.Outcomes) != 2 || m.Outcomes[0] != "Yes" {
		t.Fatalf("outcomes: %v", m.Outcomes)
	}
	if m.OutcomePrice(0) != 0.55 || m.OutcomePrice(1) != 0.45 {
		t.Fatalf("outcome prices: %v", m.OutcomePrices)
	}
	if m.OutcomePrice(5) != 0 {
		t.Fatalf("out-of-range price must be 0")
	}
	if m.Volume24h != 1234.5 || m.Liquidity != 9000 {
		t.Fatalf("numeric fields: volume=%v liquidity=%v", m.Volume24h, m.Liquidity)
	}
}

func TestMarketBySlug(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") != "will-it-settle" {
			w.Write([]byte("[]"))
			return
		}
		w.Write([]byte(marketFixture))
	})

	m, err := c.MarketBySlug(context.Background(), "will-it-settle")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if m.Slug != "will-it-settle" {
		t.Fatalf("slug: got %q", m.Slug)
	}

	if _, err := c.MarketBySlug(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown slug")
	}
}

func TestListMarkets_EmptyResultIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})

	markets, err := c.ListMarkets(context.Background(), 5, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(markets) != 0 {
		t.Fatalf("markets: got %d want 0", len(markets))
	}
}

func TestListMarkets_Non200IsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	if _, err := c.ListMarkets(context.Background(), 5, false); err == nil {
		t.Fatalf("expected error for 403")
	}
}

func TestStringList_AcceptsPlainArrays(t *testing.T) {
	var s stringList
	if err := json.Unmarshal([]byte(`["a","b"]`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s) != 2 || s[0] != "a" {
		t.Fatalf("got %v", s)
	}

	if err := json.Unmarshal([]byte(`null`), &s); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if s != nil {
		t.Fatalf("null must reset the list, got %v", s)
	}
}
