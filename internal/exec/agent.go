// Package exec sizes, prices and places orders for validated signals, and
// records every attempt to the trade log.
package exec

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yskaaks/polymarket-bot/internal/clob"
	"github.com/yskaaks/polymarket-bot/internal/jsonl"
	"github.com/yskaaks/polymarket-bot/internal/signal"
	"github.com/yskaaks/polymarket-bot/internal/trading"
)

// Prices land on a 0.01 tick inside [0.01, 0.99]; sizes floor to 0.1 share.
var (
	sizeStep = decimal.RequireFromString("0.1")
	minPrice = decimal.RequireFromString("0.01")
	maxPrice = decimal.RequireFromString("0.99")
)

// Trader places orders. Satisfied by *trading.Service; its simulate-only
// mode is what makes a dispatched order come back as a dry run.
type Trader interface {
	PlaceLimitOrder(ctx context.Context, tokenID string, side clob.Side, price, size string) (*trading.PlacedOrder, error)
	Authenticated() bool
}

// TradeRecord is one line in the trade log. Every execution attempt produces
// exactly one record, whatever its outcome.
type TradeRecord struct {
	Timestamp   string  `json:"ts"`
	ConditionID string  `json:"condition_id"`
	MarketID    string  `json:"market_id,omitempty"`
	Question    string  `json:"question,omitempty"`
	TokenID     string  `json:"token_id"`
	Outcome     string  `json:"outcome,omitempty"`
	Side        string  `json:"side"`
	Price       string  `json:"price"`
	Size        string  `json:"size"`
	Edge        float64 `json:"edge"`
	Confidence  float64 `json:"confidence"`
	Status      string  `json:"status"` // dry_run | live | failed | rejected
	Reason      string  `json:"reason,omitempty"`
	OrderID     string  `json:"order_id,omitempty"`
	Error       string  `json:"error,omitempty"`
	SettledTx   string  `json:"settled_tx,omitempty"`
}

// Agent turns signals into bounded limit orders.
type Agent struct {
	trader      Trader
	tradeLog    *jsonl.Writer
	maxNotional float64
	now         func() time.Time
}

func NewAgent(trader Trader, tradeLog *jsonl.Writer, maxNotional float64) *Agent {
	return &Agent{
		trader:      trader,
		tradeLog:    tradeLog,
		maxNotional: maxNotional,
		now:         time.Now,
	}
}

// LimitPrice snaps an ask to the exchange tick. The caller checks the result
// against the tradeable band.
func LimitPrice(ask float64) decimal.Decimal {
	return decimal.NewFromFloat(ask).Round(2)
}

// OrderSize converts a notional budget at a price into shares, floored to
// the exchange size step. Zero when the budget cannot buy one step.
func OrderSize(maxNotional float64, price decimal.Decimal) decimal.Decimal {
	if price.Sign() <= 0 || maxNotional <= 0 {
		return decimal.Zero
	}
	shares := decimal.NewFromFloat(maxNotional).Div(price)
	return shares.Div(sizeStep).Floor().Mul(sizeStep)
}

// Execute prices and places a buy for the signal's winning token. It never
// returns an error: every failure mode is logged and recorded, and the loop
// moves on to the next settlement regardless.
func (a *Agent) Execute(ctx context.Context, sig *signal.Signal) TradeRecord {
	price := LimitPrice(sig.Ask)
	size := OrderSize(a.maxNotional, price)

	rec := TradeRecord{
		Timestamp:   a.now().UTC().Format(time.RFC3339),
		ConditionID: sig.ConditionID,
		MarketID:    sig.MarketID,
		Question:    sig.Question,
		TokenID:     sig.TokenID,
		Outcome:     sig.Outcome,
		Side:        string(clob.SideBuy),
		Price:       price.String(),
		Size:        size.String(),
		Edge:        sig.Edge,
		Confidence:  sig.Confidence,
		SettledTx:   sig.SettledTx,
	}

	switch {
	case price.LessThan(minPrice) || price.GreaterThan(maxPrice):
		rec.Status = "rejected"
		rec.Reason = "price outside tick range"
	case size.Sign() <= 0:
		rec.Status = "rejected"
		rec.Reason = "size rounds to zero"
	case !a.trader.Authenticated():
		// No signing credentials: record the attempt without touching the
		// transport at all.
		rec.Status = "dry_run"
		rec.Reason = "not_authenticated"
		log.Printf("[warn] no credentials, recording dry run: token=%s price=%s size=%s", shortID(sig.TokenID), rec.Price, rec.Size)
	default:
		placed, err := a.trader.PlaceLimitOrder(ctx, sig.TokenID, clob.SideBuy, rec.Price, rec.Size)
		switch {
		case err != nil:
			rec.Status = "failed"
			rec.Error = err.Error()
			log.Printf("[warn] order failed: token=%s price=%s size=%s err=%v", shortID(sig.TokenID), rec.Price, rec.Size, err)
		case placed.DryRun:
			rec.Status = "dry_run"
			rec.OrderID = placed.OrderID
			log.Printf("[dry] buy token=%s price=%s size=%s edge=%.4f (%s)", shortID(sig.TokenID), rec.Price, rec.Size, sig.Edge, sig.Question)
		case placed.Success:
			rec.Status = "live"
			rec.OrderID = placed.OrderID
			log.Printf("[info] order live: id=%s token=%s price=%s size=%s edge=%.4f", placed.OrderID, shortID(sig.TokenID), rec.Price, rec.Size, sig.Edge)
		default:
			rec.Status = "failed"
			rec.Error = placed.ErrorMsg
			log.Printf("[warn] order rejected: token=%s price=%s size=%s msg=%s", shortID(sig.TokenID), rec.Price, rec.Size, placed.ErrorMsg)
		}
	}

	if err := a.tradeLog.Write(rec); err != nil {
		log.Printf("[warn] trade log write failed: %v", err)
	}
	return rec
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "…"
}
