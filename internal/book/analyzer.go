package book

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yskaaks/polymarket-bot/internal/clob"
)

// Source supplies raw order books. Satisfied by *clob.Client.
type Source interface {
	GetOrderBook(ctx context.Context, tokenID string) (*clob.OrderBookSummary, error)
}

// Analyzer fetches books and derives executable price metrics from them.
type Analyzer struct {
	src Source
}

func NewAnalyzer(src Source) *Analyzer {
	return &Analyzer{src: src}
}

// Orderbook fetches and normalizes the book for a token. Fails on transport
// errors, unparseable levels, or a crossed book.
func (a *Analyzer) Orderbook(ctx context.Context, tokenID string) (*Orderbook, error) {
	raw, err := a.src.GetOrderBook(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", shortToken(tokenID), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("fetch book %s: empty response", shortToken(tokenID))
	}

	bids, err := parseLevels(raw.Bids)
	if err != nil {
		return nil, fmt.Errorf("parse bids: %w", err)
	}
	asks, err := parseLevels(raw.Asks)
	if err != nil {
		return nil, fmt.Errorf("parse asks: %w", err)
	}
	return NewOrderbook(tokenID, bids, asks)
}

func parseLevels(raw []clob.OrderSummary) ([]Level, error) {
	out := make([]Level, 0, len(raw))
	for _, l := range raw {
		price, err := strconv.ParseFloat(strings.TrimSpace(l.Price), 64)
		if err != nil {
			return nil, fmt.Errorf("bad price %q: %w", l.Price, err)
		}
		size, err := strconv.ParseFloat(strings.TrimSpace(l.Size), 64)
		if err != nil {
			return nil, fmt.Errorf("bad size %q: %w", l.Size, err)
		}
		out = append(out, Level{Price: price, Size: size})
	}
	return out, nil
}

// ErrNoLiquidity is returned when a slippage walk cannot fill any amount.
var ErrNoLiquidity = fmt.Errorf("no liquidity")

// SlippageReport describes the expected execution of a hypothetical order.
type SlippageReport struct {
	AvgPrice       float64
	BestPrice      float64
	SlippagePct    float64
	FilledAmount   float64
	UnfilledAmount float64
	TotalCost      float64
}

// Slippage walks the relevant side of the book (asks for BUY, bids for SELL)
// consuming level sizes until amount is filled or levels run out.
func (a *Analyzer) Slippage(ctx context.Context, tokenID string, side clob.Side, amount float64) (SlippageReport, error) {
	if amount <= 0 {
		return SlippageReport{}, fmt.Errorf("amount must be > 0")
	}

	ob, err := a.Orderbook(ctx, tokenID)
	if err != nil {
		return SlippageReport{}, err
	}

	levels := ob.Asks
	if side == clob.SideSell {
		levels = ob.Bids
	}
	if len(levels) == 0 {
		return SlippageReport{}, ErrNoLiquidity
	}

	remaining := amount
	totalCost := 0.0
	filled := 0.0
	for _, l := range levels {
		if remaining <= 0 {
			break
		}
		fill := l.Size
		if remaining < fill {
			fill = remaining
		}
		totalCost += fill * l.Price
		filled += fill
		remaining -= fill
	}
	if filled == 0 {
		return SlippageReport{}, ErrNoLiquidity
	}

	avg := totalCost / filled
	best := levels[0].Price
	slip := 0.0
	if best > 0 {
		slip = (avg - best) / best * 100
		if slip < 0 {
			slip = -slip
		}
	}

	return SlippageReport{
		AvgPrice:       avg,
		BestPrice:      best,
		SlippagePct:    slip,
		FilledAmount:   filled,
		UnfilledAmount: remaining,
		TotalCost:      totalCost,
	}, nil
}

// ArbReport describes a complementary-pair buy-both check.
type ArbReport struct {
	Opportunity    bool
	AskA           float64
	AskB           float64
	TotalCost      float64
	ProfitPerShare float64
	ProfitPct      float64
}

// Arbitrage checks whether buying both outcomes of a binary pair costs less
// than the guaranteed 1.00 payout. Structural for any well-formed two-outcome
// market: opportunity iff ask(a)+ask(b) < 1.
func (a *Analyzer) Arbitrage(ctx context.Context, tokenA, tokenB string) (ArbReport, error) {
	bookA, err := a.Orderbook(ctx, tokenA)
	if err != nil {
		return ArbReport{}, err
	}
	bookB, err := a.Orderbook(ctx, tokenB)
	if err != nil {
		return ArbReport{}, err
	}

	askA, okA := bookA.BestAsk()
	askB, okB := bookB.BestAsk()
	if !okA || !okB {
		return ArbReport{}, ErrNoLiquidity
	}

	total := askA + askB
	rep := ArbReport{AskA: askA, AskB: askB, TotalCost: total}
	if total < 1.0 {
		rep.Opportunity = true
		rep.ProfitPerShare = 1.0 - total
		rep.ProfitPct = rep.ProfitPerShare / total * 100
	}
	return rep, nil
}

func shortToken(tokenID string) string {
	if len(tokenID) <= 16 {
		return tokenID
	}
	return tokenID[:16] + "…"
}
