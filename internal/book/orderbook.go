package book

import (
	"fmt"
	"sort"
)

// Level is one price level. Prices are in collateral per share, sizes in
// shares.
type Level struct {
	Price float64
	Size  float64
}

// Orderbook holds the resting liquidity for one outcome token. Bids are
// sorted descending by price, asks ascending, and zero-size levels are
// dropped at construction. A book whose sides overlap is rejected before an
// Orderbook is ever built, so BestBid < BestAsk whenever both sides exist.
type Orderbook struct {
	TokenID string
	Bids    []Level
	Asks    []Level
}

// ErrCrossed marks a book whose best bid meets or crosses its best ask. Such
// a snapshot is stale or corrupt and must not be traded against.
var ErrCrossed = fmt.Errorf("orderbook crossed")

// NewOrderbook normalizes raw levels into an Orderbook. Zero-size levels are
// discarded; a crossed book returns ErrCrossed.
func NewOrderbook(tokenID string, bids, asks []Level) (*Orderbook, error) {
	b := &Orderbook{
		TokenID: tokenID,
		Bids:    normalize(bids, true),
		Asks:    normalize(asks, false),
	}
	if len(b.Bids) > 0 && len(b.Asks) > 0 && b.Bids[0].Price >= b.Asks[0].Price {
		return nil, fmt.Errorf("%w: bid %.4f >= ask %.4f", ErrCrossed, b.Bids[0].Price, b.Asks[0].Price)
	}
	return b, nil
}

func normalize(levels []Level, desc bool) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.Size <= 0 || l.Price <= 0 {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

// BestBid returns the highest bid price, or false when the side is empty.
func (b *Orderbook) BestBid() (float64, bool) {
	if len(b.Bids) == 0 {
		return 0, false
	}
	return b.Bids[0].Price, true
}

// BestAsk returns the lowest ask price, or false when the side is empty.
func (b *Orderbook) BestAsk() (float64, bool) {
	if len(b.Asks) == 0 {
		return 0, false
	}
	return b.Asks[0].Price, true
}

// Midpoint returns (bestBid+bestAsk)/2 when both sides exist.
func (b *Orderbook) Midpoint() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Spread returns bestAsk-bestBid when both sides exist. Non-negative for any
// book that passed construction.
func (b *Orderbook) Spread() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask - bid, true
}

// BidDepth sums bid sizes over the top n levels.
func (b *Orderbook) BidDepth(n int) float64 {
	return depth(b.Bids, n)
}

// AskDepth sums ask sizes over the top n levels.
func (b *Orderbook) AskDepth(n int) float64 {
	return depth(b.Asks, n)
}

func depth(levels []Level, n int) float64 {
	if n > len(levels) {
		n = len(levels)
	}
	total := 0.0
	for _, l := range levels[:n] {
		total += l.Size
	}
	return total
}

// Imbalance returns (bidDepth-askDepth)/(bidDepth+askDepth) over the top n
// levels per side. In [-1, 1]; exactly 0 when both depths are zero.
func (b *Orderbook) Imbalance(n int) float64 {
	bid := b.BidDepth(n)
	ask := b.AskDepth(n)
	total := bid + ask
	if total == 0 {
		return 0
	}
	return (bid - ask) / total
}
