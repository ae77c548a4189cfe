// Package signal turns oracle settlements into actionable trade signals by
// matching them to live markets and pricing the resolved outcome.
package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/yskaaks/polymarket-bot/internal/book"
	"github.com/yskaaks/polymarket-bot/internal/gamma"
	"github.com/yskaaks/polymarket-bot/internal/oracle"
)

// Skip reasons. A settlement that produces one of these is simply not
// tradeable; none of them indicate a fault.
var (
	ErrNoConditionID = errors.New("no condition id in ancillary data")
	ErrNoMarket      = errors.New("no market for condition id")
	ErrNoQuote       = errors.New("no usable quote for resolved outcome")
	ErrBelowMinEdge  = errors.New("edge below minimum")
)

// A settlement tells us the outcome with near-certainty; the residual doubt
// covers reorgs and decode mistakes.
const settlementConfidence = 0.99

// Signal is a priced trade opportunity derived from one settlement.
type Signal struct {
	ConditionID  string   `json:"condition_id"`
	MarketID     string   `json:"market_id"`
	Question     string   `json:"question"`
	Slug         string   `json:"slug"`
	OutcomeIndex int      `json:"outcome_index"`
	Outcome      string   `json:"outcome"`
	TokenIDs     []string `json:"token_ids"`
	TokenID      string   `json:"token_id"`
	Ask          float64  `json:"ask"`
	AskSource    string   `json:"ask_source"` // orderbook | snapshot
	Edge         float64  `json:"edge"`
	Confidence   float64  `json:"confidence"`
	SettledTx    string   `json:"settled_tx"`
	BlockNumber  uint64   `json:"block_number"`
}

// MarketLookup resolves condition ids to markets. Satisfied by *gamma.Client.
type MarketLookup interface {
	MarketsByConditionID(ctx context.Context, conditionID string) ([]gamma.Market, error)
}

// BookSource fetches normalized order books. Satisfied by *book.Analyzer.
type BookSource interface {
	Orderbook(ctx context.Context, tokenID string) (*book.Orderbook, error)
}

// Generator matches settlements against markets and prices the winning
// outcome.
type Generator struct {
	markets MarketLookup
	books   BookSource
	minEdge float64
}

func NewGenerator(markets MarketLookup, books BookSource, minEdge float64) *Generator {
	return &Generator{markets: markets, books: books, minEdge: minEdge}
}

// FromSettlement derives a signal from one settlement, or a skip error.
// Market matching happens before any order book fetch so unmatched
// settlements cost one Gamma call at most.
func (g *Generator) FromSettlement(ctx context.Context, st *oracle.Settlement) (*Signal, error) {
	text := oracle.ParseAncillaryData(st.AncillaryData)
	conditionID := ExtractConditionID(text)
	if conditionID == "" {
		return nil, ErrNoConditionID
	}

	markets, err := g.markets.MarketsByConditionID(ctx, conditionID)
	if err != nil {
		return nil, fmt.Errorf("lookup market %s: %w", conditionID, err)
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMarket, conditionID)
	}
	m := markets[0]

	if len(m.TokenIDs) < 2 {
		return nil, fmt.Errorf("market %s has %d outcome tokens, need 2", conditionID, len(m.TokenIDs))
	}

	// The oracle resolves to a scaled price; any positive value means the
	// first outcome won, zero (or negative) means the second did.
	idx := 1
	if st.ResolvedPrice != nil && st.ResolvedPrice.Sign() > 0 {
		idx = 0
	}
	tokenID := m.TokenIDs[idx]

	ask, source, err := g.askPrice(ctx, tokenID, m, idx)
	if err != nil {
		return nil, err
	}
	if ask <= 0 || ask >= 1 {
		return nil, fmt.Errorf("%w: ask %.4f", ErrNoQuote, ask)
	}

	// The winning token redeems at 1.00, so the edge is everything between
	// the quote and par.
	edge := 1.0 - ask
	if edge < g.minEdge {
		return nil, fmt.Errorf("%w: %.4f < %.4f", ErrBelowMinEdge, edge, g.minEdge)
	}

	outcome := ""
	if idx < len(m.Outcomes) {
		outcome = m.Outcomes[idx]
	}

	return &Signal{
		ConditionID:  conditionID,
		MarketID:     m.ID,
		Question:     m.Question,
		Slug:         m.Slug,
		OutcomeIndex: idx,
		Outcome:      outcome,
		TokenIDs:     append([]string(nil), m.TokenIDs...),
		TokenID:      tokenID,
		Ask:          ask,
		AskSource:    source,
		Edge:         edge,
		Confidence:   settlementConfidence,
		SettledTx:    st.TxHash.Hex(),
		BlockNumber:  st.BlockNumber,
	}, nil
}

// askPrice prefers a live order book ask and falls back to the Gamma price
// snapshot when the book is empty or unavailable.
func (g *Generator) askPrice(ctx context.Context, tokenID string, m gamma.Market, idx int) (float64, string, error) {
	if g.books != nil {
		ob, err := g.books.Orderbook(ctx, tokenID)
		if err == nil {
			if ask, ok := ob.BestAsk(); ok {
				return ask, "orderbook", nil
			}
		}
	}
	if snap := m.OutcomePrice(idx); snap > 0 {
		return snap, "snapshot", nil
	}
	return 0, "", ErrNoQuote
}
