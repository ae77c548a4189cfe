// Command markets looks up Polymarket markets by slug or condition id and
// optionally prints live book metrics for their outcome tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yskaaks/polymarket-bot/internal/book"
	"github.com/yskaaks/polymarket-bot/internal/clob"
	"github.com/yskaaks/polymarket-bot/internal/config"
	"github.com/yskaaks/polymarket-bot/internal/dotenv"
	"github.com/yskaaks/polymarket-bot/internal/gamma"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var (
		slug        string
		conditionID string
		limit       int
		activeOnly  bool
		showBooks   bool
		checkArb    bool
	)
	flag.StringVar(&slug, "slug", "", "Market slug to look up")
	flag.StringVar(&conditionID, "condition-id", "", "CTF condition id to look up")
	flag.IntVar(&limit, "limit", 20, "Number of markets to list when no lookup is given")
	flag.BoolVar(&activeOnly, "active", true, "List active markets only")
	flag.BoolVar(&showBooks, "books", false, "Fetch live best bid/ask per outcome token")
	flag.BoolVar(&checkArb, "arb", false, "Check buy-both arbitrage across the two outcome tokens")
	flag.Parse()

	cfg := config.FromEnv()

	gammaClient, err := gamma.NewClient(cfg.GammaHost)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var markets []gamma.Market
	switch {
	case slug != "":
		m, err := gammaClient.MarketBySlug(ctx, slug)
		if err != nil {
			log.Fatalf("[fatal] lookup slug %q: %v", slug, err)
		}
		markets = []gamma.Market{m}
	case conditionID != "":
		markets, err = gammaClient.MarketsByConditionID(ctx, conditionID)
		if err != nil {
			log.Fatalf("[fatal] lookup condition id %q: %v", conditionID, err)
		}
		if len(markets) == 0 {
			log.Fatalf("[fatal] no market for condition id %q", conditionID)
		}
	default:
		markets, err = gammaClient.ListMarkets(ctx, limit, activeOnly)
		if err != nil {
			log.Fatalf("[fatal] list markets: %v", err)
		}
	}

	var analyzer *book.Analyzer
	if showBooks || checkArb {
		clobClient, err := clob.NewClient(cfg.ClobHost, cfg.ChainID, nil, common.Address{}, 0)
		if err != nil {
			log.Fatalf("[fatal] clob client: %v", err)
		}
		analyzer = book.NewAnalyzer(clobClient)
	}

	for i, m := range markets {
		if i > 0 {
			fmt.Println()
		}
		printMarket(ctx, m, analyzer, showBooks, checkArb)
	}
}

func printMarket(ctx context.Context, m gamma.Market, analyzer *book.Analyzer, showBooks, checkArb bool) {
	fmt.Printf("question: %s\n", m.Question)
	fmt.Printf("slug: %s\n", m.Slug)
	fmt.Printf("condition_id: %s\n", m.ConditionID)
	fmt.Printf("active: %v closed: %v liquidity: %.2f volume_24h: %.2f\n", m.Active, m.Closed, m.Liquidity, m.Volume24h)
	for i, tokenID := range m.TokenIDs {
		outcome := ""
		if i < len(m.Outcomes) {
			outcome = m.Outcomes[i]
		}
		fmt.Printf("outcome[%d]: %s token=%s snapshot_price=%.4f\n", i, outcome, tokenID, m.OutcomePrice(i))

		if showBooks && analyzer != nil {
			ob, err := analyzer.Orderbook(ctx, tokenID)
			if err != nil {
				fmt.Printf("  book: error: %v\n", err)
				continue
			}
			bid, hasBid := ob.BestBid()
			ask, hasAsk := ob.BestAsk()
			fmt.Printf("  book: bid=%s ask=%s imbalance=%.3f\n", formatQuote(bid, hasBid), formatQuote(ask, hasAsk), ob.Imbalance(5))
		}
	}

	if checkArb && analyzer != nil && len(m.TokenIDs) == 2 {
		rep, err := analyzer.Arbitrage(ctx, m.TokenIDs[0], m.TokenIDs[1])
		if err != nil {
			fmt.Printf("arb: error: %v\n", err)
			return
		}
		fmt.Printf("arb: cost=%.4f opportunity=%v", rep.TotalCost, rep.Opportunity)
		if rep.Opportunity {
			fmt.Printf(" profit_per_share=%.4f (%.2f%%)", rep.ProfitPerShare, rep.ProfitPct)
		}
		fmt.Println()
	}
}

func formatQuote(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
