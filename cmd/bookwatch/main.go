// Command bookwatch tails live order book updates for one or more outcome
// tokens over the CLOB market websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yskaaks/polymarket-bot/internal/config"
	"github.com/yskaaks/polymarket-bot/internal/dotenv"
	"github.com/yskaaks/polymarket-bot/internal/feed"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var tokensFlag string
	var rawFlag bool
	flag.StringVar(&tokensFlag, "tokens", "", "Comma-separated outcome token ids to watch")
	flag.BoolVar(&rawFlag, "raw", false, "Print raw event payloads instead of summaries")
	flag.Parse()

	tokens := splitTokens(tokensFlag)
	if len(tokens) == 0 {
		log.Fatalf("[fatal] -tokens required (comma-separated outcome token ids)")
	}

	cfg := config.FromEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("Watching %d token(s) via %s", len(tokens), cfg.MarketWsURL)
	events, errs := feed.Start(ctx, cfg.MarketWsURL, tokens, feed.Options{})

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down…")
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[warn] %v", err)
		case ev, ok := <-events:
			if !ok {
				return
			}
			printEvent(ev, rawFlag)
		}
	}
}

func splitTokens(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printEvent(ev feed.Event, raw bool) {
	if raw {
		fmt.Printf("%s\n", ev.Raw)
		return
	}

	switch ev.EventType {
	case "book":
		bid, ask := "-", "-"
		if len(ev.Bids) > 0 {
			bid = ev.Bids[len(ev.Bids)-1].Price
		}
		if len(ev.Asks) > 0 {
			ask = ev.Asks[len(ev.Asks)-1].Price
		}
		log.Printf("book token=%s levels=%d/%d bid=%s ask=%s", shortID(ev.AssetID), len(ev.Bids), len(ev.Asks), bid, ask)
	case "price_change":
		for _, ch := range ev.Changes {
			log.Printf("change token=%s side=%s price=%s size=%s", shortID(ev.AssetID), ch.Side, ch.Price, ch.Size)
		}
	case "last_trade_price":
		log.Printf("trade token=%s price=%s", shortID(ev.AssetID), ev.Price)
	case "tick_size_change":
		log.Printf("tick_size_change token=%s", shortID(ev.AssetID))
	default:
		log.Printf("%s token=%s", ev.EventType, shortID(ev.AssetID))
	}
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "…"
}
