// Package feed streams live order book updates from the CLOB market
// websocket. The connection is self-healing: drops reconnect with jittered
// exponential backoff and the subscription is replayed on each session.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// The CLOB endpoint closes idle connections; a periodic PING keeps it open.
const DefaultPingInterval = 10 * time.Second

type subscribeRequest struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

// PriceLevel is one side entry in a book event. Values are decimal strings.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// PriceChange is one delta in a price_change event.
type PriceChange struct {
	Price string `json:"price"`
	Side  string `json:"side"`
	Size  string `json:"size"`
}

// Event is one market-channel message. Fields are populated according to
// EventType; Raw always carries the full payload.
type Event struct {
	EventType string          `json:"event_type"` // book | price_change | tick_size_change | last_trade_price
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash,omitempty"`
	Bids      []PriceLevel    `json:"bids,omitempty"`
	Asks      []PriceLevel    `json:"asks,omitempty"`
	Changes   []PriceChange   `json:"changes,omitempty"`
	Price     string          `json:"price,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type Options struct {
	PingInterval time.Duration

	BackoffMin time.Duration
	BackoffMax time.Duration

	OutBuffer int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 15 * time.Second
	}
	if o.OutBuffer <= 0 {
		o.OutBuffer = 256
	}
	return o
}

// Start connects to the market websocket, subscribes to the given outcome
// tokens, and emits decoded events until ctx is cancelled. Both channels
// close on return; errors are advisory and never block.
func Start(ctx context.Context, url string, assetIDs []string, opts Options) (<-chan Event, <-chan error) {
	opts = opts.withDefaults()
	if url == "" {
		url = DefaultURL
	}

	out := make(chan Event, opts.OutBuffer)
	errs := make(chan error, 16)

	go func() {
		defer close(out)
		defer close(errs)

		backoff := opts.BackoffMin
		for {
			if ctx.Err() != nil {
				return
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				emitErrNonBlocking(errs, fmt.Errorf("feed dial: %w", err))
				sleepWithJitter(ctx, backoff)
				backoff = nextBackoff(backoff, opts.BackoffMax)
				continue
			}

			backoff = opts.BackoffMin

			if err := runSession(ctx, conn, assetIDs, opts.PingInterval, out, errs); err != nil && ctx.Err() == nil {
				emitErrNonBlocking(errs, err)
			}

			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			sleepWithJitter(ctx, backoff)
			backoff = nextBackoff(backoff, opts.BackoffMax)
		}
	}()

	return out, errs
}

func runSession(
	ctx context.Context,
	conn *websocket.Conn,
	assetIDs []string,
	pingInterval time.Duration,
	out chan<- Event,
	errs chan<- error,
) error {
	if conn == nil {
		return fmt.Errorf("feed session: nil conn")
	}

	req := subscribeRequest{AssetIDs: assetIDs, Type: "market"}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("feed subscribe marshal: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, reqBytes); err != nil {
		return fmt.Errorf("feed subscribe write: %w", err)
	}

	var writeMu sync.Mutex
	stop := make(chan struct{})
	var stopOnce sync.Once
	stopAll := func() { stopOnce.Do(func() { close(stop) }) }

	go func() {
		defer stopAll()
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-t.C:
				writeMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
				werr := conn.WriteMessage(websocket.TextMessage, []byte("PING"))
				writeMu.Unlock()
				if werr != nil {
					emitErrNonBlocking(errs, fmt.Errorf("feed ping: %w", werr))
					_ = conn.Close()
					return
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			stopAll()
			if errors.Is(err, websocket.ErrCloseSent) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed read: %w", err)
		}

		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 {
			continue
		}
		if string(msg) == "PONG" || string(msg) == "PING" {
			continue
		}

		for _, ev := range decodeEvents(msg, errs) {
			select {
			case out <- ev:
			default:
			}
		}
	}
}

// decodeEvents handles both shapes the server uses: a single event object or
// an array of them.
func decodeEvents(msg []byte, errs chan<- error) []Event {
	var raws []json.RawMessage
	if msg[0] == '[' {
		if err := json.Unmarshal(msg, &raws); err != nil {
			emitErrNonBlocking(errs, fmt.Errorf("feed json decode: %w", err))
			return nil
		}
	} else {
		raws = []json.RawMessage{json.RawMessage(msg)}
	}

	out := make([]Event, 0, len(raws))
	for _, raw := range raws {
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			emitErrNonBlocking(errs, fmt.Errorf("feed json decode: %w", err))
			continue
		}
		ev.Raw = raw
		out = append(out, ev)
	}
	return out
}

func emitErrNonBlocking(ch chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	j := int64(d) / 7
	if j > 0 {
		d = time.Duration(int64(d) + rand.Int64N(2*j+1) - j)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
