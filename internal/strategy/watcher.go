// Package strategy runs the settlement watch loop: scan the oracle for new
// Settle events, turn each into a signal, gate it, and hand it to execution.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yskaaks/polymarket-bot/internal/exec"
	"github.com/yskaaks/polymarket-bot/internal/oracle"
	"github.com/yskaaks/polymarket-bot/internal/signal"
	"github.com/yskaaks/polymarket-bot/internal/state"
)

// SettlementSource yields oracle settlements. Satisfied by *oracle.Scanner.
type SettlementSource interface {
	Head(ctx context.Context) (uint64, error)
	Settlements(ctx context.Context, from, to uint64) ([]oracle.Settlement, error)
}

// SignalSource derives signals. Satisfied by *signal.Generator.
type SignalSource interface {
	FromSettlement(ctx context.Context, st *oracle.Settlement) (*signal.Signal, error)
}

// Gate vetoes signals. Satisfied by *risk.Validator.
type Gate interface {
	Check(sig *signal.Signal) error
}

// Executor places trades. Satisfied by *exec.Agent.
type Executor interface {
	Execute(ctx context.Context, sig *signal.Signal) exec.TradeRecord
}

// Options configure a Watcher.
type Options struct {
	ChainID        int64
	OracleAddress  string
	PollInterval   time.Duration
	WarmupBlocks   uint64
	CheckpointPath string
}

// Watcher drives the poll loop. Each iteration scans [cursor, head] and then
// advances the cursor past head, so every block is covered exactly once.
type Watcher struct {
	scanner  SettlementSource
	signals  SignalSource
	gate     Gate
	executor Executor
	opts     Options

	cursor uint64
}

func NewWatcher(scanner SettlementSource, signals SignalSource, gate Gate, executor Executor, opts Options) *Watcher {
	return &Watcher{
		scanner:  scanner,
		signals:  signals,
		gate:     gate,
		executor: executor,
		opts:     opts,
	}
}

// Run blocks until ctx is cancelled. It fails fast if the chain endpoint is
// unreachable at startup; once running, transient errors are logged and the
// affected range is retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	head, err := w.scanner.Head(ctx)
	if err != nil {
		return fmt.Errorf("chain head unreachable: %w", err)
	}

	w.cursor = w.startCursor(head)
	log.Printf("[info] watching settlements from block %d (head %d)", w.cursor, head)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		w.scanOnce(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// startCursor resumes from a compatible checkpoint, otherwise starts a short
// distance behind head to pick up recent settlements without a deep backfill.
func (w *Watcher) startCursor(head uint64) uint64 {
	ckpt, found, err := state.Load(w.opts.CheckpointPath)
	if err != nil {
		log.Printf("[warn] checkpoint load failed, starting fresh: %v", err)
	} else if found {
		if ckpt.Compatible(w.opts.ChainID, w.opts.OracleAddress) {
			log.Printf("[info] resuming from checkpoint block %d", ckpt.NextScanBlock)
			return ckpt.NextScanBlock
		}
		log.Printf("[warn] checkpoint is for chain=%d oracle=%s, ignoring", ckpt.ChainID, ckpt.OracleAddress)
	}

	if head > w.opts.WarmupBlocks {
		return head - w.opts.WarmupBlocks
	}
	return 0
}

func (w *Watcher) scanOnce(ctx context.Context) {
	head, err := w.scanner.Head(ctx)
	if err != nil {
		log.Printf("[warn] fetch head: %v", err)
		return
	}
	if w.cursor > head {
		return
	}

	settlements, err := w.scanner.Settlements(ctx, w.cursor, head)
	if err != nil {
		// Cursor stays put so the range is retried next tick.
		log.Printf("[warn] scan [%d, %d]: %v", w.cursor, head, err)
		return
	}
	if len(settlements) > 0 {
		log.Printf("[info] %d settlement(s) in [%d, %d]", len(settlements), w.cursor, head)
	}

	for i := range settlements {
		w.handleOne(ctx, &settlements[i])
		if ctx.Err() != nil {
			return
		}
	}

	w.cursor = head + 1
	if err := state.Save(w.opts.CheckpointPath, state.Checkpoint{
		ChainID:       w.opts.ChainID,
		OracleAddress: w.opts.OracleAddress,
		NextScanBlock: w.cursor,
	}); err != nil {
		log.Printf("[warn] checkpoint save failed: %v", err)
	}
}

// handleOne isolates a single settlement: a panic or error in one never
// blocks the rest of the batch.
func (w *Watcher) handleOne(ctx context.Context, st *oracle.Settlement) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[warn] recovered handling settlement tx=%s: %v", st.TxHash.Hex(), r)
		}
	}()

	sig, err := w.signals.FromSettlement(ctx, st)
	if err != nil {
		if isSkip(err) {
			log.Printf("[info] skip settlement tx=%s: %v", st.TxHash.Hex(), err)
		} else {
			log.Printf("[warn] signal for tx=%s: %v", st.TxHash.Hex(), err)
		}
		return
	}

	if err := w.gate.Check(sig); err != nil {
		log.Printf("[info] risk veto %s (%s): %v", sig.ConditionID, sig.Question, err)
		return
	}

	rec := w.executor.Execute(ctx, sig)
	log.Printf("[info] settlement tx=%s -> %s (price=%s size=%s)", st.TxHash.Hex(), rec.Status, rec.Price, rec.Size)
}

func isSkip(err error) bool {
	return errors.Is(err, signal.ErrNoConditionID) ||
		errors.Is(err, signal.ErrNoMarket) ||
		errors.Is(err, signal.ErrNoQuote) ||
		errors.Is(err, signal.ErrBelowMinEdge)
}
