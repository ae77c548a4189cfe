package strategy

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yskaaks/polymarket-bot/internal/exec"
	"github.com/yskaaks/polymarket-bot/internal/oracle"
	"github.com/yskaaks/polymarket-bot/internal/signal"
	"github.com/yskaaks/polymarket-bot/internal/state"
)

type fakeScanner struct {
	head    uint64
	headErr error

	ranges      [][2]uint64
	settlements []oracle.Settlement
	scanErr     error
}

func (f *fakeScanner) Head(ctx context.Context) (uint64, error) {
	return f.head, f.headErr
}

func (f *fakeScanner) Settlements(ctx context.Context, from, to uint64) ([]oracle.Settlement, error) {
	f.ranges = append(f.ranges, [2]uint64{from, to})
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.settlements, nil
}

type fakeSignals struct {
	sig   *signal.Signal
	err   error
	calls int
	panic bool
}

func (f *fakeSignals) FromSettlement(ctx context.Context, st *oracle.Settlement) (*signal.Signal, error) {
	f.calls++
	if f.panic {
		panic("bad settlement")
	}
	return f.sig, f.err
}

type fakeGate struct {
	veto error
}

func (f *fakeGate) Check(sig *signal.Signal) error { return f.veto }

type fakeExecutor struct {
	executed []*signal.Signal
}

func (f *fakeExecutor) Execute(ctx context.Context, sig *signal.Signal) exec.TradeRecord {
	f.executed = append(f.executed, sig)
	return exec.TradeRecord{Status: "dry_run"}
}

func newTestWatcher(t *testing.T, scanner *fakeScanner, signals *fakeSignals, gate *fakeGate, executor *fakeExecutor) *Watcher {
	t.Helper()
	return NewWatcher(scanner, signals, gate, executor, Options{
		ChainID:        137,
		OracleAddress:  "0x5953c82c114cbab00fa446A3bbDB2D4B663f73B3",
		PollInterval:   time.Second,
		WarmupBlocks:   100,
		CheckpointPath: filepath.Join(t.TempDir(), "checkpoint.json"),
	})
}

func TestWatcher_ScanOnce_AdvancesCursorPastHead(t *testing.T) {
	scanner := &fakeScanner{head: 500}
	w := newTestWatcher(t, scanner, &fakeSignals{err: signal.ErrNoConditionID}, &fakeGate{}, &fakeExecutor{})
	w.cursor = 400

	w.scanOnce(context.Background())
	if w.cursor != 501 {
		t.Fatalf("cursor: got %d want 501", w.cursor)
	}
	if len(scanner.ranges) != 1 || scanner.ranges[0] != [2]uint64{400, 500} {
		t.Fatalf("scanned ranges: %v", scanner.ranges)
	}

	// Next tick with the same head covers nothing: the range is exhausted.
	w.scanOnce(context.Background())
	if len(scanner.ranges) != 1 {
		t.Fatalf("expected no rescan of covered range, got %v", scanner.ranges)
	}

	// A new head resumes exactly where the last scan ended.
	scanner.head = 520
	w.scanOnce(context.Background())
	if len(scanner.ranges) != 2 || scanner.ranges[1] != [2]uint64{501, 520} {
		t.Fatalf("scanned ranges: %v", scanner.ranges)
	}
}

func TestWatcher_ScanOnce_ErrorKeepsCursor(t *testing.T) {
	scanner := &fakeScanner{head: 500, scanErr: errors.New("rpc flake")}
	w := newTestWatcher(t, scanner, &fakeSignals{}, &fakeGate{}, &fakeExecutor{})
	w.cursor = 400

	w.scanOnce(context.Background())
	if w.cursor != 400 {
		t.Fatalf("cursor moved despite scan error: %d", w.cursor)
	}
}

func TestWatcher_ScanOnce_ExecutesGatedSignals(t *testing.T) {
	scanner := &fakeScanner{
		head:        500,
		settlements: []oracle.Settlement{{BlockNumber: 450}, {BlockNumber: 460}},
	}
	signals := &fakeSignals{sig: &signal.Signal{TokenID: "tok", Edge: 0.1, Confidence: 0.99}}
	executor := &fakeExecutor{}
	w := newTestWatcher(t, scanner, signals, &fakeGate{}, executor)
	w.cursor = 400

	w.scanOnce(context.Background())
	if signals.calls != 2 {
		t.Fatalf("signal calls: got %d want 2", signals.calls)
	}
	if len(executor.executed) != 2 {
		t.Fatalf("executions: got %d want 2", len(executor.executed))
	}
}

func TestWatcher_ScanOnce_VetoBlocksExecution(t *testing.T) {
	scanner := &fakeScanner{head: 500, settlements: []oracle.Settlement{{BlockNumber: 450}}}
	executor := &fakeExecutor{}
	w := newTestWatcher(t, scanner, &fakeSignals{sig: &signal.Signal{TokenID: "tok"}}, &fakeGate{veto: errors.New("too thin")}, executor)
	w.cursor = 400

	w.scanOnce(context.Background())
	if len(executor.executed) != 0 {
		t.Fatalf("vetoed signal reached execution")
	}
	if w.cursor != 501 {
		t.Fatalf("veto must still advance the cursor, got %d", w.cursor)
	}
}

func TestWatcher_ScanOnce_PanicInOneSettlementIsIsolated(t *testing.T) {
	scanner := &fakeScanner{head: 500, settlements: []oracle.Settlement{{BlockNumber: 450}, {BlockNumber: 460}}}
	signals := &fakeSignals{panic: true}
	w := newTestWatcher(t, scanner, signals, &fakeGate{}, &fakeExecutor{})
	w.cursor = 400

	w.scanOnce(context.Background())
	if signals.calls != 2 {
		t.Fatalf("second settlement skipped after panic: calls=%d", signals.calls)
	}
	if w.cursor != 501 {
		t.Fatalf("cursor: got %d want 501", w.cursor)
	}
}

func TestWatcher_ScanOnce_PersistsCheckpoint(t *testing.T) {
	scanner := &fakeScanner{head: 500}
	w := newTestWatcher(t, scanner, &fakeSignals{err: signal.ErrNoConditionID}, &fakeGate{}, &fakeExecutor{})
	w.cursor = 400

	w.scanOnce(context.Background())

	ckpt, found, err := state.Load(w.opts.CheckpointPath)
	if err != nil || !found {
		t.Fatalf("load checkpoint: found=%v err=%v", found, err)
	}
	if ckpt.NextScanBlock != 501 {
		t.Fatalf("checkpoint block: got %d want 501", ckpt.NextScanBlock)
	}
	if !ckpt.Compatible(137, "0x5953c82c114cbab00fa446A3bbDB2D4B663f73B3") {
		t.Fatalf("checkpoint identity mismatch: %+v", ckpt)
	}
}

func TestWatcher_StartCursor(t *testing.T) {
	w := newTestWatcher(t, &fakeScanner{}, &fakeSignals{}, &fakeGate{}, &fakeExecutor{})

	// No checkpoint: start warmup blocks behind head.
	if got := w.startCursor(1000); got != 900 {
		t.Fatalf("warmup cursor: got %d want 900", got)
	}
	if got := w.startCursor(50); got != 0 {
		t.Fatalf("small head cursor: got %d want 0", got)
	}

	// Compatible checkpoint wins.
	if err := state.Save(w.opts.CheckpointPath, state.Checkpoint{
		ChainID:       137,
		OracleAddress: w.opts.OracleAddress,
		NextScanBlock: 777,
	}); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	if got := w.startCursor(1000); got != 777 {
		t.Fatalf("checkpoint cursor: got %d want 777", got)
	}

	// Foreign checkpoint is ignored.
	if err := state.Save(w.opts.CheckpointPath, state.Checkpoint{
		ChainID:       1,
		OracleAddress: w.opts.OracleAddress,
		NextScanBlock: 777,
	}); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	if got := w.startCursor(1000); got != 900 {
		t.Fatalf("foreign checkpoint cursor: got %d want 900", got)
	}
}

func TestWatcher_Run_FailsFastWhenHeadUnreachable(t *testing.T) {
	scanner := &fakeScanner{headErr: errors.New("dns")}
	w := newTestWatcher(t, scanner, &fakeSignals{}, &fakeGate{}, &fakeExecutor{})

	if err := w.Run(context.Background()); err == nil {
		t.Fatalf("expected startup error")
	}
}
