package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeChain struct {
	head    uint64
	headErr error
	logs    []types.Log
	logsErr error

	lastQuery ethereum.FilterQuery
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, f.headErr
}

func (f *fakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.lastQuery = q
	return f.logs, f.logsErr
}

func TestScanner_Settlements_SortsAndFilters(t *testing.T) {
	oracleAddr := common.HexToAddress("0x5953c82c114cbab00fa446A3bbDB2D4B663f73B3")

	later := settleLog(t, []byte("b"), big.NewInt(1), 20, 1)
	earlier := settleLog(t, []byte("a"), big.NewInt(1), 10, 3)
	sameBlockLowerIdx := settleLog(t, []byte("c"), big.NewInt(1), 20, 0)
	removed := settleLog(t, []byte("d"), big.NewInt(1), 5, 0)
	removed.Removed = true
	undecodable := settleLog(t, []byte("e"), big.NewInt(1), 6, 0)
	undecodable.Data = undecodable.Data[:16]

	chain := &fakeChain{logs: []types.Log{later, earlier, sameBlockLowerIdx, removed, undecodable}}
	s := NewScanner(chain, oracleAddr)

	got, err := s.Settlements(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("settlements: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 settlements, got %d", len(got))
	}
	if got[0].BlockNumber != 10 {
		t.Fatalf("order: first block=%d want 10", got[0].BlockNumber)
	}
	if got[1].BlockNumber != 20 || got[1].LogIndex != 0 {
		t.Fatalf("order: second block=%d idx=%d want 20/0", got[1].BlockNumber, got[1].LogIndex)
	}
	if got[2].BlockNumber != 20 || got[2].LogIndex != 1 {
		t.Fatalf("order: third block=%d idx=%d want 20/1", got[2].BlockNumber, got[2].LogIndex)
	}

	q := chain.lastQuery
	if q.FromBlock.Uint64() != 0 || q.ToBlock.Uint64() != 100 {
		t.Fatalf("query range: [%s, %s]", q.FromBlock, q.ToBlock)
	}
	if len(q.Addresses) != 1 || q.Addresses[0] != oracleAddr {
		t.Fatalf("query address: %v", q.Addresses)
	}
	if len(q.Topics) != 1 || len(q.Topics[0]) != 1 || q.Topics[0][0] != SettleTopic {
		t.Fatalf("query topics: %v", q.Topics)
	}
}

func TestScanner_Settlements_InvalidRange(t *testing.T) {
	s := NewScanner(&fakeChain{}, common.Address{})
	if _, err := s.Settlements(context.Background(), 10, 5); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestScanner_Settlements_PropagatesFilterError(t *testing.T) {
	want := errors.New("rpc down")
	s := NewScanner(&fakeChain{logsErr: want}, common.Address{})
	if _, err := s.Settlements(context.Background(), 0, 1); !errors.Is(err, want) {
		t.Fatalf("expected wrapped rpc error, got %v", err)
	}
}
