package oracle

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the slice of the RPC surface the scanner needs. Satisfied by
// *ethclient.Client.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Scanner polls the oracle contract for Settle events over block ranges. It
// has no side effects; the same range can be re-scanned under retry.
type Scanner struct {
	client ChainReader
	oracle common.Address
}

func NewScanner(client ChainReader, oracle common.Address) *Scanner {
	return &Scanner{client: client, oracle: oracle}
}

// OracleAddress returns the watched contract address.
func (s *Scanner) OracleAddress() common.Address { return s.oracle }

// Head returns the current chain head block number.
func (s *Scanner) Head(ctx context.Context) (uint64, error) {
	return s.client.BlockNumber(ctx)
}

// Settlements fetches Settle events over [from, to] inclusive, in ascending
// (block, log index) order. Logs that fail to decode are skipped with a
// warning rather than failing the whole range.
func (s *Scanner) Settlements(ctx context.Context, from, to uint64) ([]Settlement, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range [%d, %d]", from, to)
	}

	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.oracle},
		Topics:    [][]common.Hash{{SettleTopic}},
	}

	logs, err := s.client.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter logs [%d, %d]: %w", from, to, err)
	}

	out := make([]Settlement, 0, len(logs))
	for _, vLog := range logs {
		if vLog.Removed {
			continue
		}
		settlement, err := DecodeSettleLog(vLog)
		if err != nil {
			log.Printf("[warn] decode Settle log tx=%s idx=%d: %v", vLog.TxHash.Hex(), vLog.Index, err)
			continue
		}
		out = append(out, *settlement)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}
