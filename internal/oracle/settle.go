package oracle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// SettleTopic is the event signature topic of the Optimistic Oracle's Settle
// event, emitted when a price request is finalized.
var SettleTopic = crypto.Keccak256Hash([]byte(
	"Settle(address,bytes32,uint32,bytes,address,address,address,int256,int256)",
))

// Settlement is one decoded Settle log. Immutable once fetched.
type Settlement struct {
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint

	Identifier   common.Hash
	ExpirationTs uint32

	Requester common.Address
	Proposer  common.Address
	Disputer  common.Address

	AncillaryData []byte

	// ResolvedPrice is the oracle's int256 answer, 1e18-scaled. A strictly
	// positive value encodes the first outcome.
	ResolvedPrice *big.Int
	SettledPrice  *big.Int
}

// DecodeSettleLog decodes a raw Settle log.
//
// topics:
//
//	0: event sig
//	1: currency (address indexed, unused here)
//	2: identifier (bytes32 indexed)
//	3: expirationTimestamp (uint32 indexed)
//
// data (ABI-encoded): bytes ancillaryData, address requester, address
// proposer, address disputer, int256 resolvedPrice, int256 settledPrice.
func DecodeSettleLog(vLog types.Log) (*Settlement, error) {
	if len(vLog.Topics) < 4 {
		return nil, fmt.Errorf("unexpected topics len=%d", len(vLog.Topics))
	}
	if len(vLog.Data) < 32*6 {
		return nil, fmt.Errorf("unexpected data len=%d", len(vLog.Data))
	}

	word := func(i int) []byte {
		return vLog.Data[i*32 : (i+1)*32]
	}

	ancillary, err := readDynamicBytes(vLog.Data, word(0))
	if err != nil {
		return nil, fmt.Errorf("decode ancillaryData: %w", err)
	}

	return &Settlement{
		TxHash:      vLog.TxHash,
		BlockNumber: vLog.BlockNumber,
		LogIndex:    vLog.Index,

		Identifier:   vLog.Topics[2],
		ExpirationTs: uint32(new(big.Int).SetBytes(vLog.Topics[3].Bytes()).Uint64()),

		Requester: common.BytesToAddress(word(1)),
		Proposer:  common.BytesToAddress(word(2)),
		Disputer:  common.BytesToAddress(word(3)),

		AncillaryData: ancillary,
		ResolvedPrice: readInt256(word(4)),
		SettledPrice:  readInt256(word(5)),
	}, nil
}

func readDynamicBytes(data []byte, offsetWord []byte) ([]byte, error) {
	off := new(big.Int).SetBytes(offsetWord)
	if !off.IsUint64() || off.Uint64()+32 > uint64(len(data)) {
		return nil, fmt.Errorf("offset %s out of range", off)
	}
	start := off.Uint64()

	length := new(big.Int).SetBytes(data[start : start+32])
	if !length.IsUint64() || start+32+length.Uint64() > uint64(len(data)) {
		return nil, fmt.Errorf("length %s out of range", length)
	}
	n := length.Uint64()

	out := make([]byte, n)
	copy(out, data[start+32:start+32+n])
	return out, nil
}

var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

func readInt256(word []byte) *big.Int {
	v := new(big.Int).SetBytes(word)
	if len(word) == 32 && word[0]&0x80 != 0 {
		v.Sub(v, twoTo256)
	}
	return v
}

// ParseAncillaryData decodes the free-form payload as UTF-8 on a best-effort
// basis, dropping bytes that do not decode. It never fails; a payload with no
// valid UTF-8 yields an empty string.
func ParseAncillaryData(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	return strings.ToValidUTF8(string(raw), "")
}
