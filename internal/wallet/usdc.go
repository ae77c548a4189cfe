// Package wallet reads on-chain USDC balances and exchange allowances, used
// as a pre-flight check before live trading is enabled.
package wallet

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const USDCDecimals = 6

// Polygon mainnet addresses.
var (
	USDCAddress = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")

	// Exchange contracts that must be approved to spend USDC before orders
	// can settle.
	CTFExchangeAddress     = common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	NegRiskExchangeAddress = common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")
)

var (
	erc20BalanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	erc20AllowanceSelector = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
)

// ContractCaller is the slice of the RPC surface this package needs.
// Satisfied by *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader answers balance and allowance queries against one RPC connection.
type Reader struct {
	client ContractCaller
}

func NewReader(client ContractCaller) *Reader {
	return &Reader{client: client}
}

// BalanceMicros returns the owner's USDC balance in 1e6 units.
func (r *Reader) BalanceMicros(ctx context.Context, owner common.Address) (uint64, error) {
	if (owner == common.Address{}) {
		return 0, fmt.Errorf("owner address missing")
	}

	data := make([]byte, 0, 4+32)
	data = append(data, erc20BalanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	bal, err := r.callUint256(ctx, USDCAddress, data)
	if err != nil {
		return 0, fmt.Errorf("usdc balanceOf(%s): %w", owner.Hex(), err)
	}
	if !bal.IsUint64() {
		return 0, fmt.Errorf("usdc balance overflows uint64")
	}
	return bal.Uint64(), nil
}

// ExchangeAllowancesMicros returns the owner's USDC allowance toward each
// exchange contract. Unlimited allowances saturate to MaxUint64.
func (r *Reader) ExchangeAllowancesMicros(ctx context.Context, owner common.Address) (map[common.Address]uint64, error) {
	if (owner == common.Address{}) {
		return nil, fmt.Errorf("owner address missing")
	}

	spenders := []common.Address{CTFExchangeAddress, NegRiskExchangeAddress}
	out := make(map[common.Address]uint64, len(spenders))
	for _, sp := range spenders {
		data := make([]byte, 0, 4+32+32)
		data = append(data, erc20AllowanceSelector...)
		data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
		data = append(data, common.LeftPadBytes(sp.Bytes(), 32)...)

		a, err := r.callUint256(ctx, USDCAddress, data)
		if err != nil {
			return nil, fmt.Errorf("usdc allowance(%s,%s): %w", owner.Hex(), sp.Hex(), err)
		}
		// Allowances are commonly max(uint256); saturate so callers can still
		// compare against order notionals.
		out[sp] = uint64FromUint256Saturating(a)
	}
	return out, nil
}

func (r *Reader) callUint256(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty result")
	}
	return new(big.Int).SetBytes(out), nil
}

func uint64FromUint256Saturating(x *big.Int) uint64 {
	if x == nil || x.Sign() <= 0 {
		return 0
	}
	if x.IsUint64() {
		return x.Uint64()
	}
	return math.MaxUint64
}

// FormatMicros renders a 1e6-scale amount as a decimal string.
func FormatMicros(m uint64) string {
	whole := m / 1_000_000
	frac := m % 1_000_000
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	fs := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, fs)
}
