package wallet

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	calls   []ethereum.CallMsg
	returns [][]byte
	err     error
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.calls) - 1
	if i < len(f.returns) {
		return f.returns[i], nil
	}
	return nil, nil
}

func uint256Bytes(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func TestReader_BalanceMicros(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	caller := &fakeCaller{returns: [][]byte{uint256Bytes(big.NewInt(12_345_678))}}
	r := NewReader(caller)

	got, err := r.BalanceMicros(context.Background(), owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got != 12_345_678 {
		t.Fatalf("balance: got %d want 12345678", got)
	}

	call := caller.calls[0]
	if call.To == nil || *call.To != USDCAddress {
		t.Fatalf("call target: %v", call.To)
	}
	if len(call.Data) != 4+32 {
		t.Fatalf("calldata length: %d", len(call.Data))
	}
}

func TestReader_BalanceMicros_RejectsZeroOwner(t *testing.T) {
	r := NewReader(&fakeCaller{})
	if _, err := r.BalanceMicros(context.Background(), common.Address{}); err == nil {
		t.Fatalf("expected error for zero owner")
	}
}

func TestReader_ExchangeAllowancesMicros_SaturatesUnlimited(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	unlimited := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	caller := &fakeCaller{returns: [][]byte{
		uint256Bytes(big.NewInt(5_000_000)),
		uint256Bytes(unlimited),
	}}
	r := NewReader(caller)

	allowances, err := r.ExchangeAllowancesMicros(context.Background(), owner)
	if err != nil {
		t.Fatalf("allowances: %v", err)
	}
	if allowances[CTFExchangeAddress] != 5_000_000 {
		t.Fatalf("ctf allowance: got %d", allowances[CTFExchangeAddress])
	}
	if allowances[NegRiskExchangeAddress] != math.MaxUint64 {
		t.Fatalf("unlimited allowance must saturate, got %d", allowances[NegRiskExchangeAddress])
	}
	if len(caller.calls) != 2 {
		t.Fatalf("calls: got %d want 2", len(caller.calls))
	}
}

func TestFormatMicros(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0"},
		{1_000_000, "1"},
		{1_500_000, "1.5"},
		{12_345_678, "12.345678"},
		{10, "0.00001"},
	}
	for _, tc := range cases {
		if got := FormatMicros(tc.in); got != tc.want {
			t.Fatalf("FormatMicros(%d): got %q want %q", tc.in, got, tc.want)
		}
	}
}
