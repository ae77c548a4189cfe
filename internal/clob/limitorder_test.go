package clob

import (
	"math/big"
	"testing"
)

func TestComputeLimitOrderAmounts_Buy(t *testing.T) {
	priceScale := big.NewInt(100) // tick=0.01
	priceTicks := big.NewInt(45)  // $0.45
	sizeUnits := big.NewInt(10_000_000)

	maker, taker, err := computeLimitOrderAmounts(SideBuy, sizeUnits, priceTicks, priceScale)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// BUY: maker = 10 * 0.45 = $4.50 of collateral, taker = 10 shares.
	if maker.Cmp(big.NewInt(4_500_000)) != 0 {
		t.Fatalf("maker mismatch: got %s want 4500000", maker.String())
	}
	if taker.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("taker mismatch: got %s want 10000000", taker.String())
	}
}

func TestComputeLimitOrderAmounts_Sell(t *testing.T) {
	priceScale := big.NewInt(100)
	priceTicks := big.NewInt(45)
	sizeUnits := big.NewInt(10_000_000)

	maker, taker, err := computeLimitOrderAmounts(SideSell, sizeUnits, priceTicks, priceScale)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if maker.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("maker mismatch: got %s want 10000000", maker.String())
	}
	if taker.Cmp(big.NewInt(4_500_000)) != 0 {
		t.Fatalf("taker mismatch: got %s want 4500000", taker.String())
	}
}

func TestComputeLimitOrderAmounts_FloorsSizeToTwoDecimals(t *testing.T) {
	priceScale := big.NewInt(100)
	priceTicks := big.NewInt(50) // $0.50
	sizeUnits := big.NewInt(1_239_999)

	maker, taker, err := computeLimitOrderAmounts(SideBuy, sizeUnits, priceTicks, priceScale)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 1.239999 shares floors to 1.23; collateral = 1.23 * 0.50 = 0.615.
	if taker.Cmp(big.NewInt(1_230_000)) != 0 {
		t.Fatalf("taker mismatch: got %s want 1230000", taker.String())
	}
	if maker.Cmp(big.NewInt(615_000)) != 0 {
		t.Fatalf("maker mismatch: got %s want 615000", maker.String())
	}
}

func TestComputeLimitOrderAmounts_RejectsZeroInputs(t *testing.T) {
	scale := big.NewInt(100)
	if _, _, err := computeLimitOrderAmounts(SideBuy, big.NewInt(0), big.NewInt(45), scale); err == nil {
		t.Fatalf("expected error for zero size")
	}
	if _, _, err := computeLimitOrderAmounts(SideBuy, big.NewInt(1_000_000), big.NewInt(0), scale); err == nil {
		t.Fatalf("expected error for zero price")
	}
	if _, _, err := computeLimitOrderAmounts(Side("HOLD"), big.NewInt(1_000_000), big.NewInt(45), scale); err == nil {
		t.Fatalf("expected error for invalid side")
	}
}

func TestComputeLimitOrderAmounts_TinySizeRoundsToZero(t *testing.T) {
	// 0.005 shares rounds to zero at 2 decimals.
	if _, _, err := computeLimitOrderAmounts(SideBuy, big.NewInt(5_000), big.NewInt(45), big.NewInt(100)); err == nil {
		t.Fatalf("expected error when size floors to zero")
	}
}
