package clob

import (
	"fmt"
	"math/big"
	"strings"
)

// On-chain amounts are 1e6-scale integers (USDC / CTF share decimals).
const collateralTokenDecimals = 6

type roundConfig struct {
	price  int
	size   int
	amount int
}

var roundingConfigByTickSize = map[string]roundConfig{
	"0.1":    {price: 1, size: 2, amount: 3},
	"0.01":   {price: 2, size: 2, amount: 4},
	"0.001":  {price: 3, size: 2, amount: 5},
	"0.0001": {price: 4, size: 2, amount: 6},
}

func tickScaleFromTickSize(tickSize string) (*big.Int, int, error) {
	tickSize = strings.TrimSpace(tickSize)
	rc, ok := roundingConfigByTickSize[tickSize]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported tickSize %q", tickSize)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(rc.price)), nil)
	return scale, rc.price, nil
}

// parseDecimalToUnits converts a non-negative decimal string into an integer
// at the given number of decimals, truncating extra precision.
func parseDecimalToUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty decimal string")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative not supported: %q", s)
	}

	parts := strings.SplitN(s, ".", 3)
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid decimal: %q", s)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	for len(frac) < decimals {
		frac += "0"
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("invalid whole part: %q", s)
	}
	w.Mul(w, base)

	if frac != "" {
		f, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, fmt.Errorf("invalid fractional part: %q", s)
		}
		w.Add(w, f)
	}
	return w, nil
}

// formatDecimalUnits renders units back into a decimal string at the given
// number of decimals, trimming trailing zeros.
func formatDecimalUnits(units *big.Int, decimals int) string {
	if units == nil {
		return "0"
	}
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(units, base, frac)

	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := frac.String()
	for len(fracStr) < decimals {
		fracStr = "0" + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.String() + "." + fracStr
}

var roundDownStepByKeepDecimals = [collateralTokenDecimals + 1]*big.Int{
	0: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-0), nil),
	1: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-1), nil),
	2: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-2), nil),
	3: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-3), nil),
	4: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-4), nil),
	5: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-5), nil),
	6: new(big.Int).Exp(big.NewInt(10), big.NewInt(collateralTokenDecimals-6), nil),
}

func roundDownUnits(units *big.Int, keepDecimals int) *big.Int {
	if units == nil {
		return nil
	}
	if keepDecimals >= collateralTokenDecimals {
		return new(big.Int).Set(units)
	}
	if keepDecimals < 0 {
		keepDecimals = 0
	}
	step := roundDownStepByKeepDecimals[keepDecimals]

	q := new(big.Int).Div(units, step)
	q.Mul(q, step)
	return q
}
