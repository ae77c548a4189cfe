// Package risk gates signals before they reach execution.
package risk

import (
	"fmt"

	"github.com/yskaaks/polymarket-bot/internal/signal"
)

// Limits are the hard pre-trade checks. Zero values reject everything with a
// non-positive edge, which is the floor we never go below.
type Limits struct {
	MinConfidence float64
	MinEdge       float64
}

// Validator applies Limits to signals. It is stateless and safe for
// concurrent use.
type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Check returns nil when the signal may be traded. The edge check is strict:
// a zero-edge trade only pays fees.
func (v *Validator) Check(sig *signal.Signal) error {
	if sig == nil {
		return fmt.Errorf("nil signal")
	}
	if sig.Confidence < v.limits.MinConfidence {
		return fmt.Errorf("confidence %.2f below minimum %.2f", sig.Confidence, v.limits.MinConfidence)
	}
	if sig.Edge <= 0 {
		return fmt.Errorf("non-positive edge %.4f", sig.Edge)
	}
	if sig.Edge < v.limits.MinEdge {
		return fmt.Errorf("edge %.4f below minimum %.4f", sig.Edge, v.limits.MinEdge)
	}
	if sig.TokenID == "" {
		return fmt.Errorf("signal missing token id")
	}
	return nil
}
