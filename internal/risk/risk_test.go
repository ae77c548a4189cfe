package risk

import (
	"testing"

	"github.com/yskaaks/polymarket-bot/internal/signal"
)

func validSignal() *signal.Signal {
	return &signal.Signal{
		TokenID:    "tok",
		Edge:       0.10,
		Confidence: 0.99,
	}
}

func TestValidator_AcceptsGoodSignal(t *testing.T) {
	v := NewValidator(Limits{MinConfidence: 0.60, MinEdge: 0.02})
	if err := v.Check(validSignal()); err != nil {
		t.Fatalf("unexpected veto: %v", err)
	}
}

func TestValidator_Rejections(t *testing.T) {
	v := NewValidator(Limits{MinConfidence: 0.60, MinEdge: 0.02})

	lowConfidence := validSignal()
	lowConfidence.Confidence = 0.50
	if err := v.Check(lowConfidence); err == nil {
		t.Fatalf("expected veto for low confidence")
	}

	zeroEdge := validSignal()
	zeroEdge.Edge = 0
	if err := v.Check(zeroEdge); err == nil {
		t.Fatalf("expected veto for zero edge")
	}

	thinEdge := validSignal()
	thinEdge.Edge = 0.01
	if err := v.Check(thinEdge); err == nil {
		t.Fatalf("expected veto for edge below minimum")
	}

	noToken := validSignal()
	noToken.TokenID = ""
	if err := v.Check(noToken); err == nil {
		t.Fatalf("expected veto for missing token id")
	}

	if err := v.Check(nil); err == nil {
		t.Fatalf("expected veto for nil signal")
	}
}

func TestValidator_ZeroLimitsStillRejectNonPositiveEdge(t *testing.T) {
	v := NewValidator(Limits{})
	s := validSignal()
	s.Edge = -0.01
	if err := v.Check(s); err == nil {
		t.Fatalf("expected veto for negative edge")
	}
}
