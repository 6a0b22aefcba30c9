package metrics

import (
	"math"
	"testing"

	"github.com/qsimlab/qsim/internal/quant"
)

func mixedState(t *testing.T) *quant.Qobj {
	t.Helper()
	rho, err := quant.New([]int{2}, []int{2}, []complex128{0.5, 0, 0, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	return rho
}

func pureState(t *testing.T) *quant.Qobj {
	t.Helper()
	zero, err := quant.Basis(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	one, err := quant.Basis(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	plus, err := zero.Add(one)
	if err != nil {
		t.Fatal(err)
	}
	rho, err := quant.Ket2DM(plus.Unit())
	if err != nil {
		t.Fatal(err)
	}
	return rho
}

func TestPurity(t *testing.T) {
	if got := Purity(pureState(t)); math.Abs(got-1) > 1e-12 {
		t.Errorf("pure state purity = %g, want 1", got)
	}
	if got := Purity(mixedState(t)); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("maximally mixed purity = %g, want 0.5", got)
	}
}

func TestCoherence(t *testing.T) {
	if got := Coherence(pureState(t)); math.Abs(got-1) > 1e-12 {
		t.Errorf("plus state coherence = %g, want 1", got)
	}
	if got := Coherence(mixedState(t)); got > 1e-12 {
		t.Errorf("mixed state coherence = %g, want 0", got)
	}
}

func TestTraceError(t *testing.T) {
	if got := TraceError(pureState(t)); got > 1e-12 {
		t.Errorf("trace error = %g, want 0", got)
	}
	leaky := pureState(t).Scale(0.9)
	if got := TraceError(leaky); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("trace error = %g, want 0.1", got)
	}
}

func TestPurityDrift(t *testing.T) {
	var drift PurityDrift
	drift.Observe(pureState(t))
	drift.Observe(pureState(t))
	if drift.Value() != 0 {
		t.Errorf("drift between identical states = %g", drift.Value())
	}

	drift.Observe(mixedState(t))
	if math.Abs(drift.Value()-0.5) > 1e-12 {
		t.Errorf("drift after decohering = %g, want 0.5", drift.Value())
	}

	drift.Reset()
	if drift.Value() != 0 {
		t.Error("reset did not clear drift")
	}
}
