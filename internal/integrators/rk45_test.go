package integrators

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

// rotation is dy/dt = -i*y with exact solution y(t) = y0*exp(-it).
func rotation(t float64, y, dst []complex128) {
	for i := range y {
		dst[i] = -1i * y[i]
	}
}

func TestRK45Accuracy(t *testing.T) {
	rk := NewRK45()
	y := []complex128{1}
	var st Stats
	opts := DefaultOptions()

	if err := rk.Integrate(context.Background(), rotation, y, 0, 2, opts, &st); err != nil {
		t.Fatalf("integrate: %v", err)
	}

	want := cmplx.Exp(-2i)
	if cmplx.Abs(y[0]-want) > 1e-6 {
		t.Errorf("y(2) = %v, want %v", y[0], want)
	}
	if st.Steps == 0 {
		t.Error("no steps recorded")
	}
}

func TestRK45NormPreservation(t *testing.T) {
	rk := NewRK45()
	y := []complex128{complex(1/math.Sqrt2, 0), complex(0, 1/math.Sqrt2)}
	var st Stats

	if err := rk.Integrate(context.Background(), rotation, y, 0, 10, DefaultOptions(), &st); err != nil {
		t.Fatalf("integrate: %v", err)
	}

	var norm float64
	for _, z := range y {
		norm += real(z)*real(z) + imag(z)*imag(z)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm after unitary evolution = %v, want 1", norm)
	}
}

func TestRK45AdaptsStep(t *testing.T) {
	// Fast rotation needs more steps than slow rotation over the same span.
	run := func(omega float64) int {
		rk := NewRK45()
		y := []complex128{1}
		var st Stats
		d := func(t float64, y, dst []complex128) {
			for i := range y {
				dst[i] = complex(0, -omega) * y[i]
			}
		}
		if err := rk.Integrate(context.Background(), d, y, 0, 1, DefaultOptions(), &st); err != nil {
			t.Fatalf("omega=%g: %v", omega, err)
		}
		return st.Steps
	}

	slow := run(1)
	fast := run(100)
	if fast <= slow {
		t.Errorf("steps: fast=%d slow=%d, expected more steps for faster dynamics", fast, slow)
	}
}

func TestRK45StopsExactlyAtT1(t *testing.T) {
	rk := NewRK45()
	y := []complex128{1}
	var st Stats
	var lastT float64
	d := func(t float64, y, dst []complex128) {
		if t > lastT {
			lastT = t
		}
		rotation(t, y, dst)
	}

	if err := rk.Integrate(context.Background(), d, y, 0, 0.7, DefaultOptions(), &st); err != nil {
		t.Fatal(err)
	}
	if lastT > 0.7+1e-12 {
		t.Errorf("derivative evaluated at t=%v beyond t1=0.7", lastT)
	}
}

func TestRK45BoundaryStepKeepsSuggestion(t *testing.T) {
	// Land a hair before the boundary, then take the capped residual step.
	// The suggested next step must reflect the error-controlled size, not
	// the ~1e-16 residual.
	rk := NewRK45()
	y := []complex128{1}
	var st Stats
	opts := DefaultOptions()

	tMax := 0.3
	t0 := tMax - 1e-14
	tNew, dtNext, err := rk.StepOnce(rotation, y, t0, 0.05, tMax, opts, &st)
	if err != nil {
		t.Fatalf("capped step: %v", err)
	}
	if math.Abs(tNew-tMax) > 1e-12 {
		t.Errorf("tNew = %v, want %v", tNew, tMax)
	}
	if dtNext < 0.05 {
		t.Errorf("dtNext after capped step = %g, want >= pre-cap 0.05", dtNext)
	}
}

func TestRK45CarriedStepCrossesGridBoundaries(t *testing.T) {
	// Drive StepOnce across consecutive output intervals, carrying the
	// suggested step between them as a caller-managed loop does. A boundary
	// residual must not poison the next interval below MinStep.
	rk := NewRK45()
	y := []complex128{1}
	var st Stats
	opts := DefaultOptions()
	opts.MinStep = 1e-12

	tlist := []float64{0, 0.6, 1.2, 1.8}
	tt := tlist[0]
	dt := opts.InitialStep
	for i := 1; i < len(tlist); i++ {
		for tt < tlist[i] {
			var err error
			tt, dt, err = rk.StepOnce(rotation, y, tt, dt, tlist[i], opts, &st)
			if err != nil {
				t.Fatalf("step at t=%v: %v", tt, err)
			}
		}
	}

	want := cmplx.Exp(complex(0, -1.8))
	if cmplx.Abs(y[0]-want) > 1e-6 {
		t.Errorf("y(1.8) = %v, want %v", y[0], want)
	}
}

func TestRK45NonConvergence(t *testing.T) {
	rk := NewRK45()
	y := []complex128{1}
	var st Stats

	opts := DefaultOptions()
	opts.InitialStep = 0.1
	opts.MinStep = 0.1
	opts.RTol = 1e-14
	opts.MaxRetries = 3

	err := rk.Integrate(context.Background(), func(t float64, y, dst []complex128) {
		for i := range y {
			dst[i] = complex(0, -1e6) * y[i]
		}
	}, y, 0, 1, opts, &st)

	var nce *NonConvergenceError
	if !errors.As(err, &nce) {
		t.Fatalf("err = %v, want NonConvergenceError", err)
	}
	if st.Rejected == 0 {
		t.Error("no rejected steps recorded")
	}
}

func TestRK45ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rk := NewRK45()
	y := []complex128{1}
	var st Stats
	err := rk.Integrate(ctx, rotation, y, 0, 1, DefaultOptions(), &st)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRK45ValidatesOptions(t *testing.T) {
	rk := NewRK45()
	y := []complex128{1}
	var st Stats
	opts := DefaultOptions()
	opts.RTol = 0
	if err := rk.Integrate(context.Background(), rotation, y, 0, 1, opts, &st); err == nil {
		t.Error("expected error for zero rtol")
	}
}
