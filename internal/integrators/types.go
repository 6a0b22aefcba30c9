// Package integrators provides ODE steppers over complex state vectors.
package integrators

import "fmt"

// Derivative evaluates dy/dt at the exact time t, writing into dst. The
// closure captures the (possibly time-dependent) generator; implementations
// must not retain y or dst.
type Derivative func(t float64, y, dst []complex128)

// Options controls adaptive stepping.
type Options struct {
	RTol        float64
	ATol        float64
	InitialStep float64
	MinStep     float64
	MaxStep     float64
	// MaxRetries bounds how many times a single step may shrink and retry
	// before the integration fails.
	MaxRetries int
}

// DefaultOptions returns the stepper defaults.
func DefaultOptions() Options {
	return Options{
		RTol:        1e-8,
		ATol:        1e-10,
		InitialStep: 1e-3,
		MinStep:     1e-12,
		MaxStep:     0.1,
		MaxRetries:  16,
	}
}

func (o Options) validate() error {
	if o.RTol <= 0 || o.ATol <= 0 {
		return fmt.Errorf("integrators: tolerances must be positive, got rtol=%g atol=%g", o.RTol, o.ATol)
	}
	if o.InitialStep <= 0 || o.MinStep <= 0 || o.MaxStep <= 0 {
		return fmt.Errorf("integrators: step bounds must be positive")
	}
	return nil
}

// Stats accumulates stepper diagnostics across one integration.
type Stats struct {
	Steps    int
	Rejected int
	LastStep float64
}

// NonConvergenceError reports that the local error estimate could not be
// brought under tolerance within the step-size bounds.
type NonConvergenceError struct {
	T       float64 // last good time
	Dt      float64 // attempted step size
	Retries int
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("integrators: no convergence at t=%.6g (attempted dt=%.3g after %d retries)",
		e.T, e.Dt, e.Retries)
}
