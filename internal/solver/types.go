// Package solver drives the equations of motion: Schrodinger, Lindblad
// master equation, and the Monte Carlo wave-function unravelling.
package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/qsimlab/qsim/internal/integrators"
	"github.com/qsimlab/qsim/internal/quant"
)

// Coeff is a time-dependent scalar coefficient, evaluated at the exact
// sub-step times requested by the stepper.
type Coeff func(t float64) complex128

// Term is one operator term of a generator: Op scaled by Coeff(t). A nil
// Coeff means the term is constant with coefficient 1.
type Term struct {
	Op    *quant.Qobj
	Coeff Coeff
}

// Const wraps a constant operator term.
func Const(op *quant.Qobj) Term { return Term{Op: op} }

func (tm Term) constant() bool { return tm.Coeff == nil }

// Status tracks the evolution state machine.
type Status int

const (
	StatusInitialized Status = iota
	StatusStepping
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusStepping:
		return "stepping"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Options controls one evolution call.
type Options struct {
	RTol        float64
	ATol        float64
	InitialStep float64
	MinStep     float64
	MaxStep     float64
	MaxRetries  int

	// StoreStates records the full state at each output time even when
	// expectation operators were supplied.
	StoreStates bool

	// MaxJumpProb caps the per-step total collapse probability in the
	// stochastic unravelling by shrinking the step.
	MaxJumpProb float64

	Logger zerolog.Logger
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{
		RTol:        1e-8,
		ATol:        1e-10,
		InitialStep: 1e-3,
		MinStep:     1e-12,
		MaxStep:     0.1,
		MaxRetries:  16,
		MaxJumpProb: 0.1,
		Logger:      zerolog.Nop(),
	}
}

func (o Options) integratorOptions() integrators.Options {
	return integrators.Options{
		RTol:        o.RTol,
		ATol:        o.ATol,
		InitialStep: o.InitialStep,
		MinStep:     o.MinStep,
		MaxStep:     o.MaxStep,
		MaxRetries:  o.MaxRetries,
	}
}

// Stats carries solver diagnostics for one evolution call.
type Stats struct {
	Steps    int
	Rejected int
	Jumps    int
	Status   Status
	LastTime float64
	LastStep float64
}

// Result is one evolution's output: the time grid, recorded states and/or
// expectation-value series (one row per observable), and diagnostics.
// Immutable once returned.
type Result struct {
	Times  []float64
	States []*quant.Qobj
	Expect [][]complex128

	// Jump record for the stochastic unravelling.
	JumpTimes []float64
	JumpOps   []int

	Stats Stats
}

// Validation and runtime errors.
var (
	// ErrInvalidTimeGrid indicates output times that are empty or not
	// strictly increasing.
	ErrInvalidTimeGrid = errors.New("solver: time grid must be non-empty and strictly increasing")

	// ErrNonConvergence indicates the stepper could not meet the requested
	// tolerance within its step-size bounds. Never downgraded; the caller
	// may retry with looser tolerances.
	ErrNonConvergence = errors.New("solver: stepper failed to converge")

	// ErrBadState indicates an initial state of the wrong kind for the
	// requested solver.
	ErrBadState = errors.New("solver: initial state has wrong kind")

	// ErrEmptyGenerator indicates neither Hamiltonian terms nor collapse
	// operators were supplied.
	ErrEmptyGenerator = errors.New("solver: empty generator")
)

// SolverError wraps a mid-integration failure with diagnostics.
type SolverError struct {
	LastGoodTime  float64
	AttemptedStep float64
	Wrapped       error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("%v (last good t=%.6g, attempted dt=%.3g)", e.Wrapped, e.LastGoodTime, e.AttemptedStep)
}

func (e *SolverError) Unwrap() error { return e.Wrapped }

func newResult(tlist []float64, nObs int, storeStates bool) *Result {
	res := &Result{
		Times: append([]float64(nil), tlist...),
		Stats: Stats{Status: StatusInitialized},
	}
	if nObs > 0 {
		res.Expect = make([][]complex128, nObs)
		for k := range res.Expect {
			res.Expect[k] = make([]complex128, 0, len(tlist))
		}
	}
	if nObs == 0 || storeStates {
		res.States = make([]*quant.Qobj, 0, len(tlist))
	}
	return res
}

func normVec(y []complex128) float64 {
	var sum float64
	for _, z := range y {
		sum += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(sum)
}

func renormalize(y []complex128) {
	n := normVec(y)
	if n == 0 {
		return
	}
	inv := complex(1/n, 0)
	for i := range y {
		y[i] *= inv
	}
}
