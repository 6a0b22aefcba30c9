package solver

import (
	"fmt"

	"github.com/qsimlab/qsim/internal/quant"
)

// All validation happens eagerly at call entry, before any derivative
// evaluation, so invalid input never produces partial numerical work.

func validateTimes(tlist []float64) error {
	if len(tlist) == 0 {
		return ErrInvalidTimeGrid
	}
	for i := 1; i < len(tlist); i++ {
		if tlist[i] <= tlist[i-1] {
			return fmt.Errorf("%w: t[%d]=%g after t[%d]=%g", ErrInvalidTimeGrid, i, tlist[i], i-1, tlist[i-1])
		}
	}
	return nil
}

func validateOptions(o Options) error {
	if o.RTol <= 0 || o.ATol <= 0 {
		return fmt.Errorf("solver: tolerances must be positive, got rtol=%g atol=%g", o.RTol, o.ATol)
	}
	if o.InitialStep <= 0 || o.MinStep <= 0 || o.MaxStep <= 0 {
		return fmt.Errorf("solver: step bounds must be positive")
	}
	if o.MaxJumpProb <= 0 || o.MaxJumpProb >= 1 {
		return fmt.Errorf("solver: MaxJumpProb must be in (0,1), got %g", o.MaxJumpProb)
	}
	return nil
}

func validateTerms(terms []Term, dims []int, what string) error {
	for i, tm := range terms {
		if tm.Op == nil {
			return fmt.Errorf("solver: nil operator in %s term %d", what, i)
		}
		if !tm.Op.IsSquare() {
			return fmt.Errorf("%w: %s term %d", quant.ErrNotSquare, what, i)
		}
		if !dimsMatch(tm.Op.RowDims(), dims) {
			return fmt.Errorf("%w: %s term %d has dims %v, state has %v",
				quant.ErrDimensionMismatch, what, i, tm.Op.RowDims(), dims)
		}
	}
	return nil
}

func validateEOps(eops []*quant.Qobj, dims []int) error {
	for i, e := range eops {
		if e == nil {
			return fmt.Errorf("solver: nil expectation operator %d", i)
		}
		if !e.IsSquare() {
			return fmt.Errorf("%w: expectation operator %d", quant.ErrNotSquare, i)
		}
		if !dimsMatch(e.RowDims(), dims) {
			return fmt.Errorf("%w: expectation operator %d has dims %v, state has %v",
				quant.ErrDimensionMismatch, i, e.RowDims(), dims)
		}
	}
	return nil
}

func dimsMatch(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
