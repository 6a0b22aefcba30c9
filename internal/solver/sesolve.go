package solver

import (
	"context"
	"errors"

	"github.com/qsimlab/qsim/internal/integrators"
	"github.com/qsimlab/qsim/internal/quant"
)

func zero(dst []complex128) {
	for i := range dst {
		dst[i] = 0
	}
}

// combineConstant folds all constant terms into a single operator and
// returns it with the remaining time-dependent terms.
func combineConstant(terms []Term) (*quant.Qobj, []Term, error) {
	var constOp *quant.Qobj
	var td []Term
	for _, tm := range terms {
		if !tm.constant() {
			td = append(td, tm)
			continue
		}
		if constOp == nil {
			constOp = tm.Op
			continue
		}
		sum, err := constOp.Add(tm.Op)
		if err != nil {
			return nil, nil, err
		}
		constOp = sum
	}
	return constOp, td, nil
}

func wrapStepErr(err error) error {
	var nce *integrators.NonConvergenceError
	if errors.As(err, &nce) {
		return &SolverError{LastGoodTime: nce.T, AttemptedStep: nce.Dt, Wrapped: ErrNonConvergence}
	}
	return err
}

// SESolve evolves a pure state under the Schrodinger equation
// d|psi>/dt = -i H(t) |psi>, recording the state or the requested
// expectation values at each output time.
func SESolve(ctx context.Context, h []Term, psi0 *quant.Qobj, tlist []float64, eops []*quant.Qobj, opts Options) (*Result, error) {
	if psi0 == nil || psi0.Kind() != quant.Ket {
		return nil, ErrBadState
	}
	if len(h) == 0 {
		return nil, ErrEmptyGenerator
	}
	dims := psi0.RowDims()
	if err := validateTimes(tlist); err != nil {
		return nil, err
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateTerms(h, dims, "Hamiltonian"); err != nil {
		return nil, err
	}
	if err := validateEOps(eops, dims); err != nil {
		return nil, err
	}

	constOp, td, err := combineConstant(h)
	if err != nil {
		return nil, err
	}

	n, _ := psi0.Shape()
	y := psi0.DenseSlice()
	scratch := make([]complex128, n)
	tmp := make([]complex128, n)

	deriv := func(t float64, y, dst []complex128) {
		if constOp != nil {
			constOp.MatVec(y, dst)
		} else {
			zero(dst)
		}
		for _, tm := range td {
			tm.Op.MatVec(y, scratch)
			c := tm.Coeff(t)
			for i := range dst {
				dst[i] += c * scratch[i]
			}
		}
		for i := range dst {
			dst[i] *= -1i
		}
	}

	res := newResult(tlist, len(eops), opts.StoreStates)
	record := func(y []complex128) error {
		for k, e := range eops {
			res.Expect[k] = append(res.Expect[k], quant.ExpectVec(e, y, tmp))
		}
		if res.States != nil {
			st, err := quant.NewDense(dims, []int{1}, y)
			if err != nil {
				return err
			}
			res.States = append(res.States, st)
		}
		return nil
	}

	res.Stats.Status = StatusStepping
	if err := record(y); err != nil {
		res.Stats.Status = StatusFailed
		return res, err
	}

	rk := integrators.NewRK45()
	iopts := opts.integratorOptions()
	var ist integrators.Stats
	for i := 1; i < len(tlist); i++ {
		if err := rk.Integrate(ctx, deriv, y, tlist[i-1], tlist[i], iopts, &ist); err != nil {
			res.Stats.Status = StatusFailed
			res.Stats.Steps = ist.Steps
			res.Stats.Rejected = ist.Rejected
			res.Stats.LastTime = tlist[i-1]
			res.Stats.LastStep = ist.LastStep
			return res, wrapStepErr(err)
		}
		if err := record(y); err != nil {
			res.Stats.Status = StatusFailed
			return res, err
		}
		res.Stats.LastTime = tlist[i]
	}

	res.Stats.Steps = ist.Steps
	res.Stats.Rejected = ist.Rejected
	res.Stats.LastStep = ist.LastStep
	res.Stats.Status = StatusCompleted
	opts.Logger.Debug().
		Int("steps", ist.Steps).
		Int("rejected", ist.Rejected).
		Float64("t_final", res.Stats.LastTime).
		Msg("sesolve completed")
	return res, nil
}
