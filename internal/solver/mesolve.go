package solver

import (
	"context"

	"github.com/qsimlab/qsim/internal/integrators"
	"github.com/qsimlab/qsim/internal/quant"
)

// tdSuper is a prebuilt superoperator whose scalar coefficient is evaluated
// at every derivative call.
type tdSuper struct {
	op    *quant.Qobj
	coeff Coeff
}

// commutatorSuper builds -i(SPre(H) - SPost(H)) for one Hamiltonian term.
func commutatorSuper(h *quant.Qobj) (*quant.Qobj, error) {
	pre, err := quant.SPre(h)
	if err != nil {
		return nil, err
	}
	post, err := quant.SPost(h)
	if err != nil {
		return nil, err
	}
	comm, err := pre.Sub(post)
	if err != nil {
		return nil, err
	}
	return comm.Scale(complex(0, -1)), nil
}

// MESolve evolves a density matrix under the Lindblad master equation. The
// generator is assembled once as superoperators on the column-stacked state:
// the constant part becomes a single Liouvillian, and each time-dependent
// term keeps its own prebuilt superoperator whose coefficient is evaluated
// at the exact sub-step times. A ket initial state is promoted with Ket2DM.
func MESolve(ctx context.Context, h []Term, cops []Term, rho0 *quant.Qobj, tlist []float64, eops []*quant.Qobj, opts Options) (*Result, error) {
	if rho0 == nil {
		return nil, ErrBadState
	}
	if rho0.Kind() == quant.Ket {
		dm, err := quant.Ket2DM(rho0)
		if err != nil {
			return nil, err
		}
		rho0 = dm
	}
	if rho0.Kind() != quant.Oper || !rho0.IsSquare() {
		return nil, ErrBadState
	}
	if len(h) == 0 && len(cops) == 0 {
		return nil, ErrEmptyGenerator
	}
	dims := rho0.RowDims()
	if err := validateTimes(tlist); err != nil {
		return nil, err
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateTerms(h, dims, "Hamiltonian"); err != nil {
		return nil, err
	}
	if err := validateTerms(cops, dims, "collapse"); err != nil {
		return nil, err
	}
	if err := validateEOps(eops, dims); err != nil {
		return nil, err
	}

	hConst, hTD, err := combineConstant(h)
	if err != nil {
		return nil, err
	}
	var constCops []*quant.Qobj
	var copTD []Term
	for _, tm := range cops {
		if tm.constant() {
			constCops = append(constCops, tm.Op)
		} else {
			copTD = append(copTD, tm)
		}
	}

	var l0 *quant.Qobj
	if hConst != nil || len(constCops) > 0 {
		l0, err = quant.Liouvillian(hConst, constCops)
		if err != nil {
			return nil, err
		}
	}
	var td []tdSuper
	for _, tm := range hTD {
		s, err := commutatorSuper(tm.Op)
		if err != nil {
			return nil, err
		}
		td = append(td, tdSuper{op: s, coeff: tm.Coeff})
	}
	for _, tm := range copTD {
		s, err := quant.LindbladDissipator(tm.Op)
		if err != nil {
			return nil, err
		}
		g := tm.Coeff
		// A time-dependent collapse operator g(t)C contributes |g(t)|^2 D[C].
		td = append(td, tdSuper{op: s, coeff: func(t float64) complex128 {
			z := g(t)
			return complex(real(z)*real(z)+imag(z)*imag(z), 0)
		}})
	}

	vq, err := quant.Vectorize(rho0)
	if err != nil {
		return nil, err
	}
	y := vq.DenseSlice()
	scratch := make([]complex128, len(y))

	deriv := func(t float64, y, dst []complex128) {
		if l0 != nil {
			l0.MatVec(y, dst)
		} else {
			zero(dst)
		}
		for _, s := range td {
			s.op.MatVec(y, scratch)
			c := s.coeff(t)
			for i := range dst {
				dst[i] += c * scratch[i]
			}
		}
	}

	res := newResult(tlist, len(eops), opts.StoreStates)
	record := func(y []complex128) error {
		for k, e := range eops {
			res.Expect[k] = append(res.Expect[k], quant.ExpectSuperVec(e, y))
		}
		if res.States != nil {
			rho, err := quant.DevectorizeSlice(y, dims)
			if err != nil {
				return err
			}
			res.States = append(res.States, rho)
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
		Msg("mesolve completed")
	return res, nil
}
