package solver

import (
	"context"
	"math/rand"

	"github.com/qsimlab/qsim/internal/integrators"
	"github.com/qsimlab/qsim/internal/quant"
)

type collapseChannel struct {
	op   *quant.Qobj
	cdc  *quant.Qobj // C^dag C
	rate func(t float64) float64
}

// MCSolve evolves one Monte Carlo wave-function trajectory. Between jumps
// the state drifts under the non-Hermitian effective Hamiltonian
// H_eff = H(t) - (i/2) sum_k |g_k(t)|^2 C_k^dag C_k. After each accepted
// internal step a uniform draw against the instantaneous total collapse
// probability decides whether a jump fires; the firing channel is picked
// from a cumulative-probability table with ties resolved toward the lower
// operator index. The state is renormalized after every accepted step, so
// the unravelling averages to the Lindblad density-matrix evolution.
func MCSolve(ctx context.Context, h []Term, cops []Term, psi0 *quant.Qobj, tlist []float64, eops []*quant.Qobj, rng *rand.Rand, opts Options) (*Result, error) {
	if psi0 == nil || psi0.Kind() != quant.Ket {
		return nil, ErrBadState
	}
	if len(h) == 0 && len(cops) == 0 {
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
	channels := make([]collapseChannel, len(cops))
	for k, tm := range cops {
		cdc, err := tm.Op.Dag().Mul(tm.Op)
		if err != nil {
			return nil, err
		}
		ch := collapseChannel{op: tm.Op, cdc: cdc}
		if tm.constant() {
			ch.rate = func(float64) float64 { return 1 }
		} else {
			g := tm.Coeff
			ch.rate = func(t float64) float64 {
				z := g(t)
				return real(z)*real(z) + imag(z)*imag(z)
			}
		}
		channels[k] = ch
	}

	n, _ := psi0.Shape()
	y := psi0.DenseSlice()
	renormalize(y)
	scratch := make([]complex128, n)
	tmp := make([]complex128, n)
	rates := make([]float64, len(channels))

	deriv := func(t float64, y, dst []complex128) {
		if hConst != nil {
			hConst.MatVec(y, dst)
		} else {
			zero(dst)
		}
		for _, tm := range hTD {
			tm.Op.MatVec(y, scratch)
			c := tm.Coeff(t)
			for i := range dst {
				dst[i] += c * scratch[i]
			}
		}
		for i := range dst {
			dst[i] *= -1i
		}
		for _, ch := range channels {
			ch.cdc.MatVec(y, scratch)
			g := complex(-0.5*ch.rate(t), 0)
			for i := range dst {
				dst[i] += g * scratch[i]
			}
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
	t := tlist[0]
	dt := opts.InitialStep

	for i := 1; i < len(tlist); i++ {
		tNext := tlist[i]
		for t < tNext {
			select {
			case <-ctx.Done():
				res.Stats.Status = StatusFailed
				res.Stats.Steps = ist.Steps
				res.Stats.LastTime = t
				return res, ctx.Err()
			default:
			}

			// Instantaneous jump rates from the normalized state.
			total := 0.0
			for k, ch := range channels {
				rates[k] = ch.rate(t) * real(quant.ExpectVec(ch.cdc, y, tmp))
				total += rates[k]
			}
			if total > 0 && dt*total > opts.MaxJumpProb {
				dt = opts.MaxJumpProb / total
			}

			tNew, dtNext, err := rk.StepOnce(deriv, y, t, dt, tNext, iopts, &ist)
			if err != nil {
				res.Stats.Status = StatusFailed
				res.Stats.Steps = ist.Steps
				res.Stats.Rejected = ist.Rejected
				res.Stats.LastTime = t
				res.Stats.LastStep = ist.LastStep
				return res, wrapStepErr(err)
			}

			if p := total * (tNew - t); p > 0 && rng.Float64() < p {
				// Cumulative-probability table; first channel whose
				// cumulative weight exceeds the draw fires.
				u := rng.Float64() * total
				which := len(channels) - 1
				cum := 0.0
				for k, r := range rates {
					cum += r
					if u < cum {
						which = k
						break
					}
				}
				channels[which].op.MatVec(y, scratch)
				copy(y, scratch)
				res.JumpTimes = append(res.JumpTimes, tNew)
				res.JumpOps = append(res.JumpOps, which)
				res.Stats.Jumps++
			}
			renormalize(y)
			t = tNew
			dt = dtNext
		}
		if err := record(y); err != nil {
			res.Stats.Status = StatusFailed
			return res, err
		}
		res.Stats.LastTime = t
	}

	res.Stats.Steps = ist.Steps
	res.Stats.Rejected = ist.Rejected
	res.Stats.LastStep = ist.LastStep
	res.Stats.Status = StatusCompleted
	opts.Logger.Debug().
		Int("steps", ist.Steps).
		Int("jumps", res.Stats.Jumps).
		Float64("t_final", res.Stats.LastTime).
		Msg("mcsolve trajectory completed")
	return res, nil
}
