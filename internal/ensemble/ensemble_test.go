package ensemble_test

import (
	"context"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/qsimlab/qsim/internal/ensemble"
	"github.com/qsimlab/qsim/internal/quant"
	"github.com/qsimlab/qsim/internal/solver"
)

// dampedQubit returns the pieces of a qubit decaying at rate gamma from
// the excited state, with the excited-state population as observable.
func dampedQubit(gamma float64) (h []solver.Term, cops []solver.Term, psi0 *quant.Qobj, eops []*quant.Qobj) {
	sm := quant.SigmaM().Scale(complex(math.Sqrt(gamma), 0))
	num, err := quant.SigmaP().Mul(quant.SigmaM())
	if err != nil {
		panic(err)
	}
	excited, err := quant.Basis(2, 0)
	if err != nil {
		panic(err)
	}
	h = []solver.Term{solver.Const(quant.SigmaZ().Scale(0.5))}
	cops = []solver.Term{solver.Const(sm)}
	return h, cops, excited, []*quant.Qobj{num}
}

func span(t0, t1 float64, n int) []float64 {
	out := make([]float64, n)
	step := (t1 - t0) / float64(n-1)
	for i := range out {
		out[i] = t0 + float64(i)*step
	}
	out[n-1] = t1
	return out
}

var _ = Describe("Run", func() {
	var (
		ctx   context.Context
		tlist []float64
	)

	BeforeEach(func() {
		ctx = context.Background()
		tlist = span(0, 2, 21)
	})

	It("reproduces exponential decay within the standard error", func() {
		gamma := 0.5
		h, cops, psi0, eops := dampedQubit(gamma)

		opts := ensemble.DefaultOptions()
		opts.NTraj = 400
		opts.Seed = 1234
		opts.Workers = 4

		res, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Completed).To(Equal(400))
		Expect(res.Failed).To(BeZero())

		for j, t := range tlist {
			want := math.Exp(-gamma * t)
			got := real(res.Mean[0][j])
			tol := 5*res.StdErrRe[0][j] + 1e-3
			Expect(got).To(BeNumerically("~", want, tol),
				"population at t=%g", t)
		}
	})

	It("is deterministic for a fixed seed and worker count", func() {
		h, cops, psi0, eops := dampedQubit(1.0)

		opts := ensemble.DefaultOptions()
		opts.NTraj = 50
		opts.Seed = 99
		opts.Workers = 3

		a, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).NotTo(HaveOccurred())
		b, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).NotTo(HaveOccurred())

		for j := range tlist {
			Expect(b.Mean[0][j]).To(Equal(a.Mean[0][j]))
		}
		Expect(b.Jumps).To(Equal(a.Jumps))
	})

	It("gives the same average regardless of worker count, up to rounding", func() {
		h, cops, psi0, eops := dampedQubit(1.0)

		opts := ensemble.DefaultOptions()
		opts.NTraj = 60
		opts.Seed = 7

		opts.Workers = 1
		a, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).NotTo(HaveOccurred())

		opts.Workers = 5
		b, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).NotTo(HaveOccurred())

		for j := range tlist {
			Expect(cmplx.Abs(b.Mean[0][j]-a.Mean[0][j])).To(BeNumerically("<", 1e-12))
		}
	})

	It("reports progress for every trajectory", func() {
		h, cops, psi0, eops := dampedQubit(1.0)

		var events int
		var last ensemble.Event
		opts := ensemble.DefaultOptions()
		opts.NTraj = 20
		opts.Workers = 2
		opts.Progress = func(e ensemble.Event) {
			events++
			last = e
		}

		_, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal(20))
		Expect(last.Completed + last.Failed).To(Equal(20))
		Expect(last.Total).To(Equal(20))
	})

	It("stops at a trajectory boundary when cancelled", func() {
		h, cops, psi0, eops := dampedQubit(1.0)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		opts := ensemble.DefaultOptions()
		opts.NTraj = 10
		opts.Workers = 2

		res, err := ensemble.Run(cctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res).NotTo(BeNil())
		Expect(res.Completed).To(BeZero())
	})

	It("keeps already-completed trajectories when cancelled mid-run", func() {
		h, cops, psi0, eops := dampedQubit(1.0)

		cctx, cancel := context.WithCancel(ctx)
		opts := ensemble.DefaultOptions()
		opts.NTraj = 200
		opts.Workers = 2
		opts.Seed = 11
		opts.Progress = func(e ensemble.Event) {
			if e.Completed >= 20 {
				cancel()
			}
		}

		res, err := ensemble.Run(cctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res).NotTo(BeNil())
		Expect(res.Completed).To(BeNumerically(">=", 20))
		Expect(res.Completed).To(BeNumerically("<", 200))

		// The partial aggregate still tracks the analytic decay, loosely.
		mid := len(tlist) / 2
		want := math.Exp(-tlist[mid])
		Expect(real(res.Mean[0][mid])).To(BeNumerically("~", want, 0.4))
	})

	It("fails loudly when every trajectory fails", func() {
		h, cops, psi0, eops := dampedQubit(1.0)
		h[0] = solver.Const(quant.SigmaZ().Scale(5e5))

		opts := ensemble.DefaultOptions()
		opts.NTraj = 8
		opts.Workers = 2
		opts.Solver.InitialStep = 0.1
		opts.Solver.MinStep = 0.1
		opts.Solver.RTol = 1e-14
		opts.Solver.MaxRetries = 2

		res, err := ensemble.Run(ctx, h, cops, psi0, tlist, eops, opts)
		Expect(err).To(MatchError(ensemble.ErrAllTrajectoriesFailed))
		Expect(res).NotTo(BeNil())
		Expect(res.Completed).To(BeZero())
		Expect(res.Failed).To(Equal(8))
	})

	It("rejects a run with no observables", func() {
		h, cops, psi0, _ := dampedQubit(1.0)
		opts := ensemble.DefaultOptions()
		opts.NTraj = 2
		_, err := ensemble.Run(ctx, h, cops, psi0, tlist, nil, opts)
		Expect(err).To(HaveOccurred())
	})
})
