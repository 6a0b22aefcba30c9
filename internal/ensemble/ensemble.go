// Package ensemble runs batches of Monte Carlo trajectories in parallel
// and aggregates their expectation-value series into means with standard
// errors. Aggregation is deterministic for a fixed root seed and worker
// count: trajectory i always consumes the same RNG stream, and partial
// results merge in worker order.
package ensemble

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/qsimlab/qsim/internal/quant"
	"github.com/qsimlab/qsim/internal/solver"
)

// Event reports one finished trajectory to the progress callback.
type Event struct {
	Completed int
	Failed    int
	Total     int

	// FinalExpect holds the trajectory's expectation values at the last
	// output time, one per observable. Nil for failed trajectories.
	FinalExpect []complex128
}

// Options controls one ensemble run.
type Options struct {
	NTraj   int
	Workers int // 0 means runtime.NumCPU()
	Seed    int64

	// Progress, when non-nil, is called after every trajectory. Calls are
	// serialized; the callback must not block for long.
	Progress func(Event)

	Solver solver.Options
	Logger zerolog.Logger
}

// DefaultOptions returns ensemble defaults with solver defaults embedded.
func DefaultOptions() Options {
	return Options{
		NTraj:  500,
		Seed:   1,
		Solver: solver.DefaultOptions(),
		Logger: zerolog.Nop(),
	}
}

// Result aggregates an ensemble of trajectories.
type Result struct {
	Times []float64

	// Mean[k][j] is the trajectory-averaged expectation of observable k
	// at time j. StdErr carries the standard error of that mean, per
	// real and imaginary part.
	Mean     [][]complex128
	StdErrRe [][]float64
	StdErrIm [][]float64

	Completed int
	Failed    int
	Jumps     int
}

type workerAcc struct {
	grid   [][]welford // nObs x nT
	failed int
	jumps  int
}

func newWorkerAcc(nObs, nT int) *workerAcc {
	g := make([][]welford, nObs)
	for k := range g {
		g[k] = make([]welford, nT)
	}
	return &workerAcc{grid: g}
}

// ErrAllTrajectoriesFailed reports an ensemble in which no trajectory
// completed, so the aggregate carries no statistics.
var ErrAllTrajectoriesFailed = errors.New("ensemble: all trajectories failed")

// Run evolves opts.NTraj Monte Carlo trajectories of the given system and
// averages their expectation values. Failed trajectories are excluded
// from the average and counted in Result.Failed; if every trajectory
// fails, Run returns the counts alongside ErrAllTrajectoriesFailed.
// Cancellation is observed at trajectory boundaries and returns the
// aggregate of the trajectories completed so far alongside ctx.Err().
func Run(ctx context.Context, h []solver.Term, cops []solver.Term, psi0 *quant.Qobj, tlist []float64, eops []*quant.Qobj, opts Options) (*Result, error) {
	if opts.NTraj <= 0 {
		opts.NTraj = 1
	}
	if opts.NTraj > maxStreams {
		return nil, ErrSeedExhaustion
	}
	if len(eops) == 0 {
		return nil, solver.ErrBadState
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > opts.NTraj {
		workers = opts.NTraj
	}

	seeds := NewSeedSequence(opts.Seed)
	nT := len(tlist)
	nObs := len(eops)

	accs := make([]*workerAcc, workers)
	errs := make([]error, workers)

	var progressMu sync.Mutex
	completed, failed := 0, 0
	report := func(fe []complex128) {
		progressMu.Lock()
		if fe != nil {
			completed++
		} else {
			failed++
		}
		if opts.Progress != nil {
			opts.Progress(Event{Completed: completed, Failed: failed, Total: opts.NTraj, FinalExpect: fe})
		}
		progressMu.Unlock()
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			acc := newWorkerAcc(nObs, nT)
			accs[w] = acc
			for i := w; i < opts.NTraj; i += workers {
				select {
				case <-ctx.Done():
					errs[w] = ctx.Err()
					return
				default:
				}
				seed, err := seeds.At(i)
				if err != nil {
					errs[w] = err
					return
				}
				rng := rand.New(rand.NewSource(seed))
				res, err := solver.MCSolve(ctx, h, cops, psi0, tlist, eops, rng, opts.Solver)
				if err != nil {
					if ctx.Err() != nil {
						errs[w] = ctx.Err()
						return
					}
					opts.Logger.Warn().Int("trajectory", i).Err(err).Msg("trajectory failed")
					acc.failed++
					report(nil)
					continue
				}
				for k := 0; k < nObs; k++ {
					for j := 0; j < nT; j++ {
						acc.grid[k][j].add(res.Expect[k][j])
					}
				}
				acc.jumps += res.Stats.Jumps
				fe := make([]complex128, nObs)
				for k := 0; k < nObs; k++ {
					fe[k] = res.Expect[k][nT-1]
				}
				report(fe)
			}
		}(w)
	}
	wg.Wait()

	var runErr error
	for _, err := range errs {
		if err != nil {
			runErr = err
			break
		}
	}

	// Merge in worker order so the reduction is reproducible.
	merged := newWorkerAcc(nObs, nT)
	for _, acc := range accs {
		if acc == nil {
			continue
		}
		for k := 0; k < nObs; k++ {
			for j := 0; j < nT; j++ {
				merged.grid[k][j].merge(acc.grid[k][j])
			}
		}
		merged.failed += acc.failed
		merged.jumps += acc.jumps
	}

	out := &Result{
		Times:     append([]float64(nil), tlist...),
		Mean:      make([][]complex128, nObs),
		StdErrRe:  make([][]float64, nObs),
		StdErrIm:  make([][]float64, nObs),
		Failed:    merged.failed,
		Completed: completed,
		Jumps:     merged.jumps,
	}
	for k := 0; k < nObs; k++ {
		out.Mean[k] = make([]complex128, nT)
		out.StdErrRe[k] = make([]float64, nT)
		out.StdErrIm[k] = make([]float64, nT)
		for j := 0; j < nT; j++ {
			w := &merged.grid[k][j]
			out.Mean[k][j] = w.mean
			if w.n > 1 {
				vr, vi := w.variance()
				out.StdErrRe[k][j] = math.Sqrt(vr / float64(w.n))
				out.StdErrIm[k][j] = math.Sqrt(vi / float64(w.n))
			}
		}
	}

	if runErr != nil {
		return out, runErr
	}
	if out.Completed == 0 {
		return out, ErrAllTrajectoriesFailed
	}

	opts.Logger.Info().
		Int("trajectories", opts.NTraj).
		Int("failed", out.Failed).
		Int("jumps", out.Jumps).
		Int("workers", workers).
		Msg("ensemble completed")
	return out, nil
}
