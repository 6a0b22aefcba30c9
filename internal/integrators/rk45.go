package integrators

import (
	"context"
	"math"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is an adaptive Dormand-Prince 5(4) stepper. Instances own scratch
// buffers and are not safe for concurrent use; allocate one per trajectory.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	k1, k2, k3, k4, k5, k6, k7 []complex128
	ytmp, ynew                 []complex128
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) grow(n int) {
	if len(r.k1) >= n {
		return
	}
	r.k1 = make([]complex128, n)
	r.k2 = make([]complex128, n)
	r.k3 = make([]complex128, n)
	r.k4 = make([]complex128, n)
	r.k5 = make([]complex128, n)
	r.k6 = make([]complex128, n)
	r.k7 = make([]complex128, n)
	r.ytmp = make([]complex128, n)
	r.ynew = make([]complex128, n)
}

func cabs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}

// StepOnce advances y by one accepted step from t, never stepping past tMax.
// A rejected attempt shrinks the step and retries up to opts.MaxRetries
// times; exhausting the retry budget or the MinStep bound fails with
// NonConvergenceError. Returns the new time and the suggested next step.
func (r *RK45) StepOnce(d Derivative, y []complex128, t, dt, tMax float64, opts Options, st *Stats) (float64, float64, error) {
	n := len(y)
	r.grow(n)

	cdt := complex(0, 0)
	for retry := 0; ; retry++ {
		if dt > opts.MaxStep {
			dt = opts.MaxStep
		}
		capped := false
		want := dt
		if t+dt > tMax {
			dt = tMax - t
			capped = true
		}
		if dt < opts.MinStep && !capped {
			return t, dt, &NonConvergenceError{T: t, Dt: dt, Retries: retry}
		}
		cdt = complex(dt, 0)

		d(t, y, r.k1)
		for i := 0; i < n; i++ {
			r.ytmp[i] = y[i] + cdt*complex(b21, 0)*r.k1[i]
		}
		d(t+a2*dt, r.ytmp, r.k2)
		for i := 0; i < n; i++ {
			r.ytmp[i] = y[i] + cdt*(complex(b31, 0)*r.k1[i]+complex(b32, 0)*r.k2[i])
		}
		d(t+a3*dt, r.ytmp, r.k3)
		for i := 0; i < n; i++ {
			r.ytmp[i] = y[i] + cdt*(complex(b41, 0)*r.k1[i]+complex(b42, 0)*r.k2[i]+complex(b43, 0)*r.k3[i])
		}
		d(t+a4*dt, r.ytmp, r.k4)
		for i := 0; i < n; i++ {
			r.ytmp[i] = y[i] + cdt*(complex(b51, 0)*r.k1[i]+complex(b52, 0)*r.k2[i]+complex(b53, 0)*r.k3[i]+complex(b54, 0)*r.k4[i])
		}
		d(t+a5*dt, r.ytmp, r.k5)
		for i := 0; i < n; i++ {
			r.ytmp[i] = y[i] + cdt*(complex(b61, 0)*r.k1[i]+complex(b62, 0)*r.k2[i]+complex(b63, 0)*r.k3[i]+complex(b64, 0)*r.k4[i]+complex(b65, 0)*r.k5[i])
		}
		d(t+dt, r.ytmp, r.k6)
		for i := 0; i < n; i++ {
			r.ynew[i] = y[i] + cdt*(complex(c1, 0)*r.k1[i]+complex(c3, 0)*r.k3[i]+complex(c4, 0)*r.k4[i]+complex(c5, 0)*r.k5[i]+complex(c6, 0)*r.k6[i])
		}
		d(t+dt, r.ynew, r.k7)

		errMax := 0.0
		for i := 0; i < n; i++ {
			est := cabs(r.k1[i]*complex(dc1, 0)+r.k3[i]*complex(dc3, 0)+r.k4[i]*complex(dc4, 0)+r.k5[i]*complex(dc5, 0)+r.k6[i]*complex(dc6, 0)+r.k7[i]*complex(dc7, 0)) * dt
			scale := opts.ATol + cabs(y[i]) + dt*cabs(r.k1[i])
			if e := est / scale; e > errMax {
				errMax = e
			}
		}
		errRatio := errMax / opts.RTol

		if errRatio > 1 {
			st.Rejected++
			if retry >= opts.MaxRetries {
				return t, dt, &NonConvergenceError{T: t, Dt: dt, Retries: retry}
			}
			scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
			dt *= scale
			continue
		}

		copy(y, r.ynew)
		st.Steps++
		st.LastStep = dt

		var dtNext float64
		if errRatio > 0 {
			dtNext = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		} else {
			dtNext = dt * r.maxScale
		}
		// A step truncated at tMax says nothing about the error-controlled
		// step size; carry the pre-cap suggestion forward instead of the
		// boundary residual.
		if capped && dtNext < want {
			dtNext = want
		}
		if dtNext > opts.MaxStep {
			dtNext = opts.MaxStep
		}
		return t + dt, dtNext, nil
	}
}

// Integrate advances y in place from t0 to exactly t1, checking ctx between
// accepted steps.
func (r *RK45) Integrate(ctx context.Context, d Derivative, y []complex128, t0, t1 float64, opts Options, st *Stats) error {
	if err := opts.validate(); err != nil {
		return err
	}
	t := t0
	dt := math.Min(opts.InitialStep, t1-t0)
	for t < t1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		var err error
		t, dt, err = r.StepOnce(d, y, t, dt, t1, opts, st)
		if err != nil {
			return err
		}
	}
	return nil
}
