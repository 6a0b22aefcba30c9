package integrators

// RK4 is the classical fixed-step fourth-order Runge-Kutta stepper, kept for
// cross-checks and benchmarks against the adaptive stepper.
type RK4 struct {
	k1, k2, k3, k4, ytmp []complex128
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) grow(n int) {
	if len(r.k1) >= n {
		return
	}
	r.k1 = make([]complex128, n)
	r.k2 = make([]complex128, n)
	r.k3 = make([]complex128, n)
	r.k4 = make([]complex128, n)
	r.ytmp = make([]complex128, n)
}

// Step advances y in place by one step of size dt.
func (r *RK4) Step(d Derivative, y []complex128, t, dt float64) {
	n := len(y)
	r.grow(n)
	h := complex(dt, 0)
	half := complex(dt/2, 0)

	d(t, y, r.k1)
	for i := 0; i < n; i++ {
		r.ytmp[i] = y[i] + half*r.k1[i]
	}
	d(t+dt/2, r.ytmp, r.k2)
	for i := 0; i < n; i++ {
		r.ytmp[i] = y[i] + half*r.k2[i]
	}
	d(t+dt/2, r.ytmp, r.k3)
	for i := 0; i < n; i++ {
		r.ytmp[i] = y[i] + h*r.k3[i]
	}
	d(t+dt, r.ytmp, r.k4)
	for i := 0; i < n; i++ {
		y[i] += h / 6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}
