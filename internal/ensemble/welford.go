package ensemble

// welford accumulates a running mean and sum of squared deviations for
// one complex series point. Variance is tracked per real and imaginary
// part so the standard error stays real-valued.
type welford struct {
	n    int64
	mean complex128
	m2re float64
	m2im float64
}

func (w *welford) add(z complex128) {
	w.n++
	d := z - w.mean
	w.mean += d / complex(float64(w.n), 0)
	d2 := z - w.mean
	w.m2re += real(d) * real(d2)
	w.m2im += imag(d) * imag(d2)
}

// merge folds another accumulator into w (Chan et al. parallel update).
func (w *welford) merge(o welford) {
	if o.n == 0 {
		return
	}
	if w.n == 0 {
		*w = o
		return
	}
	n := w.n + o.n
	d := o.mean - w.mean
	fa := float64(w.n)
	fb := float64(o.n)
	fn := float64(n)
	w.mean += d * complex(fb/fn, 0)
	w.m2re += o.m2re + real(d)*real(d)*fa*fb/fn
	w.m2im += o.m2im + imag(d)*imag(d)*fa*fb/fn
	w.n = n
}

// variance returns the per-part sample variance (n-1 denominator).
func (w *welford) variance() (re, im float64) {
	if w.n < 2 {
		return 0, 0
	}
	d := float64(w.n - 1)
	return w.m2re / d, w.m2im / d
}
