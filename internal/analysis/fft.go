// Package analysis extracts frequency content from recorded expectation
// series, for picking out Rabi and vacuum-Rabi oscillations.
package analysis

import (
	"math"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform by radix-2 decimation. The
// input is zero-padded to the next power of two.
func FFT(data []float64) []complex128 {
	n := nextPow2(len(data))
	padded := make([]complex128, n)
	for i, v := range data {
		padded[i] = complex(v, 0)
	}
	fftInPlace(padded)
	return padded
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func fftInPlace(a []complex128) {
	n := len(a)
	if n <= 1 {
		return
	}
	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = a[2*i]
		odd[i] = a[2*i+1]
	}
	fftInPlace(even)
	fftInPlace(odd)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		a[k] = even[k] + w*odd[k]
		a[k+n/2] = even[k] - w*odd[k]
	}
}

// PowerSpectrum returns the magnitude of the positive-frequency half of the
// transform, with the mean removed first so the DC bin does not swamp the
// oscillation peaks.
func PowerSpectrum(data []float64) []float64 {
	centered := make([]float64, len(data))
	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	fft := FFT(centered)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps
}

// DominantFrequency returns the strongest oscillation frequency (in cycles
// per time unit) of a series sampled at the uniform grid times.
func DominantFrequency(times, values []float64) float64 {
	if len(times) < 2 || len(values) < 2 {
		return 0
	}
	ps := PowerSpectrum(values)
	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	nfft := nextPow2(len(values))
	return float64(peak) / (float64(nfft) * dt)
}
