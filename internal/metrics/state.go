// Package metrics provides diagnostics on evolving density matrices.
package metrics

import (
	"math"

	"github.com/qsimlab/qsim/internal/quant"
)

// Purity returns Tr(rho^2), 1 for pure states and 1/d for the maximally
// mixed state.
func Purity(rho *quant.Qobj) float64 {
	n, _ := rho.Shape()
	var p float64
	// Tr(rho^2) = sum_ij rho[i,j] rho[j,i]; hermiticity makes it real.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z := rho.At(i, j) * rho.At(j, i)
			p += real(z)
		}
	}
	return p
}

// Coherence returns the l1 norm of the off-diagonal part.
func Coherence(rho *quant.Qobj) float64 {
	n, _ := rho.Shape()
	var c float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				z := rho.At(i, j)
				c += math.Hypot(real(z), imag(z))
			}
		}
	}
	return c
}

// TraceError returns |Tr(rho) - 1|.
func TraceError(rho *quant.Qobj) float64 {
	tr := rho.Tr()
	return math.Hypot(real(tr)-1, imag(tr))
}

// PurityDrift tracks how far a state sequence strays from its initial
// purity, in the spirit of an energy-drift check for unitary evolution.
type PurityDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func (p *PurityDrift) Observe(rho *quant.Qobj) {
	pur := Purity(rho)
	if p.samples == 0 {
		p.initial = pur
	}
	p.samples++
	if d := math.Abs(pur - p.initial); d > p.maxDrift {
		p.maxDrift = d
	}
}

func (p *PurityDrift) Value() float64 { return p.maxDrift }

func (p *PurityDrift) Reset() {
	p.initial = 0
	p.maxDrift = 0
	p.samples = 0
}
