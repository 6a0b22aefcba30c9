package models

import (
	"math"

	"github.com/qsimlab/qsim/internal/quant"
	"github.com/qsimlab/qsim/internal/solver"
)

const (
	DefaultCavityLevels = 10
	DefaultCoupling     = 0.5
	DefaultCavityDecay  = 0.05
)

// JaynesCummings couples a qubit to a truncated cavity mode under the
// rotating-wave approximation. The composite space is qubit (x) cavity; the
// cavity leaks photons at rate Kappa. Starts with the atom excited and the
// cavity empty.
type JaynesCummings struct {
	WQubit  float64 // qubit splitting
	WCavity float64 // cavity frequency
	G       float64 // coupling strength
	Kappa   float64 // cavity decay rate
	Gamma   float64 // atomic decay rate
	Levels  int     // cavity truncation
}

func NewJaynesCummings() *JaynesCummings {
	return &JaynesCummings{
		WQubit:  DefaultSplitting,
		WCavity: DefaultSplitting,
		G:       DefaultCoupling,
		Kappa:   DefaultCavityDecay,
		Gamma:   0,
		Levels:  DefaultCavityLevels,
	}
}

func (m *JaynesCummings) Name() string { return "jaynes-cummings" }

func (m *JaynesCummings) Hamiltonian() []solver.Term {
	n := m.Levels
	eyeC := quant.Qeye(n)
	eyeQ := quant.Qeye(2)

	hq := mustTensor(quant.SigmaZ(), eyeC).Scale(complex(m.WQubit/2, 0))
	hc := mustTensor(eyeQ, quant.Num(n)).Scale(complex(m.WCavity, 0))

	// g (sigma_+ a + sigma_- a^dag)
	up := mustTensor(quant.SigmaP(), quant.Destroy(n))
	down := mustTensor(quant.SigmaM(), quant.Create(n))
	hint := mustAdd(up, down).Scale(complex(m.G, 0))

	h := mustAdd(mustAdd(hq, hc), hint)
	return []solver.Term{solver.Const(h)}
}

func (m *JaynesCummings) Collapse() []solver.Term {
	var cops []solver.Term
	if m.Kappa > 0 {
		a := mustTensor(quant.Qeye(2), quant.Destroy(m.Levels))
		cops = append(cops, solver.Const(a.Scale(complex(math.Sqrt(m.Kappa), 0))))
	}
	if m.Gamma > 0 {
		sm := mustTensor(quant.SigmaM(), quant.Qeye(m.Levels))
		cops = append(cops, solver.Const(sm.Scale(complex(math.Sqrt(m.Gamma), 0))))
	}
	return cops
}

func (m *JaynesCummings) InitialState() *quant.Qobj {
	return mustTensor(mustBasis(2, 0), mustBasis(m.Levels, 0))
}

func (m *JaynesCummings) Observables() ([]*quant.Qobj, []string) {
	pe := mustTensor(mustMul(quant.SigmaP(), quant.SigmaM()), quant.Qeye(m.Levels))
	nc := mustTensor(quant.Qeye(2), quant.Num(m.Levels))
	return []*quant.Qobj{pe, nc}, []string{"P_e", "n_cavity"}
}
