package models

import (
	"math"

	"github.com/qsimlab/qsim/internal/quant"
	"github.com/qsimlab/qsim/internal/solver"
)

const (
	DefaultSplitting = 1.0
	DefaultDecayRate = 0.1
	DefaultRabiFreq  = 1.0
)

// DampedQubit is a two-level atom with energy splitting Delta decaying by
// spontaneous emission at rate Gamma, starting in the excited state.
type DampedQubit struct {
	Delta float64
	Gamma float64
}

func NewDampedQubit() *DampedQubit {
	return &DampedQubit{Delta: DefaultSplitting, Gamma: DefaultDecayRate}
}

func (m *DampedQubit) Name() string { return "damped-qubit" }

func (m *DampedQubit) Hamiltonian() []solver.Term {
	return []solver.Term{solver.Const(quant.SigmaZ().Scale(complex(m.Delta/2, 0)))}
}

func (m *DampedQubit) Collapse() []solver.Term {
	if m.Gamma <= 0 {
		return nil
	}
	return []solver.Term{solver.Const(quant.SigmaM().Scale(complex(math.Sqrt(m.Gamma), 0)))}
}

func (m *DampedQubit) InitialState() *quant.Qobj { return mustBasis(2, 0) }

func (m *DampedQubit) Observables() ([]*quant.Qobj, []string) {
	num := mustMul(quant.SigmaP(), quant.SigmaM())
	return []*quant.Qobj{num, quant.SigmaX()}, []string{"P_e", "sigma_x"}
}

// RabiQubit is a qubit driven on resonance with Rabi frequency Omega while
// decaying at rate Gamma, starting in the ground state.
type RabiQubit struct {
	Omega float64
	Gamma float64
}

func NewRabiQubit() *RabiQubit {
	return &RabiQubit{Omega: DefaultRabiFreq, Gamma: DefaultDecayRate}
}

func (m *RabiQubit) Name() string { return "rabi" }

func (m *RabiQubit) Hamiltonian() []solver.Term {
	return []solver.Term{solver.Const(quant.SigmaX().Scale(complex(m.Omega/2, 0)))}
}

func (m *RabiQubit) Collapse() []solver.Term {
	if m.Gamma <= 0 {
		return nil
	}
	return []solver.Term{solver.Const(quant.SigmaM().Scale(complex(math.Sqrt(m.Gamma), 0)))}
}

func (m *RabiQubit) InitialState() *quant.Qobj { return mustBasis(2, 1) }

func (m *RabiQubit) Observables() ([]*quant.Qobj, []string) {
	num := mustMul(quant.SigmaP(), quant.SigmaM())
	return []*quant.Qobj{num, quant.SigmaY()}, []string{"P_e", "sigma_y"}
}

// DephasingQubit loses phase coherence at rate Kappa without energy decay,
// starting in an equal superposition.
type DephasingQubit struct {
	Delta float64
	Kappa float64
}

func NewDephasingQubit() *DephasingQubit {
	return &DephasingQubit{Delta: DefaultSplitting, Kappa: DefaultDecayRate}
}

func (m *DephasingQubit) Name() string { return "dephasing" }

func (m *DephasingQubit) Hamiltonian() []solver.Term {
	return []solver.Term{solver.Const(quant.SigmaZ().Scale(complex(m.Delta/2, 0)))}
}

func (m *DephasingQubit) Collapse() []solver.Term {
	if m.Kappa <= 0 {
		return nil
	}
	return []solver.Term{solver.Const(quant.SigmaZ().Scale(complex(math.Sqrt(m.Kappa/2), 0)))}
}

func (m *DephasingQubit) InitialState() *quant.Qobj {
	return mustAdd(mustBasis(2, 0), mustBasis(2, 1)).Unit()
}

func (m *DephasingQubit) Observables() ([]*quant.Qobj, []string) {
	return []*quant.Qobj{quant.SigmaX(), quant.SigmaZ()}, []string{"sigma_x", "sigma_z"}
}
