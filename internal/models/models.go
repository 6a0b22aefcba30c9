// Package models provides ready-made open quantum systems for the solvers
// and the CLI.
package models

import (
	"fmt"
	"sort"

	"github.com/qsimlab/qsim/internal/quant"
	"github.com/qsimlab/qsim/internal/solver"
)

// Model describes a simulable system: its generator, its starting state and
// the observables worth recording.
type Model interface {
	Name() string
	Hamiltonian() []solver.Term
	Collapse() []solver.Term
	InitialState() *quant.Qobj
	Observables() ([]*quant.Qobj, []string)
}

// registry of model constructors by name, for the CLI.
var registry = map[string]func() Model{
	"damped-qubit":    func() Model { return NewDampedQubit() },
	"rabi":            func() Model { return NewRabiQubit() },
	"dephasing":       func() Model { return NewDephasingQubit() },
	"jaynes-cummings": func() Model { return NewJaynesCummings() },
}

// ByName returns a model with default parameters.
func ByName(name string) (Model, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("models: unknown model %q (available: %v)", name, Names())
	}
	return mk(), nil
}

// Names lists the registered models in stable order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func mustBasis(n, i int) *quant.Qobj {
	ket, err := quant.Basis(n, i)
	if err != nil {
		panic(err)
	}
	return ket
}

func mustMul(a, b *quant.Qobj) *quant.Qobj {
	m, err := a.Mul(b)
	if err != nil {
		panic(err)
	}
	return m
}

func mustTensor(ops ...*quant.Qobj) *quant.Qobj {
	q, err := quant.Tensor(ops...)
	if err != nil {
		panic(err)
	}
	return q
}

func mustAdd(a, b *quant.Qobj) *quant.Qobj {
	s, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return s
}
