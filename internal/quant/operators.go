package quant

import (
	"fmt"
	"math"
)

// Standard operators. The factory functions return fresh instances so
// callers can never alias internal state.

func mustQobj(q *Qobj, err error) *Qobj {
	if err != nil {
		panic(err)
	}
	return q
}

// Qeye returns the identity operator on an n-dimensional space.
func Qeye(n int) *Qobj {
	return fromMatrix(eyeCSR(n), []int{n}, []int{n}, Oper)
}

// QeyeDims returns the identity operator over a composite space.
func QeyeDims(dims ...int) *Qobj {
	return fromMatrix(eyeCSR(prod(dims)), dims, dims, Oper)
}

// Basis returns the computational basis ket |i> in an n-dimensional space.
func Basis(n, i int) (*Qobj, error) {
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: basis index %d in dimension %d", ErrBadShape, i, n)
	}
	v := make([]complex128, n)
	v[i] = 1
	return NewDense([]int{n}, []int{1}, v)
}

// SigmaX returns the Pauli X operator.
func SigmaX() *Qobj {
	return mustQobj(NewDense([]int{2}, []int{2}, []complex128{0, 1, 1, 0}))
}

// SigmaY returns the Pauli Y operator.
func SigmaY() *Qobj {
	return mustQobj(NewDense([]int{2}, []int{2}, []complex128{0, -1i, 1i, 0}))
}

// SigmaZ returns the Pauli Z operator.
func SigmaZ() *Qobj {
	return mustQobj(NewDense([]int{2}, []int{2}, []complex128{1, 0, 0, -1}))
}

// SigmaP returns the raising operator |0><1| in the convention where |0> is
// the excited state of SigmaZ (eigenvalue +1).
func SigmaP() *Qobj {
	return mustQobj(NewDense([]int{2}, []int{2}, []complex128{0, 1, 0, 0}))
}

// SigmaM returns the lowering operator |1><0|.
func SigmaM() *Qobj {
	return mustQobj(NewDense([]int{2}, []int{2}, []complex128{0, 0, 1, 0}))
}

// Destroy returns the annihilation operator on a truncated n-dimensional
// oscillator space.
func Destroy(n int) *Qobj {
	v := make([]complex128, n*n)
	for k := 1; k < n; k++ {
		v[(k-1)*n+k] = complex(math.Sqrt(float64(k)), 0)
	}
	return mustQobj(NewSparse([]int{n}, []int{n}, v))
}

// Create returns the creation operator on a truncated n-dimensional
// oscillator space.
func Create(n int) *Qobj {
	return Destroy(n).Dag()
}

// Num returns the number operator on a truncated n-dimensional oscillator
// space.
func Num(n int) *Qobj {
	v := make([]complex128, n*n)
	for k := 0; k < n; k++ {
		v[k*n+k] = complex(float64(k), 0)
	}
	return mustQobj(NewSparse([]int{n}, []int{n}, v))
}

// Ket2DM promotes a ket (or bra) to the corresponding density matrix.
func Ket2DM(psi *Qobj) (*Qobj, error) {
	switch psi.kind {
	case Ket:
		return psi.Mul(psi.Dag())
	case Bra:
		return psi.Dag().Mul(psi)
	default:
		return nil, fmt.Errorf("%w: ket2dm of %s", ErrBadShape, psi.kind)
	}
}
