package quant

import "fmt"

// Expect computes the expectation value of op in the given state: <psi|E|psi>
// for a ket, Tr(E rho) for a density matrix.
func Expect(op, state *Qobj) (complex128, error) {
	if !op.IsSquare() {
		return 0, fmt.Errorf("%w: expectation operator", ErrNotSquare)
	}
	switch state.kind {
	case Ket:
		if !dimsEqual(op.colDims, state.rowDims) {
			return 0, fmt.Errorf("%w: operator dims %v with state dims %v",
				ErrDimensionMismatch, op.colDims, state.rowDims)
		}
		psi := state.m.toDense().v
		tmp := make([]complex128, len(psi))
		op.m.matVec(psi, tmp)
		return vdot(psi, tmp), nil
	case Oper:
		if !dimsEqual(op.colDims, state.rowDims) {
			return 0, fmt.Errorf("%w: operator dims %v with state dims %v",
				ErrDimensionMismatch, op.colDims, state.rowDims)
		}
		// Tr(E rho) = sum_ij E[i,j] rho[j,i], walked over E's nonzeros.
		if s, ok := op.m.(*csr); ok {
			var tr complex128
			for i := 0; i < s.r; i++ {
				for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
					tr += s.vals[p] * state.m.at(s.colIdx[p], i)
				}
			}
			return tr, nil
		}
		d := op.m.toDense()
		var tr complex128
		for i := 0; i < d.r; i++ {
			for j := 0; j < d.c; j++ {
				if e := d.v[i*d.c+j]; e != 0 {
					tr += e * state.m.at(j, i)
				}
			}
		}
		return tr, nil
	default:
		return 0, fmt.Errorf("%w: expectation in a %s", ErrBadShape, state.kind)
	}
}

// ExpectVec computes <psi|E|psi> for a raw normalized state vector. Hot path
// for the stochastic solver; tmp must have the same length as psi.
func ExpectVec(op *Qobj, psi, tmp []complex128) complex128 {
	op.m.matVec(psi, tmp)
	return vdot(psi, tmp)
}

// ExpectSuperVec computes Tr(op * rho) where vec is the column-stacked rho
// over an n-dimensional space: Tr(E rho) = sum_ij E[i,j] vec[i*n+j].
func ExpectSuperVec(op *Qobj, vec []complex128) complex128 {
	n, _ := op.Shape()
	if s, ok := op.m.(*csr); ok {
		var tr complex128
		for i := 0; i < s.r; i++ {
			for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
				tr += s.vals[p] * vec[i*n+s.colIdx[p]]
			}
		}
		return tr
	}
	d := op.m.toDense()
	var tr complex128
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if e := d.v[i*n+j]; e != 0 {
				tr += e * vec[i*n+j]
			}
		}
	}
	return tr
}

// vdot is the conjugated dot product <a|b>.
func vdot(a, b []complex128) complex128 {
	var acc complex128
	for i, z := range a {
		acc += complex(real(z), -imag(z)) * b[i]
	}
	return acc
}
