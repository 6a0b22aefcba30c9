package quant

import (
	"fmt"
	"math/cmplx"
)

// Superoperators use the column-stacking convention: vec(X) stacks the
// columns of X, so element (i,j) of an n x n operator lands at index j*n+i,
// and vec(AXB) = (B^T kron A) vec(X).

// matConj returns the elementwise complex conjugate.
func matConj(m matrix) matrix {
	switch t := m.(type) {
	case *csr:
		out := t.clone().(*csr)
		for i := range out.vals {
			out.vals[i] = cmplx.Conj(out.vals[i])
		}
		return out
	default:
		d := t.toDense()
		out := newDense(d.r, d.c)
		for i, z := range d.v {
			out.v[i] = cmplx.Conj(z)
		}
		return out
	}
}

// matTranspose returns the transpose without conjugation.
func matTranspose(m matrix) matrix {
	return matConj(m.dag())
}

func eyeCSR(n int) *csr {
	s := &csr{r: n, c: n, rowPtr: make([]int, n+1), colIdx: make([]int, n), vals: make([]complex128, n)}
	for i := 0; i < n; i++ {
		s.rowPtr[i+1] = i + 1
		s.colIdx[i] = i
		s.vals[i] = 1
	}
	return s
}

func superDims(op *Qobj) []int {
	return append(op.RowDims(), op.colDims...)
}

func requireSquare(op *Qobj, what string) error {
	if !op.IsSquare() {
		return fmt.Errorf("%w: %s must be square, got dims %v x %v",
			ErrNotSquare, what, op.rowDims, op.colDims)
	}
	return nil
}

// SPre lifts left multiplication: SPre(A) vec(X) = vec(A X).
func SPre(a *Qobj) (*Qobj, error) {
	if err := requireSquare(a, "spre operand"); err != nil {
		return nil, err
	}
	n, _ := a.Shape()
	m := eyeCSR(n).kron(a.m)
	sd := superDims(a)
	return fromMatrix(m, sd, sd, Super), nil
}

// SPost lifts right multiplication: SPost(B) vec(X) = vec(X B).
func SPost(b *Qobj) (*Qobj, error) {
	if err := requireSquare(b, "spost operand"); err != nil {
		return nil, err
	}
	n, _ := b.Shape()
	m := matTranspose(b.m).kron(eyeCSR(n))
	sd := superDims(b)
	return fromMatrix(m, sd, sd, Super), nil
}

// LindbladDissipator builds the dissipator superoperator for a single
// collapse operator C:
//
//	D[C] vec(rho) = vec(C rho C^dag - 1/2 {C^dag C, rho})
func LindbladDissipator(c *Qobj) (*Qobj, error) {
	if err := requireSquare(c, "collapse operator"); err != nil {
		return nil, err
	}
	n, _ := c.Shape()
	eye := eyeCSR(n)
	cdc := c.m.dag().mul(c.m)

	m := matConj(c.m).kron(c.m)
	m = m.add(eye.kron(cdc).scale(-0.5))
	m = m.add(matTranspose(cdc).kron(eye).scale(-0.5))

	sd := superDims(c)
	return fromMatrix(m, sd, sd, Super), nil
}

// Liouvillian assembles the full generator for the Lindblad master equation,
// L = -i(SPre(H) - SPost(H)) + sum_k D[C_k], as a superoperator Qobj whose
// dims carry the doubled subsystem structure. H may be nil for purely
// dissipative generators with at least one collapse operator.
func Liouvillian(h *Qobj, cops []*Qobj) (*Qobj, error) {
	if h == nil && len(cops) == 0 {
		return nil, fmt.Errorf("%w: liouvillian needs a Hamiltonian or collapse operators", ErrBadShape)
	}
	var ref *Qobj
	if h != nil {
		if err := requireSquare(h, "Hamiltonian"); err != nil {
			return nil, err
		}
		ref = h
	} else {
		ref = cops[0]
	}
	for _, c := range cops {
		if err := requireSquare(c, "collapse operator"); err != nil {
			return nil, err
		}
		if !dimsEqual(c.rowDims, ref.rowDims) {
			return nil, fmt.Errorf("%w: collapse operator dims %v disagree with %v",
				ErrDimensionMismatch, c.rowDims, ref.rowDims)
		}
	}

	var l *Qobj
	if h != nil {
		pre, err := SPre(h)
		if err != nil {
			return nil, err
		}
		post, err := SPost(h)
		if err != nil {
			return nil, err
		}
		comm, err := pre.Sub(post)
		if err != nil {
			return nil, err
		}
		l = comm.Scale(complex(0, -1))
	}
	for _, c := range cops {
		d, err := LindbladDissipator(c)
		if err != nil {
			return nil, err
		}
		if l == nil {
			l = d
		} else {
			l, err = l.Add(d)
			if err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}

// Vectorize column-stacks a square operator into an operator-ket. The
// round-trip through Devectorize is exact.
func Vectorize(rho *Qobj) (*Qobj, error) {
	if err := requireSquare(rho, "vectorize operand"); err != nil {
		return nil, err
	}
	n, _ := rho.Shape()
	d := rho.m.toDense()
	out := make([]complex128, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			out[j*n+i] = d.v[i*n+j]
		}
	}
	v := fromMatrix(denseFrom(n*n, 1, out), superDims(rho), []int{1}, Ket)
	return v, nil
}

// DevectorizeSlice rebuilds a square operator over the given dims from a raw
// column-stacked vector.
func DevectorizeSlice(v []complex128, dims []int) (*Qobj, error) {
	n := prod(dims)
	if n*n != len(v) {
		return nil, fmt.Errorf("%w: %d elements for dims %v", ErrBadShape, len(v), dims)
	}
	out := make([]complex128, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			out[i*n+j] = v[j*n+i]
		}
	}
	return fromMatrix(denseFrom(n, n, out), dims, dims, Oper), nil
}

// Devectorize rebuilds a square operator from an operator-ket produced by
// Vectorize, splitting the doubled dims back into row and column halves.
func Devectorize(v *Qobj) (*Qobj, error) {
	r, c := v.Shape()
	if c != 1 {
		return nil, fmt.Errorf("%w: devectorize expects a column vector", ErrBadShape)
	}
	half := len(v.rowDims) / 2
	if half == 0 || len(v.rowDims)%2 != 0 {
		return nil, fmt.Errorf("%w: dims %v do not encode a doubled structure", ErrBadShape, v.rowDims)
	}
	rowDims := v.rowDims[:half]
	colDims := v.rowDims[half:]
	n := prod(rowDims)
	if n != prod(colDims) || n*n != r {
		return nil, fmt.Errorf("%w: dims %v disagree with length %d", ErrBadShape, v.rowDims, r)
	}
	d := v.m.toDense()
	out := make([]complex128, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			out[i*n+j] = d.v[j*n+i]
		}
	}
	return fromMatrix(denseFrom(n, n, out), rowDims, colDims, Oper), nil
}
