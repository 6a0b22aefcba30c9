package quant

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"
)

// matrix is the storage capability contract. Both representations implement
// the full set so algebra above this line never branches on representation.
type matrix interface {
	shape() (rows, cols int)
	at(i, j int) complex128
	nnz() int
	clone() matrix
	toDense() *dense
	add(o matrix) matrix
	scale(z complex128) matrix
	mul(o matrix) matrix
	kron(o matrix) matrix
	dag() matrix
	trace() complex128
	matVec(x, dst []complex128)
}

// Kind is the algebraic kind of a quantum object.
type Kind int

const (
	Ket Kind = iota
	Bra
	Oper
	Super
)

func (k Kind) String() string {
	switch k {
	case Ket:
		return "ket"
	case Bra:
		return "bra"
	case Oper:
		return "oper"
	case Super:
		return "super"
	}
	return "unknown"
}

// Hermiticity cache states. Stored atomically so concurrent trajectories can
// share read-only operators.
const (
	hermUnknown int32 = iota
	hermTrue
	hermFalse
)

// Default tolerances for hermiticity checks.
const (
	HermATol = 1e-12
	HermRTol = 1e-12
)

// Qobj is an immutable quantum object: a matrix tagged with its subsystem
// decomposition and algebraic kind. All operations return new instances.
type Qobj struct {
	m       matrix
	rowDims []int
	colDims []int
	kind    Kind
	herm    atomic.Int32
}

func prod(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func kindFor(rowDims, colDims []int) Kind {
	nr, nc := prod(rowDims), prod(colDims)
	switch {
	case nc == 1 && nr > 1:
		return Ket
	case nr == 1 && nc > 1:
		return Bra
	default:
		return Oper
	}
}

func validDims(rowDims, colDims []int, n int) error {
	if len(rowDims) == 0 || len(colDims) == 0 {
		return fmt.Errorf("%w: empty dims", ErrBadShape)
	}
	for _, d := range append(append([]int(nil), rowDims...), colDims...) {
		if d < 1 {
			return fmt.Errorf("%w: non-positive dim %d", ErrBadShape, d)
		}
	}
	if prod(rowDims)*prod(colDims) != n {
		return fmt.Errorf("%w: %d elements for dims %v x %v", ErrBadShape, n, rowDims, colDims)
	}
	return nil
}

func fromMatrix(m matrix, rowDims, colDims []int, kind Kind) *Qobj {
	q := &Qobj{
		m:       m,
		rowDims: append([]int(nil), rowDims...),
		colDims: append([]int(nil), colDims...),
		kind:    kind,
	}
	return q
}

// New constructs a Qobj from row-major data, choosing the representation by
// the construction-time density heuristic.
func New(rowDims, colDims []int, data []complex128) (*Qobj, error) {
	if err := validDims(rowDims, colDims, len(data)); err != nil {
		return nil, err
	}
	d := denseFrom(prod(rowDims), prod(colDims), data)
	var m matrix = d
	if len(data) >= 16 && float64(d.nnz())/float64(len(data)) < sparseThreshold {
		m = csrFromDense(d)
	}
	return fromMatrix(m, rowDims, colDims, kindFor(rowDims, colDims)), nil
}

// NewDense constructs a Qobj with dense storage regardless of density.
func NewDense(rowDims, colDims []int, data []complex128) (*Qobj, error) {
	if err := validDims(rowDims, colDims, len(data)); err != nil {
		return nil, err
	}
	d := denseFrom(prod(rowDims), prod(colDims), data)
	return fromMatrix(d, rowDims, colDims, kindFor(rowDims, colDims)), nil
}

// NewSparse constructs a Qobj with CSR storage regardless of density.
func NewSparse(rowDims, colDims []int, data []complex128) (*Qobj, error) {
	if err := validDims(rowDims, colDims, len(data)); err != nil {
		return nil, err
	}
	d := denseFrom(prod(rowDims), prod(colDims), data)
	return fromMatrix(csrFromDense(d), rowDims, colDims, kindFor(rowDims, colDims)), nil
}

// Shape returns the matrix dimensions.
func (q *Qobj) Shape() (rows, cols int) { return q.m.shape() }

// RowDims returns a copy of the row-axis subsystem decomposition.
func (q *Qobj) RowDims() []int { return append([]int(nil), q.rowDims...) }

// ColDims returns a copy of the column-axis subsystem decomposition.
func (q *Qobj) ColDims() []int { return append([]int(nil), q.colDims...) }

// Kind returns the algebraic kind.
func (q *Qobj) Kind() Kind { return q.kind }

// At returns a single element.
func (q *Qobj) At(i, j int) complex128 { return q.m.at(i, j) }

// NNZ returns the number of stored nonzeros.
func (q *Qobj) NNZ() int { return q.m.nnz() }

// IsSparse reports whether the underlying storage is CSR. Representation is
// an optimization, not an observable algebraic property.
func (q *Qobj) IsSparse() bool {
	_, ok := q.m.(*csr)
	return ok
}

// DenseSlice returns a row-major copy of the matrix data.
func (q *Qobj) DenseSlice() []complex128 {
	d := q.m.toDense()
	return append([]complex128(nil), d.v...)
}

// Add returns q + o. Both operands must have identical dims on both axes.
func (q *Qobj) Add(o *Qobj) (*Qobj, error) {
	if !dimsEqual(q.rowDims, o.rowDims) || !dimsEqual(q.colDims, o.colDims) {
		return nil, fmt.Errorf("%w: add %v x %v with %v x %v",
			ErrDimensionMismatch, q.rowDims, q.colDims, o.rowDims, o.colDims)
	}
	return fromMatrix(q.m.add(o.m), q.rowDims, q.colDims, q.kind), nil
}

// Sub returns q - o.
func (q *Qobj) Sub(o *Qobj) (*Qobj, error) {
	return q.Add(o.Scale(-1))
}

// Scale returns z * q.
func (q *Qobj) Scale(z complex128) *Qobj {
	return fromMatrix(q.m.scale(z), q.rowDims, q.colDims, q.kind)
}

// Mul returns the matrix product q * o. q's column dims must equal o's row
// dims; the result inherits q's row dims and o's column dims.
func (q *Qobj) Mul(o *Qobj) (*Qobj, error) {
	if !dimsEqual(q.colDims, o.rowDims) {
		return nil, fmt.Errorf("%w: multiply col dims %v with row dims %v",
			ErrDimensionMismatch, q.colDims, o.rowDims)
	}
	kind := kindFor(q.rowDims, o.colDims)
	if q.kind == Super && o.kind == Super {
		kind = Super
	}
	return fromMatrix(q.m.mul(o.m), q.rowDims, o.colDims, kind), nil
}

// Dag returns the conjugate transpose.
func (q *Qobj) Dag() *Qobj {
	kind := kindFor(q.colDims, q.rowDims)
	if q.kind == Super {
		kind = Super
	}
	return fromMatrix(q.m.dag(), q.colDims, q.rowDims, kind)
}

// Tr returns the matrix trace.
func (q *Qobj) Tr() complex128 { return q.m.trace() }

// Norm returns the l2 norm for kets and bras and the Frobenius norm for
// operators.
func (q *Qobj) Norm() float64 {
	d := q.m.toDense()
	var sum float64
	for _, z := range d.v {
		sum += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(sum)
}

// Unit returns q normalized to unit norm. A zero object is returned
// unchanged.
func (q *Qobj) Unit() *Qobj {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return q.Scale(complex(1/n, 0))
}

// MatVec applies q to the vector x, writing the result into dst. Lengths
// must match the matrix shape; this is the solver hot path and does not
// allocate.
func (q *Qobj) MatVec(x, dst []complex128) {
	q.m.matVec(x, dst)
}

// IsHermitian reports whether q equals its conjugate transpose within the
// default tolerances. The result is cached on the immutable instance.
func (q *Qobj) IsHermitian() bool {
	if h := q.herm.Load(); h != hermUnknown {
		return h == hermTrue
	}
	res := q.IsHermitianTol(HermATol, HermRTol)
	if res {
		q.herm.Store(hermTrue)
	} else {
		q.herm.Store(hermFalse)
	}
	return res
}

// IsHermitianTol compares q to its conjugate transpose within the given
// absolute and relative tolerances. Does not touch the cache.
func (q *Qobj) IsHermitianTol(atol, rtol float64) bool {
	r, c := q.m.shape()
	if r != c || !dimsEqual(q.rowDims, q.colDims) {
		return false
	}
	scale := q.Norm()
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			diff := cmplx.Abs(q.m.at(i, j) - cmplx.Conj(q.m.at(j, i)))
			if diff > atol+rtol*scale {
				return false
			}
		}
	}
	return true
}

// IsSquare reports whether q is a square operator with matching subsystem
// decompositions on both axes.
func (q *Qobj) IsSquare() bool {
	r, c := q.m.shape()
	return r == c && dimsEqual(q.rowDims, q.colDims)
}

func (q *Qobj) String() string {
	r, c := q.m.shape()
	return fmt.Sprintf("Qobj{kind=%s, dims=%vx%v, shape=%dx%d, nnz=%d}",
		q.kind, q.rowDims, q.colDims, r, c, q.m.nnz())
}
