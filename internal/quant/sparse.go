package quant

import (
	"math/cmplx"
	"sort"
)

// csr is a compressed sparse row complex matrix.
type csr struct {
	r, c   int
	rowPtr []int
	colIdx []int
	vals   []complex128
}

// sparseThreshold is the construction-time density cutoff below which a
// matrix is stored as CSR rather than dense.
const sparseThreshold = 0.25

func csrFromDense(d *dense) *csr {
	s := &csr{r: d.r, c: d.c, rowPtr: make([]int, d.r+1)}
	for i := 0; i < d.r; i++ {
		for j := 0; j < d.c; j++ {
			if z := d.v[i*d.c+j]; z != 0 {
				s.colIdx = append(s.colIdx, j)
				s.vals = append(s.vals, z)
			}
		}
		s.rowPtr[i+1] = len(s.vals)
	}
	return s
}

func (s *csr) shape() (int, int) { return s.r, s.c }

func (s *csr) at(i, j int) complex128 {
	lo, hi := s.rowPtr[i], s.rowPtr[i+1]
	k := sort.SearchInts(s.colIdx[lo:hi], j)
	if lo+k < hi && s.colIdx[lo+k] == j {
		return s.vals[lo+k]
	}
	return 0
}

func (s *csr) nnz() int { return len(s.vals) }

func (s *csr) clone() matrix {
	out := &csr{
		r: s.r, c: s.c,
		rowPtr: append([]int(nil), s.rowPtr...),
		colIdx: append([]int(nil), s.colIdx...),
		vals:   append([]complex128(nil), s.vals...),
	}
	return out
}

func (s *csr) toDense() *dense {
	d := newDense(s.r, s.c)
	for i := 0; i < s.r; i++ {
		for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
			d.v[i*s.c+s.colIdx[p]] = s.vals[p]
		}
	}
	return d
}

func (s *csr) add(o matrix) matrix {
	os, ok := o.(*csr)
	if !ok {
		return s.toDense().add(o)
	}
	out := &csr{r: s.r, c: s.c, rowPtr: make([]int, s.r+1)}
	for i := 0; i < s.r; i++ {
		pa, ea := s.rowPtr[i], s.rowPtr[i+1]
		pb, eb := os.rowPtr[i], os.rowPtr[i+1]
		for pa < ea || pb < eb {
			switch {
			case pb >= eb || (pa < ea && s.colIdx[pa] < os.colIdx[pb]):
				out.colIdx = append(out.colIdx, s.colIdx[pa])
				out.vals = append(out.vals, s.vals[pa])
				pa++
			case pa >= ea || os.colIdx[pb] < s.colIdx[pa]:
				out.colIdx = append(out.colIdx, os.colIdx[pb])
				out.vals = append(out.vals, os.vals[pb])
				pb++
			default:
				if z := s.vals[pa] + os.vals[pb]; z != 0 {
					out.colIdx = append(out.colIdx, s.colIdx[pa])
					out.vals = append(out.vals, z)
				}
				pa++
				pb++
			}
		}
		out.rowPtr[i+1] = len(out.vals)
	}
	return out
}

func (s *csr) scale(z complex128) matrix {
	out := s.clone().(*csr)
	for i := range out.vals {
		out.vals[i] *= z
	}
	return out
}

func (s *csr) mul(o matrix) matrix {
	os, ok := o.(*csr)
	if !ok {
		od := o.toDense()
		out := newDense(s.r, od.c)
		for i := 0; i < s.r; i++ {
			outRow := out.v[i*od.c : (i+1)*od.c]
			for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
				a := s.vals[p]
				bRow := od.v[s.colIdx[p]*od.c : (s.colIdx[p]+1)*od.c]
				for j, b := range bRow {
					outRow[j] += a * b
				}
			}
		}
		return out
	}
	// Gustavson row-by-row product with a dense accumulator per row.
	out := &csr{r: s.r, c: os.c, rowPtr: make([]int, s.r+1)}
	acc := make([]complex128, os.c)
	marked := make([]int, 0, os.c)
	for i := 0; i < s.r; i++ {
		for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
			a := s.vals[p]
			k := s.colIdx[p]
			for q := os.rowPtr[k]; q < os.rowPtr[k+1]; q++ {
				j := os.colIdx[q]
				if acc[j] == 0 {
					marked = append(marked, j)
				}
				acc[j] += a * os.vals[q]
			}
		}
		sort.Ints(marked)
		for _, j := range marked {
			if acc[j] != 0 {
				out.colIdx = append(out.colIdx, j)
				out.vals = append(out.vals, acc[j])
			}
			acc[j] = 0
		}
		marked = marked[:0]
		out.rowPtr[i+1] = len(out.vals)
	}
	return out
}

func (s *csr) kron(o matrix) matrix {
	os, ok := o.(*csr)
	if !ok {
		return s.toDense().kron(o)
	}
	out := &csr{r: s.r * os.r, c: s.c * os.c, rowPtr: make([]int, s.r*os.r+1)}
	for i1 := 0; i1 < s.r; i1++ {
		for i2 := 0; i2 < os.r; i2++ {
			for p := s.rowPtr[i1]; p < s.rowPtr[i1+1]; p++ {
				a := s.vals[p]
				j1 := s.colIdx[p]
				for q := os.rowPtr[i2]; q < os.rowPtr[i2+1]; q++ {
					out.colIdx = append(out.colIdx, j1*os.c+os.colIdx[q])
					out.vals = append(out.vals, a*os.vals[q])
				}
			}
			out.rowPtr[i1*os.r+i2+1] = len(out.vals)
		}
	}
	return out
}

func (s *csr) dag() matrix {
	// Two-pass CSR transpose with conjugation.
	out := &csr{
		r: s.c, c: s.r,
		rowPtr: make([]int, s.c+1),
		colIdx: make([]int, len(s.vals)),
		vals:   make([]complex128, len(s.vals)),
	}
	for _, j := range s.colIdx {
		out.rowPtr[j+1]++
	}
	for j := 0; j < s.c; j++ {
		out.rowPtr[j+1] += out.rowPtr[j]
	}
	next := append([]int(nil), out.rowPtr...)
	for i := 0; i < s.r; i++ {
		for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
			j := s.colIdx[p]
			out.colIdx[next[j]] = i
			out.vals[next[j]] = cmplx.Conj(s.vals[p])
			next[j]++
		}
	}
	return out
}

func (s *csr) trace() complex128 {
	var tr complex128
	n := s.r
	if s.c < n {
		n = s.c
	}
	for i := 0; i < n; i++ {
		tr += s.at(i, i)
	}
	return tr
}

func (s *csr) matVec(x, dst []complex128) {
	for i := 0; i < s.r; i++ {
		var acc complex128
		for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
			acc += s.vals[p] * x[s.colIdx[p]]
		}
		dst[i] = acc
	}
}
