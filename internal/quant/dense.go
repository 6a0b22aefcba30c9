package quant

import "math/cmplx"

// dense is a row-major complex matrix.
type dense struct {
	r, c int
	v    []complex128
}

func newDense(r, c int) *dense {
	return &dense{r: r, c: c, v: make([]complex128, r*c)}
}

func denseFrom(r, c int, data []complex128) *dense {
	v := make([]complex128, r*c)
	copy(v, data)
	return &dense{r: r, c: c, v: v}
}

func (d *dense) shape() (int, int) { return d.r, d.c }

func (d *dense) at(i, j int) complex128 { return d.v[i*d.c+j] }

func (d *dense) nnz() int {
	n := 0
	for _, z := range d.v {
		if z != 0 {
			n++
		}
	}
	return n
}

func (d *dense) clone() matrix {
	return denseFrom(d.r, d.c, d.v)
}

func (d *dense) toDense() *dense { return d }

func (d *dense) add(o matrix) matrix {
	od := o.toDense()
	out := newDense(d.r, d.c)
	for i := range d.v {
		out.v[i] = d.v[i] + od.v[i]
	}
	return out
}

func (d *dense) scale(z complex128) matrix {
	out := newDense(d.r, d.c)
	for i, x := range d.v {
		out.v[i] = z * x
	}
	return out
}

func (d *dense) mul(o matrix) matrix {
	if oc, ok := o.(*csr); ok {
		return denseMulCSR(d, oc)
	}
	od := o.toDense()
	out := newDense(d.r, od.c)
	for i := 0; i < d.r; i++ {
		row := d.v[i*d.c : (i+1)*d.c]
		outRow := out.v[i*od.c : (i+1)*od.c]
		for k, a := range row {
			if a == 0 {
				continue
			}
			bRow := od.v[k*od.c : (k+1)*od.c]
			for j, b := range bRow {
				outRow[j] += a * b
			}
		}
	}
	return out
}

func (d *dense) kron(o matrix) matrix {
	od := o.toDense()
	r2, c2 := od.r, od.c
	out := newDense(d.r*r2, d.c*c2)
	for i1 := 0; i1 < d.r; i1++ {
		for j1 := 0; j1 < d.c; j1++ {
			a := d.v[i1*d.c+j1]
			if a == 0 {
				continue
			}
			for i2 := 0; i2 < r2; i2++ {
				dst := out.v[(i1*r2+i2)*out.c+j1*c2:]
				src := od.v[i2*c2 : (i2+1)*c2]
				for j2, b := range src {
					dst[j2] = a * b
				}
			}
		}
	}
	return out
}

func (d *dense) dag() matrix {
	out := newDense(d.c, d.r)
	for i := 0; i < d.r; i++ {
		for j := 0; j < d.c; j++ {
			out.v[j*d.r+i] = cmplx.Conj(d.v[i*d.c+j])
		}
	}
	return out
}

func (d *dense) trace() complex128 {
	var tr complex128
	for i := 0; i < d.r && i < d.c; i++ {
		tr += d.v[i*d.c+i]
	}
	return tr
}

func (d *dense) matVec(x, dst []complex128) {
	for i := 0; i < d.r; i++ {
		row := d.v[i*d.c : (i+1)*d.c]
		var acc complex128
		for j, a := range row {
			acc += a * x[j]
		}
		dst[i] = acc
	}
}

// denseMulCSR computes d * s without densifying s.
func denseMulCSR(d *dense, s *csr) *dense {
	out := newDense(d.r, s.c)
	for i := 0; i < d.r; i++ {
		row := d.v[i*d.c : (i+1)*d.c]
		outRow := out.v[i*s.c : (i+1)*s.c]
		for k, a := range row {
			if a == 0 {
				continue
			}
			for p := s.rowPtr[k]; p < s.rowPtr[k+1]; p++ {
				outRow[s.colIdx[p]] += a * s.vals[p]
			}
		}
	}
	return out
}
