package quant

import (
	"fmt"
	"sort"
)

// Tensor returns the tensor (Kronecker) product of the given objects. The
// result dims are the concatenation of the operands' dims per axis, left
// operand's subsystems first.
func Tensor(ops ...*Qobj) (*Qobj, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: tensor of zero operands", ErrBadShape)
	}
	out := ops[0]
	for _, o := range ops[1:] {
		m := out.m.kron(o.m)
		rowDims := append(out.RowDims(), o.rowDims...)
		colDims := append(out.ColDims(), o.colDims...)
		kind := kindFor(rowDims, colDims)
		if out.kind == Super && o.kind == Super {
			kind = Super
		}
		out = fromMatrix(m, rowDims, colDims, kind)
	}
	return out, nil
}

// strides returns row-major strides for the given dims.
func strides(dims []int) []int {
	st := make([]int, len(dims))
	acc := 1
	for k := len(dims) - 1; k >= 0; k-- {
		st[k] = acc
		acc *= dims[k]
	}
	return st
}

// subOffsets enumerates, in row-major order, the flat offsets contributed by
// the subsystems at positions idxs.
func subOffsets(dims, st []int, idxs []int) []int {
	total := 1
	for _, k := range idxs {
		total *= dims[k]
	}
	offsets := make([]int, total)
	counter := make([]int, len(idxs))
	for n := 0; n < total; n++ {
		off := 0
		for k, pos := range idxs {
			off += counter[k] * st[pos]
		}
		offsets[n] = off
		for k := len(idxs) - 1; k >= 0; k-- {
			counter[k]++
			if counter[k] < dims[idxs[k]] {
				break
			}
			counter[k] = 0
		}
	}
	return offsets
}

// PartialTrace traces out every subsystem not listed in keep, returning the
// reduced operator over the kept subsystems in their original relative
// order. The contraction works on stride-decomposed indices, equivalent to
// reshaping into a rank-4 tensor and contracting the traced axes.
func PartialTrace(q *Qobj, keep []int) (*Qobj, error) {
	if !q.IsSquare() {
		return nil, fmt.Errorf("%w: partial trace of %v x %v", ErrNotSquare, q.rowDims, q.colDims)
	}
	dims := q.rowDims
	n := len(dims)
	seen := make(map[int]bool, len(keep))
	kept := append([]int(nil), keep...)
	sort.Ints(kept)
	for _, k := range kept {
		if k < 0 || k >= n {
			return nil, fmt.Errorf("%w: keep index %d with %d subsystems", ErrBadSubsystem, k, n)
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: duplicate keep index %d", ErrBadSubsystem, k)
		}
		seen[k] = true
	}
	traced := make([]int, 0, n-len(kept))
	for k := 0; k < n; k++ {
		if !seen[k] {
			traced = append(traced, k)
		}
	}

	keepDims := make([]int, len(kept))
	for i, k := range kept {
		keepDims[i] = dims[k]
	}
	dK := prod(keepDims)
	st := strides(dims)
	keepOff := subOffsets(dims, st, kept)
	trOff := subOffsets(dims, st, traced)

	N, _ := q.m.shape()
	out := make([]complex128, dK*dK)

	if s, ok := q.m.(*csr); ok {
		// Sparse path: decompose each stored nonzero; entries whose traced
		// row and column parts differ contribute nothing.
		trPart := func(idx int) (keepIdx, traceKey int) {
			kk, tk := 0, 0
			for pos := 0; pos < n; pos++ {
				digit := (idx / st[pos]) % dims[pos]
				if seen[pos] {
					kk = kk*dims[pos] + digit
				} else {
					tk = tk*dims[pos] + digit
				}
			}
			return kk, tk
		}
		for i := 0; i < s.r; i++ {
			ki, ti := trPart(i)
			for p := s.rowPtr[i]; p < s.rowPtr[i+1]; p++ {
				kj, tj := trPart(s.colIdx[p])
				if ti == tj {
					out[ki*dK+kj] += s.vals[p]
				}
			}
		}
	} else {
		d := q.m.toDense()
		for a := 0; a < dK; a++ {
			for b := 0; b < dK; b++ {
				var acc complex128
				for _, t := range trOff {
					acc += d.v[(keepOff[a]+t)*N+(keepOff[b]+t)]
				}
				out[a*dK+b] = acc
			}
		}
	}
	return New(keepDims, keepDims, out)
}

// Permute reorders the subsystems of a ket, bra or square operator according
// to order, where order[k] names the original position of the subsystem that
// ends up at position k.
func Permute(q *Qobj, order []int) (*Qobj, error) {
	dims := q.rowDims
	if q.kind == Bra {
		dims = q.colDims
	}
	n := len(dims)
	if len(order) != n {
		return nil, fmt.Errorf("%w: permutation of length %d over %d subsystems", ErrBadSubsystem, len(order), n)
	}
	seen := make([]bool, n)
	for _, p := range order {
		if p < 0 || p >= n || seen[p] {
			return nil, fmt.Errorf("%w: invalid permutation %v", ErrBadSubsystem, order)
		}
		seen[p] = true
	}
	if q.kind == Oper && !q.IsSquare() {
		return nil, fmt.Errorf("%w: permute of %v x %v", ErrNotSquare, q.rowDims, q.colDims)
	}

	newDims := make([]int, n)
	for k, p := range order {
		newDims[k] = dims[p]
	}
	oldSt := strides(dims)
	// mapping[i] is the new flat index of old flat index i.
	total := prod(dims)
	newSt := strides(newDims)
	mapping := make([]int, total)
	for i := 0; i < total; i++ {
		ni := 0
		for k, p := range order {
			digit := (i / oldSt[p]) % dims[p]
			ni += digit * newSt[k]
		}
		mapping[i] = ni
	}

	d := q.m.toDense()
	switch q.kind {
	case Ket:
		out := make([]complex128, total)
		for i := 0; i < total; i++ {
			out[mapping[i]] = d.v[i]
		}
		return New(newDims, []int{1}, out)
	case Bra:
		out := make([]complex128, total)
		for j := 0; j < total; j++ {
			out[mapping[j]] = d.v[j]
		}
		return New([]int{1}, newDims, out)
	default:
		out := make([]complex128, total*total)
		for i := 0; i < total; i++ {
			for j := 0; j < total; j++ {
				out[mapping[i]*total+mapping[j]] = d.v[i*total+j]
			}
		}
		return New(newDims, newDims, out)
	}
}
