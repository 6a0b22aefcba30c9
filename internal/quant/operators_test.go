package quant

import (
	"math"
	"math/rand"
	"testing"
)

func TestPauliAlgebra(t *testing.T) {
	// sigma_i^2 = I
	for _, p := range []*Qobj{SigmaX(), SigmaY(), SigmaZ()} {
		sq, err := p.Mul(p)
		if err != nil {
			t.Fatal(err)
		}
		eye := Qeye(2)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				if !almostEq(sq.At(i, j), eye.At(i, j), 1e-15) {
					t.Fatalf("pauli square not identity at %d,%d", i, j)
				}
			}
		}
	}

	// sigma_+ = (sigma_x + i sigma_y)/2
	xy, err := SigmaX().Add(SigmaY().Scale(1i))
	if err != nil {
		t.Fatal(err)
	}
	sp := xy.Scale(0.5)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !almostEq(sp.At(i, j), SigmaP().At(i, j), 1e-15) {
				t.Fatalf("sigma_+ mismatch at %d,%d: %v vs %v", i, j, sp.At(i, j), SigmaP().At(i, j))
			}
		}
	}

	// sigma_- is the adjoint of sigma_+
	sm := SigmaP().Dag()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !almostEq(sm.At(i, j), SigmaM().At(i, j), 1e-15) {
				t.Fatalf("sigma_- mismatch at %d,%d", i, j)
			}
		}
	}
}

func TestLadderOperators(t *testing.T) {
	n := 5
	a := Destroy(n)
	ad := Create(n)

	// a^dag a = N
	num, err := ad.Mul(a)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if !almostEq(num.At(i, i), complex(float64(i), 0), 1e-12) {
			t.Errorf("number operator diag[%d] = %v", i, num.At(i, i))
		}
	}
	want := Num(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !almostEq(num.At(i, j), want.At(i, j), 1e-12) {
				t.Fatalf("a^dag a != Num at %d,%d", i, j)
			}
		}
	}

	// [a, a^dag] = 1 on all but the last level of the truncated space.
	aad, _ := a.Mul(ad)
	ada, _ := ad.Mul(a)
	comm, err := aad.Sub(ada)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n-1; i++ {
		if !almostEq(comm.At(i, i), 1, 1e-12) {
			t.Errorf("commutator diag[%d] = %v, want 1", i, comm.At(i, i))
		}
	}
	if !almostEq(comm.At(n-1, n-1), complex(float64(1-n), 0), 1e-12) {
		t.Errorf("truncation artifact diag[%d] = %v, want %d", n-1, comm.At(n-1, n-1), 1-n)
	}

	if a.Dag() == nil || !almostEq(a.Dag().At(1, 0), ad.At(1, 0), 1e-15) {
		t.Error("Create is not the adjoint of Destroy")
	}
}

func TestBasis(t *testing.T) {
	for i := 0; i < 3; i++ {
		ket, err := Basis(3, i)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(ket.Norm()-1) > 1e-15 {
			t.Errorf("basis %d norm = %v", i, ket.Norm())
		}
		if !almostEq(ket.At(i, 0), 1, 1e-15) {
			t.Errorf("basis %d amplitude = %v", i, ket.At(i, 0))
		}
	}
	if _, err := Basis(3, 3); err == nil {
		t.Error("expected error for out-of-range basis index")
	}
	if _, err := Basis(0, 0); err == nil {
		t.Error("expected error for empty space")
	}
}

func TestKet2DM(t *testing.T) {
	ket, err := New([]int{2}, []int{1}, []complex128{complex(1/math.Sqrt2, 0), complex(0, 1/math.Sqrt2)})
	if err != nil {
		t.Fatal(err)
	}
	rho, err := Ket2DM(ket)
	if err != nil {
		t.Fatal(err)
	}
	if rho.Kind() != Oper {
		t.Fatalf("kind = %v, want oper", rho.Kind())
	}
	if !almostEq(rho.Tr(), 1, 1e-12) {
		t.Errorf("trace = %v, want 1", rho.Tr())
	}
	if !rho.IsHermitian() {
		t.Error("projector should be hermitian")
	}
	// rho^2 = rho for a pure state.
	sq, err := rho.Mul(rho)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !almostEq(sq.At(i, j), rho.At(i, j), 1e-12) {
				t.Fatalf("rho^2 != rho at %d,%d", i, j)
			}
		}
	}

	if _, err := Ket2DM(SigmaX()); err == nil {
		t.Error("expected error for non-ket input")
	}
}

func TestExpect(t *testing.T) {
	up, _ := Basis(2, 0)
	down, _ := Basis(2, 1)

	for _, tc := range []struct {
		name  string
		state *Qobj
		want  complex128
	}{
		{"up ket", up, 1},
		{"down ket", down, -1},
	} {
		got, err := Expect(SigmaZ(), tc.state)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !almostEq(got, tc.want, 1e-12) {
			t.Errorf("%s: <sigma_z> = %v, want %v", tc.name, got, tc.want)
		}
	}

	// Density-matrix path agrees with the ket path.
	plus, err := up.Add(down)
	if err != nil {
		t.Fatal(err)
	}
	plus = plus.Unit()
	rho, err := Ket2DM(plus)
	if err != nil {
		t.Fatal(err)
	}
	ek, err := Expect(SigmaX(), plus)
	if err != nil {
		t.Fatal(err)
	}
	er, err := Expect(SigmaX(), rho)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEq(ek, 1, 1e-12) || !almostEq(er, ek, 1e-12) {
		t.Errorf("<sigma_x> ket=%v dm=%v, want 1", ek, er)
	}

	if _, err := Expect(SigmaZ(), Destroy(3)); err == nil {
		t.Error("expected error for mismatched dims")
	}
}

func TestExpectVecMatchesExpect(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	psi, err := NewDense([]int{4}, []int{1}, randomDense(rng, 4, 1))
	if err != nil {
		t.Fatal(err)
	}
	psi = psi.Unit()
	op := randomOper(rng, []int{4})

	want, err := Expect(op, psi)
	if err != nil {
		t.Fatal(err)
	}
	tmp := make([]complex128, 4)
	got := ExpectVec(op, psi.DenseSlice(), tmp)
	if !almostEq(got, want, 1e-12) {
		t.Errorf("ExpectVec = %v, want %v", got, want)
	}
}

func TestExpectSuperVecMatchesTrace(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	rho := randomOper(rng, []int{3})
	op := randomOper(rng, []int{3})

	erho, err := op.Mul(rho)
	if err != nil {
		t.Fatal(err)
	}
	want := erho.Tr()

	v, err := Vectorize(rho)
	if err != nil {
		t.Fatal(err)
	}
	got := ExpectSuperVec(op, v.DenseSlice())
	if !almostEq(got, want, 1e-12) {
		t.Errorf("ExpectSuperVec = %v, want %v", got, want)
	}
}
