package quant

import (
	"errors"
	"math/rand"
	"testing"
)

func TestTensorDimsAndValues(t *testing.T) {
	xz, err := Tensor(SigmaX(), SigmaZ())
	if err != nil {
		t.Fatal(err)
	}
	r, c := xz.Shape()
	if r != 4 || c != 4 {
		t.Fatalf("shape = %dx%d, want 4x4", r, c)
	}
	rd := xz.RowDims()
	if len(rd) != 2 || rd[0] != 2 || rd[1] != 2 {
		t.Fatalf("row dims = %v, want [2 2]", rd)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := SigmaX().At(i/2, j/2) * SigmaZ().At(i%2, j%2)
			if !almostEq(xz.At(i, j), want, 1e-15) {
				t.Errorf("kron[%d,%d] = %v, want %v", i, j, xz.At(i, j), want)
			}
		}
	}
}

func TestTensorAssociative(t *testing.T) {
	a, b, c := SigmaX(), SigmaY(), Num(3)

	left, err := Tensor(a, b)
	if err != nil {
		t.Fatal(err)
	}
	left, err = Tensor(left, c)
	if err != nil {
		t.Fatal(err)
	}
	right, err := Tensor(b, c)
	if err != nil {
		t.Fatal(err)
	}
	right, err = Tensor(a, right)
	if err != nil {
		t.Fatal(err)
	}
	flat, err := Tensor(a, b, c)
	if err != nil {
		t.Fatal(err)
	}

	n, _ := flat.Shape()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !almostEq(left.At(i, j), right.At(i, j), 1e-14) ||
				!almostEq(left.At(i, j), flat.At(i, j), 1e-14) {
				t.Fatalf("association mismatch at %d,%d", i, j)
			}
		}
	}
	if rd := flat.RowDims(); len(rd) != 3 || rd[2] != 3 {
		t.Errorf("flat dims = %v, want [2 2 3]", rd)
	}
}

func TestTensorKets(t *testing.T) {
	zero, _ := Basis(2, 0)
	one, _ := Basis(2, 1)
	psi, err := Tensor(zero, one)
	if err != nil {
		t.Fatal(err)
	}
	if psi.Kind() != Ket {
		t.Fatalf("kind = %v, want ket", psi.Kind())
	}
	// |01> occupies index 0*2+1.
	if !almostEq(psi.At(1, 0), 1, 1e-15) {
		t.Errorf("|01> amplitude at 1 = %v", psi.At(1, 0))
	}
}

func randomOper(rng *rand.Rand, dims []int) *Qobj {
	n := 1
	for _, d := range dims {
		n *= d
	}
	q, err := NewDense(dims, dims, randomDense(rng, n, n))
	if err != nil {
		panic(err)
	}
	return q
}

func TestPartialTraceOfProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	a := randomOper(rng, []int{2})
	b := randomOper(rng, []int{3})

	ab, err := Tensor(a, b)
	if err != nil {
		t.Fatal(err)
	}

	// Tracing out the second factor leaves Tr(b) * a.
	got, err := PartialTrace(ab, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	tb := b.Tr()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !almostEq(got.At(i, j), tb*a.At(i, j), 1e-12) {
				t.Errorf("ptrace[%d,%d] = %v, want %v", i, j, got.At(i, j), tb*a.At(i, j))
			}
		}
	}

	// And the other way round.
	got, err = PartialTrace(ab, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	ta := a.Tr()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !almostEq(got.At(i, j), ta*b.At(i, j), 1e-12) {
				t.Errorf("ptrace[%d,%d] = %v, want %v", i, j, got.At(i, j), ta*b.At(i, j))
			}
		}
	}
}

func TestPartialTracePreservesTrace(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	rho := randomOper(rng, []int{2, 2, 3})
	for _, keep := range [][]int{{0}, {1}, {2}, {0, 1}, {0, 2}, {1, 2}} {
		red, err := PartialTrace(rho, keep)
		if err != nil {
			t.Fatalf("keep %v: %v", keep, err)
		}
		if !almostEq(red.Tr(), rho.Tr(), 1e-11) {
			t.Errorf("keep %v: trace %v, want %v", keep, red.Tr(), rho.Tr())
		}
	}
}

func TestPartialTraceSparse(t *testing.T) {
	a := Num(3)
	b := Qeye(2)
	ab, err := Tensor(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !ab.IsSparse() {
		t.Skip("layout heuristic kept it dense")
	}
	got, err := PartialTrace(ab, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !almostEq(got.At(i, j), 2*a.At(i, j), 1e-12) {
				t.Errorf("sparse ptrace[%d,%d] = %v", i, j, got.At(i, j))
			}
		}
	}
}

func TestPartialTraceBadSubsystem(t *testing.T) {
	rho := randomOper(rand.New(rand.NewSource(1)), []int{2, 2})
	if _, err := PartialTrace(rho, []int{2}); !errors.Is(err, ErrBadSubsystem) {
		t.Errorf("err = %v, want ErrBadSubsystem", err)
	}
	if _, err := PartialTrace(rho, []int{0, 0}); !errors.Is(err, ErrBadSubsystem) {
		t.Errorf("duplicate keep err = %v, want ErrBadSubsystem", err)
	}
	if _, err := PartialTrace(rho, []int{-1}); !errors.Is(err, ErrBadSubsystem) {
		t.Errorf("negative keep err = %v, want ErrBadSubsystem", err)
	}
}

func TestPermuteSwapsFactors(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	a := randomOper(rng, []int{2})
	b := randomOper(rng, []int{3})
	ab, err := Tensor(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Tensor(b, a)
	if err != nil {
		t.Fatal(err)
	}

	swapped, err := Permute(ab, []int{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	rd := swapped.RowDims()
	if rd[0] != 3 || rd[1] != 2 {
		t.Fatalf("permuted dims = %v, want [3 2]", rd)
	}
	n, _ := swapped.Shape()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !almostEq(swapped.At(i, j), ba.At(i, j), 1e-12) {
				t.Fatalf("permute mismatch at %d,%d", i, j)
			}
		}
	}

	// Permuting back restores the original.
	back, err := Permute(swapped, []int{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !almostEq(back.At(i, j), ab.At(i, j), 1e-12) {
				t.Fatalf("roundtrip mismatch at %d,%d", i, j)
			}
		}
	}
}
