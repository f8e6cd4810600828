package mat

import (
	"fmt"
	"math"
	"testing"

	"github.com/fumin/tensor"
)

func TestAdd(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a          *COO
		c          complex64
		b          *COO
		z          *COO
		numNonZero int
	}{
		{
			a: M([][]complex64{
				{1, 0},
				{0, 2i},
			}),
			c: 1i,
			b: M([][]complex64{
				{1i, 0},
				{2, -5},
			}),
			z: M([][]complex64{
				{0, 0},
				{2i, -3i},
			}),
			numNonZero: 2,
		},
		{
			a: M([][]complex64{
				{1, 2},
				{0, 3},
			}),
			c: 2,
			b: M([][]complex64{
				{0, -1},
				{5, 0},
			}),
			z: M([][]complex64{
				{1, 0},
				{10, 3},
			}),
			numNonZero: 3,
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s", test.a), func(t *testing.T) {
			t.Parallel()
			test.a.Add(test.c, test.b)
			if !test.a.Equal(test.z) {
				t.Fatalf("%s, expected %s", test.a, test.z)
			}
			if len(test.a.Data) != test.numNonZero {
				t.Fatalf("%d, expected %d", len(test.a.Data), test.numNonZero)
			}
		})
	}
}

func TestKron(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a *COO
		b *COO
		c *COO
	}{
		{
			a: M(PauliX),
			b: M(PauliZ),
			c: M([][]complex64{
				{0, 0, 1, 0},
				{0, 0, 0, -1},
				{1, 0, 0, 0},
				{0, -1, 0, 0},
			}),
		},
		// Scalar kronecker.
		{
			a: M([][]complex64{{1}}),
			b: M([][]complex64{
				{1, 2},
				{3, 4},
			}),
			c: M([][]complex64{
				{1, 2},
				{3, 4},
			}),
		},
		{
			a: COOIdentity(2),
			b: M(PauliY),
			c: M([][]complex64{
				{0, -1i, 0, 0},
				{1i, 0, 0, 0},
				{0, 0, 0, -1i},
				{0, 0, 1i, 0},
			}),
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s", test.a), func(t *testing.T) {
			t.Parallel()
			test.a.Kron(test.b)
			if !test.a.Equal(test.c) {
				t.Fatalf("%s, expected %s", test.a, test.c)
			}
		})
	}
}

func TestMulVec(t *testing.T) {
	t.Parallel()
	m := M([][]complex64{
		{0, 1i},
		{-1i, 0},
	})
	x := tensor.Zeros(2)
	x.SetAt([]int{0}, 1)
	x.SetAt([]int{1}, 2)
	dst := tensor.Zeros(1)
	m.MulVec(dst, x)

	expected := []complex64{2i, -1i}
	for i, e := range expected {
		if dst.At(i) != e {
			t.Fatalf("%d: %v, expected %v", i, dst.At(i), e)
		}
	}
}

func TestEigen(t *testing.T) {
	t.Parallel()
	// Transverse field Ising on 2 spins, -X0X1 - h*(Z0+Z1) at h=2.
	const h = 2
	m := M([][]complex64{
		{-2 * h, 0, 0, -1},
		{0, 0, -1, 0},
		{0, -1, 0, 0},
		{-1, 0, 0, 2 * h},
	})
	vvs := m.Eigen()

	groundE := -math.Sqrt(4*h*h + 1)
	if math.Abs(vvs[0].Val-groundE) > 1e-6 {
		t.Fatalf("%v, expected %v", vvs[0].Val, groundE)
	}
	for i := 1; i < len(vvs); i++ {
		if vvs[i].Val < vvs[i-1].Val {
			t.Fatalf("%d: %v %v", i, vvs[i-1].Val, vvs[i].Val)
		}
	}

	// H @ v == val * v for every pair.
	for i, vv := range vvs {
		x := tensor.Zeros(4)
		for j, v := range vv.Vec {
			x.SetAt([]int{j}, v)
		}
		dst := tensor.Zeros(1)
		m.MulVec(dst, x)
		for j := 0; j < 4; j++ {
			diff := dst.At(j) - complex(float32(vv.Val), 0)*x.At(j)
			if cmplxAbs(diff) > 1e-5 {
				t.Fatalf("%d %d: %v", i, j, diff)
			}
		}
	}
}

func TestEigenGroundPair(t *testing.T) {
	t.Parallel()
	vvs := M([][]complex64{
		{1, 0},
		{0, -1},
	}).Eigen()

	if math.Abs(vvs[0].Val-(-1)) > 1e-9 {
		t.Fatalf("%v", vvs[0].Val)
	}
	if cmplxAbs(vvs[0].Vec[0]) > 1e-6 || math.Abs(cmplxAbs(vvs[0].Vec[1])-1) > 1e-6 {
		t.Fatalf("%v", vvs[0].Vec)
	}
}

func TestEigenNotReal(t *testing.T) {
	t.Parallel()
	m := M(PauliY)
	if _, err := m.eigen(); err == nil {
		t.Fatalf("expected error")
	}
}

func cmplxAbs(c complex64) float64 {
	return math.Sqrt(float64(real(c)*real(c) + imag(c)*imag(c)))
}

func ExampleCOO_Kron() {
	a := COOIdentity(2)
	a.Kron(M(PauliX))
	fmt.Println(a)
	// Output:
	// (0+0i) (1+0i) (0+0i) (0+0i)
	// (1+0i) (0+0i) (0+0i) (0+0i)
	// (0+0i) (0+0i) (0+0i) (1+0i)
	// (0+0i) (0+0i) (1+0i) (0+0i)
}
