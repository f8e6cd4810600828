package circuit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/fumin/tensor"

	"github.com/SaverioMonaco/qphase/mat"
)

func TestNumParams(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		n    int
		num  int
	}{
		{name: "ising", n: 2, num: 14},
		{name: "ising", n: 3, num: 21},
		{name: "annni", n: 2, num: 12},
		{name: "annni", n: 3, num: 21},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s%d", test.name, test.n), func(t *testing.T) {
			t.Parallel()
			c, err := Get(test.name)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if num := NumParams(c, test.n); num != test.num {
				t.Fatalf("%d, expected %d", num, test.num)
			}
		})
	}

	if _, err := Get("ghz"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestState(t *testing.T) {
	t.Parallel()
	theta := 0.7
	c := complex(float32(math.Cos(theta/2)), 0)
	ms := complex(0, -float32(math.Sin(theta/2)))
	tests := []struct {
		desc  string
		n     int
		gates []Gate
		state []complex64
	}{
		{
			desc:  "hadamard",
			n:     1,
			gates: []Gate{{Kind: Hadamard, Wires: [2]int{0, -1}, Param: -1}},
			state: []complex64{invSqrt2, invSqrt2},
		},
		{
			desc:  "rx",
			n:     1,
			gates: []Gate{{Kind: RX, Wires: [2]int{0, -1}, Theta: theta, Param: -1}},
			state: []complex64{c, ms},
		},
		{
			desc: "cz",
			n:    2,
			gates: []Gate{
				{Kind: Hadamard, Wires: [2]int{0, -1}, Param: -1},
				{Kind: Hadamard, Wires: [2]int{1, -1}, Param: -1},
				{Kind: CZ, Wires: [2]int{0, 1}, Param: -1},
			},
			state: []complex64{0.5, 0.5, 0.5, -0.5},
		},
		{
			desc:  "xx",
			n:     2,
			gates: []Gate{{Kind: XX, Wires: [2]int{0, 1}, Theta: theta, Param: -1}},
			state: []complex64{c, 0, 0, ms},
		},
		{
			desc:  "xx distance two",
			n:     3,
			gates: []Gate{{Kind: XX, Wires: [2]int{0, 2}, Theta: theta, Param: -1}},
			state: []complex64{c, 0, 0, 0, 0, ms, 0, 0},
		},
		{
			desc: "rz phase",
			n:    1,
			gates: []Gate{
				{Kind: Hadamard, Wires: [2]int{0, -1}, Param: -1},
				{Kind: RZ, Wires: [2]int{0, -1}, Theta: theta, Param: -1},
			},
			state: []complex64{
				invSqrt2 * complex(float32(math.Cos(theta/2)), -float32(math.Sin(theta/2))),
				invSqrt2 * complex(float32(math.Cos(theta/2)), float32(math.Sin(theta/2))),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			t.Parallel()
			bufs := NewBuffers()
			dst := tensor.Zeros(1)
			State(dst, test.n, test.gates, nil, bufs)
			if fmt.Sprintf("%v", dst.Shape()) != fmt.Sprintf("[%d]", 1<<test.n) {
				t.Fatalf("%v", dst.Shape())
			}
			for i, e := range test.state {
				if d := cmplxAbs(dst.At(i) - e); d > 1e-6 {
					t.Fatalf("%d: %v, expected %v", i, dst.At(i), e)
				}
			}
		})
	}
}

func TestStateNorm(t *testing.T) {
	t.Parallel()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c, err := Get(name)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			const n = 3
			params := randParams(NumParams(c, n))
			var gates []Gate
			c(n, params, &gates)

			bufs := NewBuffers()
			psi := State(tensor.Zeros(1), n, gates, params, bufs)
			norm := real(Dot(psi, psi))
			if math.Abs(float64(norm)-1) > 1e-5 {
				t.Fatalf("%v", norm)
			}
		})
	}
}

// TestGradientEnergy checks adjoint gradients of ⟨ψ|H|ψ⟩ against central
// finite differences.
func TestGradientEnergy(t *testing.T) {
	t.Parallel()
	const n = 2
	h := mat.M([][]complex64{
		{-2, 0, 0, -1},
		{0, 0, -1, 0},
		{0, -1, 0, 0},
		{-1, 0, 0, 2},
	})
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c, err := Get(name)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			params := randParams(NumParams(c, n))
			var gates []Gate
			c(n, params, &gates)
			bufs := NewBuffers()

			energy := func(params []float64) float64 {
				psi := State(tensor.Zeros(1), n, gates, params, bufs)
				hpsi := h.MulVec(tensor.Zeros(1), psi)
				return float64(real(Dot(psi, hpsi)))
			}

			psi := State(tensor.Zeros(1), n, gates, params, bufs)
			lambda := h.MulVec(tensor.Zeros(1), psi)
			grads := make([]float64, len(params))
			Gradient(grads, n, gates, params, psi, lambda, bufs)

			checkFiniteDiff(t, grads, params, energy)
		})
	}
}

// TestGradientFidelity checks adjoint gradients of |⟨ψ|φ⟩|² against central
// finite differences.
func TestGradientFidelity(t *testing.T) {
	t.Parallel()
	const n = 2
	phi := tensor.Zeros(1 << n)
	phi.SetAt([]int{0}, complex(0.6, 0))
	phi.SetAt([]int{1}, complex(0, -0.8))

	c, err := Get("annni")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	params := randParams(NumParams(c, n))
	var gates []Gate
	c(n, params, &gates)
	bufs := NewBuffers()

	fidelity := func(params []float64) float64 {
		psi := State(tensor.Zeros(1), n, gates, params, bufs)
		b := Dot(psi, phi)
		return float64(real(b)*real(b) + imag(b)*imag(b))
	}

	psi := State(tensor.Zeros(1), n, gates, params, bufs)
	b := Dot(psi, phi)
	lambda := tensor.Zeros(1 << n)
	Axpy(lambda, conj(b), phi)
	grads := make([]float64, len(params))
	Gradient(grads, n, gates, params, psi, lambda, bufs)

	checkFiniteDiff(t, grads, params, fidelity)
}

func checkFiniteDiff(t *testing.T, grads, params []float64, loss func([]float64) float64) {
	t.Helper()
	const eps = 1e-2
	perturbed := make([]float64, len(params))
	for j := range params {
		copy(perturbed, params)
		perturbed[j] = params[j] + eps
		up := loss(perturbed)
		perturbed[j] = params[j] - eps
		down := loss(perturbed)

		fd := (up - down) / (2 * eps)
		if math.Abs(grads[j]-fd) > 2e-3 {
			t.Fatalf("%d: %v, expected %v", j, grads[j], fd)
		}
	}
}

func randParams(num int) []float64 {
	params := make([]float64, num)
	for i := range params {
		params[i] = (rand.Float64()*2 - 1) * math.Pi
	}
	return params
}

func cmplxAbs(c complex64) float64 {
	return math.Sqrt(float64(real(c)*real(c) + imag(c)*imag(c)))
}
