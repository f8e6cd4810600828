package circuit

import (
	"fmt"
	"math"

	"github.com/fumin/tensor"
)

var (
	pauliX = [][]complex64{
		{0, 1},
		{1, 0},
	}
	pauliY = [][]complex64{
		{0, -1i},
		{1i, 0},
	}
	pauliZ = [][]complex64{
		{1, 0},
		{0, -1},
	}
	hadamard = [][]complex64{
		{invSqrt2, invSqrt2},
		{invSqrt2, -invSqrt2},
	}
	// cz is diag(1, 1, 1, -1) with axes (out1, out2, in1, in2).
	cz = [][][][]complex64{
		{
			{{1, 0}, {0, 0}},
			{{0, 1}, {0, 0}},
		},
		{
			{{0, 0}, {1, 0}},
			{{0, 0}, {0, -1}},
		},
	}
	// xxGenerator is X⊗X with axes (out1, out2, in1, in2).
	xxGenerator = [][][][]complex64{
		{
			{{0, 0}, {0, 1}},
			{{0, 0}, {1, 0}},
		},
		{
			{{0, 1}, {0, 0}},
			{{1, 0}, {0, 0}},
		},
	}
)

const invSqrt2 = complex64(0.7071067811865476)

// Buffers is scratch space shared by State and Gradient.
type Buffers struct {
	prod *tensor.Dense
	gen  *tensor.Dense
}

func NewBuffers() *Buffers {
	return &Buffers{prod: tensor.Zeros(1), gen: tensor.Zeros(1)}
}

// State applies gates to the all zeros state of n qubits. Rotation angles
// come from params indexed by Gate.Param, falling back to the bound
// Gate.Theta when params is nil.
func State(dst *tensor.Dense, n int, gates []Gate, params []float64, bufs *Buffers) *tensor.Dense {
	dst.Reset(1 << n)
	dst.SetAt([]int{0}, 1)
	for _, g := range gates {
		Apply(dst, n, g, theta(g, params), bufs)
	}
	return dst
}

// Apply multiplies a gate into state.
func Apply(state *tensor.Dense, n int, g Gate, theta float64, bufs *Buffers) {
	switch g.Kind {
	case Hadamard:
		apply1(state, n, g.Wires[0], hadamard, bufs)
	case CZ:
		apply2(state, n, g.Wires, cz, bufs)
	case RX, RY, RZ:
		apply1(state, n, g.Wires[0], rot(g.Kind, theta), bufs)
	case XX:
		apply2(state, n, g.Wires, xx(theta), bufs)
	default:
		panic(fmt.Sprintf("%#v", g))
	}
}

// Gradient accumulates into grads the gradient of a loss whose derivative
// is 2·Re⟨λ|∂ψ/∂θ⟩, by back propagating the adjoint state λ through the
// gates. psi must be the state after all gates. Both psi and lambda are
// consumed as scratch.
func Gradient(grads []float64, n int, gates []Gate, params []float64, psi, lambda *tensor.Dense, bufs *Buffers) {
	for k := len(gates) - 1; k >= 0; k-- {
		g := gates[k]
		th := theta(g, params)

		if g.Param >= 0 {
			generator(bufs.gen, psi, n, g, bufs)
			grads[g.Param] += float64(imag(Dot(lambda, bufs.gen)))
		}

		applyDagger(psi, n, g, th, bufs)
		applyDagger(lambda, n, g, th, bufs)
	}
}

// Dot computes ⟨a|b⟩.
func Dot(a, b *tensor.Dense) complex64 {
	var sum complex64
	for ijk, v := range a.All() {
		sum += conj(v) * b.At(ijk...)
	}
	return sum
}

// Axpy computes dst += c*x.
func Axpy(dst *tensor.Dense, c complex64, x *tensor.Dense) {
	for ijk, v := range x.All() {
		dst.SetAt(ijk, dst.At(ijk...)+c*v)
	}
}

func theta(g Gate, params []float64) float64 {
	if g.Param >= 0 && params != nil {
		return params[g.Param]
	}
	return g.Theta
}

// apply1 multiplies the single qubit matrix m into qubit q.
func apply1(state *tensor.Dense, n, q int, m [][]complex64, bufs *Buffers) {
	pre, post := 1<<q, 1<<(n-q-1)
	s := state.Reshape(pre, 2, post)
	tensor.Contract(bufs.prod, tensor.T2(m), s, [][2]int{{1, 1}})
	resetCopy(state, bufs.prod.Transpose(1, 0, 2))
	*state = *state.Reshape(1 << n)
}

// apply2 multiplies the two qubit tensor m with axes (out1, out2, in1, in2)
// into the qubit pair wires, which must be in increasing order.
func apply2(state *tensor.Dense, n int, wires [2]int, m [][][][]complex64, bufs *Buffers) {
	q1, q2 := wires[0], wires[1]
	if q1 >= q2 {
		panic(fmt.Sprintf("%d %d", q1, q2))
	}
	pre, mid, post := 1<<q1, 1<<(q2-q1-1), 1<<(n-q2-1)
	s := state.Reshape(pre, 2, mid, 2, post)
	tensor.Contract(bufs.prod, tensor.T4(m), s, [][2]int{{2, 1}, {3, 3}})
	resetCopy(state, bufs.prod.Transpose(2, 0, 3, 1, 4))
	*state = *state.Reshape(1 << n)
}

// applyDagger multiplies the inverse of a gate into state. Rotations invert
// by negating the angle, Hadamard and CZ are involutory.
func applyDagger(state *tensor.Dense, n int, g Gate, theta float64, bufs *Buffers) {
	switch g.Kind {
	case Hadamard, CZ:
		Apply(state, n, g, 0, bufs)
	default:
		Apply(state, n, g, -theta, bufs)
	}
}

// generator computes dst = G @ psi, where G is the generator of a rotation
// gate, so that the gate is exp(-iθG/2).
func generator(dst, psi *tensor.Dense, n int, g Gate, bufs *Buffers) {
	resetCopy(dst, psi)
	switch g.Kind {
	case RX:
		apply1(dst, n, g.Wires[0], pauliX, bufs)
	case RY:
		apply1(dst, n, g.Wires[0], pauliY, bufs)
	case RZ:
		apply1(dst, n, g.Wires[0], pauliZ, bufs)
	case XX:
		apply2(dst, n, g.Wires, xxGenerator, bufs)
	default:
		panic(fmt.Sprintf("%#v", g))
	}
}

func rot(kind Kind, theta float64) [][]complex64 {
	c := float32(math.Cos(theta / 2))
	s := float32(math.Sin(theta / 2))
	switch kind {
	case RX:
		return [][]complex64{
			{complex(c, 0), complex(0, -s)},
			{complex(0, -s), complex(c, 0)},
		}
	case RY:
		return [][]complex64{
			{complex(c, 0), complex(-s, 0)},
			{complex(s, 0), complex(c, 0)},
		}
	default:
		return [][]complex64{
			{complex(c, -s), 0},
			{0, complex(c, s)},
		}
	}
}

// xx is exp(-iθ/2 X⊗X) with axes (out1, out2, in1, in2).
func xx(theta float64) [][][][]complex64 {
	c := complex(float32(math.Cos(theta/2)), 0)
	is := complex(0, -float32(math.Sin(theta/2)))
	return [][][][]complex64{
		{
			{{c, 0}, {0, is}},
			{{0, c}, {is, 0}},
		},
		{
			{{0, is}, {c, 0}},
			{{is, 0}, {0, c}},
		},
	}
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}
