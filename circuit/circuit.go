// Package circuit builds parameterized quantum circuits and simulates them
// on dense statevectors.
package circuit

import (
	"slices"

	"github.com/pkg/errors"
)

// Kind identifies a gate type.
type Kind string

const (
	Hadamard Kind = "H"
	CZ       Kind = "CZ"
	RX       Kind = "RX"
	RY       Kind = "RY"
	RZ       Kind = "RZ"
	XX       Kind = "XX"
)

// Gate acts on one or two qubits. Qubit 0 is the most significant bit of
// the statevector index, matching the Kronecker product order of package
// qphase. Param indexes the parameter vector for rotation gates, and is -1
// for fixed gates. Theta is the rotation angle bound when the circuit was
// built, and is overridden by the params argument of State and Gradient.
type Gate struct {
	Kind  Kind
	Wires [2]int
	Theta float64
	Param int
}

// Circuit appends the gates of an n qubit circuit, binding rotation angles
// from params. It returns the number of parameters consumed.
type Circuit func(n int, params []float64, gates *[]Gate) int

// placeholderLen is the parameter vector length used for discovering the
// parameter count of a circuit. It must exceed the consumption of any
// registered circuit.
const placeholderLen = 1 << 14

var registry = map[string]Circuit{
	"ising": Ising,
	"annni": ANNNI,
}

// Get looks up a registered circuit by name.
func Get(name string) (Circuit, error) {
	c, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("%s not in %v", name, Names())
	}
	return c, nil
}

// Names lists the registered circuits.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NumParams is the number of parameters of an n qubit circuit.
func NumParams(c Circuit, n int) int {
	params := make([]float64, placeholderLen)
	var gates []Gate
	return c(n, params, &gates)
}

// Ising is a hardware efficient ansatz of Hadamard walls, CZ entangling
// chains, and RX rotation walls.
func Ising(n int, params []float64, gates *[]Gate) int {
	idx := 0
	for range 6 {
		for q := 0; q < n; q++ {
			*gates = append(*gates, Gate{Kind: Hadamard, Wires: [2]int{q, -1}, Param: -1})
		}
		for q := 0; q+1 < n; q++ {
			*gates = append(*gates, Gate{Kind: CZ, Wires: [2]int{q, q + 1}, Param: -1})
		}
		idx = wall(RX, n, params, idx, gates)
	}
	return wall(RX, n, params, idx, gates)
}

// ANNNI interleaves RY rotation walls with XX entanglers along nearest and
// next nearest neighbour bonds, ending in an RY and an RX wall.
func ANNNI(n int, params []float64, gates *[]Gate) int {
	idx := wall(RY, n, params, 0, gates)
	for range 2 {
		idx = entangle(1, n, params, idx, gates)
		idx = wall(RY, n, params, idx, gates)
		idx = entangle(2, n, params, idx, gates)
	}
	idx = wall(RY, n, params, idx, gates)
	return wall(RX, n, params, idx, gates)
}

func wall(kind Kind, n int, params []float64, idx int, gates *[]Gate) int {
	for q := 0; q < n; q++ {
		*gates = append(*gates, Gate{Kind: kind, Wires: [2]int{q, -1}, Theta: params[idx], Param: idx})
		idx++
	}
	return idx
}

func entangle(dist, n int, params []float64, idx int, gates *[]Gate) int {
	for q := 0; q+dist < n; q++ {
		*gates = append(*gates, Gate{Kind: XX, Wires: [2]int{q, q + dist}, Theta: params[idx], Param: idx})
		idx++
	}
	return idx
}
