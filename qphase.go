// Package qphase computes phase diagrams of spin chains with variational
// quantum circuits.
//
// The supported model is the axial next nearest neighbour Ising chain
//
//	H = -Σ XᵢXᵢ₊₁ + κ Σ XᵢXᵢ₊₂ - h Σ Zᵢ
//
// whose ground states are estimated over a (κ, h) grid, either exactly by
// diagonalization or variationally by the vqe package.
package qphase

import (
	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/SaverioMonaco/qphase/mat"
)

var (
	identity = mat.COOIdentity(2)
)

// ANNNI builds the axial next nearest neighbour Ising Hamiltonian on a chain
// of n spins with open boundaries. buf is scratch space for building the
// individual interaction terms.
func ANNNI(hamiltonian, buf *mat.COO, n int, kappa, h complex64) {
	hamiltonian.Zeros(1<<n, 1<<n)

	for i := 0; i < n; i++ {
		if i >= 1 {
			coupling(hamiltonian, -1, n, i-1, i, buf)
		}
		if i >= 2 && kappa != 0 {
			coupling(hamiltonian, kappa, n, i-2, i, buf)
		}
		magnetic(hamiltonian, n, i, h, buf)
	}
}

// TransverseFieldIsing is the κ=0 limit of ANNNI.
func TransverseFieldIsing(hamiltonian, buf *mat.COO, n int, h complex64) {
	ANNNI(hamiltonian, buf, n, 0, h)
}

func coupling(hamiltonian *mat.COO, c complex64, n, i, j int, system *mat.COO) {
	system.Scalar(1)
	for k := 0; k < n; k++ {
		switch {
		case k == i || k == j:
			system.Kron(mat.M(mat.PauliX))
		default:
			system.Kron(identity)
		}
	}

	hamiltonian.Add(c, system)
}

func magnetic(hamiltonian *mat.COO, n, i int, h complex64, system *mat.COO) {
	system.Scalar(1)
	for k := 0; k < n; k++ {
		switch {
		case k == i:
			system.Kron(mat.M(mat.PauliZ))
		default:
			system.Kron(identity)
		}
	}

	hamiltonian.Add(-h, system)
}

// Grid is a rectangular (κ, h) parameter grid together with the Hamiltonian
// of every point. Points are indexed row major, with κ as the slow axis.
type Grid struct {
	N      int
	Kappas []float64
	Hs     []float64

	// Mats[Index(ik, ih)] is the Hamiltonian at (Kappas[ik], Hs[ih]).
	Mats []*mat.COO

	// TrueE and TruePsi are the exact ground energies and states.
	// They start out empty and are filled in by vqe.VQE.Reference.
	TrueE   []float64
	TruePsi []*tensor.Dense

	// Recycle is the traversal order of the recycle training schedule.
	// It defaults to Snake, and may be replaced before training starts.
	Recycle []int
}

// NewGrid builds the Hamiltonians of an evenly spaced grid spanning
// [0, kappaMax] x [0, hMax].
func NewGrid(n, nKappas, nHs int, kappaMax, hMax float64) (*Grid, error) {
	if nKappas < 1 || nHs < 1 {
		return nil, errors.Errorf("%d %d", nKappas, nHs)
	}
	return GridAxes(n, Linspace(0, kappaMax, nKappas), Linspace(0, hMax, nHs))
}

// GridAxes builds the Hamiltonians of explicit grid axes.
func GridAxes(n int, kappas, hs []float64) (*Grid, error) {
	if n < 1 {
		return nil, errors.Errorf("%d spins", n)
	}
	if len(kappas) < 1 || len(hs) < 1 {
		return nil, errors.Errorf("%d %d", len(kappas), len(hs))
	}

	g := &Grid{N: n, Kappas: kappas, Hs: hs}
	buf := mat.COOZeros(1, 1)
	for _, kappa := range g.Kappas {
		for _, h := range g.Hs {
			hamiltonian := mat.COOZeros(1<<n, 1<<n)
			ANNNI(hamiltonian, buf, n, complex(float32(kappa), 0), complex(float32(h), 0))
			g.Mats = append(g.Mats, hamiltonian)
		}
	}
	g.Recycle = g.Snake()
	return g, nil
}

// NStates is the number of grid points.
func (g *Grid) NStates() int {
	return len(g.Kappas) * len(g.Hs)
}

// Index is the flat index of the point (Kappas[ik], Hs[ih]).
func (g *Grid) Index(ik, ih int) int {
	return ik*len(g.Hs) + ih
}

// Point is the (κ, h) pair of a flat index.
func (g *Grid) Point(i int) (float64, float64) {
	return g.Kappas[i/len(g.Hs)], g.Hs[i%len(g.Hs)]
}

// Snake orders the grid points so that consecutive points are always grid
// neighbours, traversing rows of constant κ in alternating directions.
func (g *Grid) Snake() []int {
	order := make([]int, 0, g.NStates())
	for ik := range g.Kappas {
		switch ik % 2 {
		case 0:
			for ih := 0; ih < len(g.Hs); ih++ {
				order = append(order, g.Index(ik, ih))
			}
		default:
			for ih := len(g.Hs) - 1; ih >= 0; ih-- {
				order = append(order, g.Index(ik, ih))
			}
		}
	}
	return order
}

// Linspace is n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	vals := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		vals = append(vals, lo+(hi-lo)*float64(i)/float64(n-1))
	}
	return vals
}
