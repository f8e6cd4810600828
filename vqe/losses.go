package vqe

import (
	"math"

	"github.com/fumin/tensor"

	"github.com/SaverioMonaco/qphase/circuit"
	"github.com/SaverioMonaco/qphase/mat"
)

// ExpectedEnergy computes ⟨ψ|H|ψ⟩, discarding the imaginary part which is
// zero for Hermitian H. buf is scratch for the matrix vector product.
func ExpectedEnergy(psi *tensor.Dense, h *mat.COO, buf *tensor.Dense) float64 {
	h.MulVec(buf, psi)
	return float64(real(circuit.Dot(psi, buf)))
}

// Fidelity computes |⟨a|b⟩|², which is invariant under global phases of
// either state.
func Fidelity(a, b *tensor.Dense) float64 {
	d := circuit.Dot(a, b)
	return float64(real(d)*real(d) + imag(d)*imag(d))
}

// MeanFidelity is the average elementwise fidelity between two sets of
// states.
func MeanFidelity(refs, states []*tensor.Dense) float64 {
	var sum float64
	for i, r := range refs {
		sum += Fidelity(r, states[i])
	}
	return sum / float64(len(refs))
}

// NeighbourMeanFidelity is the mean fidelity between consecutive state
// pairs. It is 0 for fewer than two states.
func NeighbourMeanFidelity(states []*tensor.Dense) float64 {
	if len(states) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(states); i++ {
		sum += Fidelity(states[i], states[i+1])
	}
	return sum / float64(len(states)-1)
}

// CrossEntropy is the mean binary cross entropy of probabilities against
// labels in {0, 1}.
func CrossEntropy(probs, labels []float64) float64 {
	var sum float64
	for i, p := range probs {
		sum += -labels[i]*math.Log(p) - (1-labels[i])*math.Log(1-p)
	}
	return sum / float64(len(probs))
}

// CrossEntropyMulticlass is the mean cross entropy of class probability
// rows against integer labels.
func CrossEntropyMulticlass(probs [][]float64, labels []int) float64 {
	var sum float64
	for i, p := range probs {
		sum += -math.Log(p[labels[i]])
	}
	return sum / float64(len(probs))
}

// Hinge is the mean hinge loss of predictions against labels in {-1, 1}.
func Hinge(preds, labels []float64) float64 {
	var sum float64
	for i, p := range preds {
		sum += math.Max(0, 1-labels[i]*p)
	}
	return sum / float64(len(preds))
}
