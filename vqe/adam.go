package vqe

import "math"

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// adam is the Adam optimizer over a set of parameter rows, with bias
// corrected first and second moment estimates.
type adam struct {
	lr float64
	m  [][]float64
	v  [][]float64
	t  int
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr}
	for _, row := range params {
		a.m = append(a.m, make([]float64, len(row)))
		a.v = append(a.v, make([]float64, len(row)))
	}
	return a
}

// step updates params in place from grads.
func (a *adam) step(params, grads [][]float64) {
	a.t++
	c1 := 1 - math.Pow(adamBeta1, float64(a.t))
	c2 := 1 - math.Pow(adamBeta2, float64(a.t))
	for i, row := range params {
		for j := range row {
			g := grads[i][j]
			a.m[i][j] = adamBeta1*a.m[i][j] + (1-adamBeta1)*g
			a.v[i][j] = adamBeta2*a.v[i][j] + (1-adamBeta2)*g*g

			mHat := a.m[i][j] / c1
			vHat := a.v[i][j] / c2
			row[j] -= a.lr * mHat / (math.Sqrt(vHat) + adamEps)
		}
	}
}
