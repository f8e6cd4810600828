// Package vqe trains variational quantum circuits to approximate the ground
// states of a Hamiltonian grid.
package vqe

import (
	"log"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/SaverioMonaco/qphase"
	"github.com/SaverioMonaco/qphase/circuit"
	"github.com/SaverioMonaco/qphase/util"
)

// Diagnostic is a training health sample against the exact references.
type Diagnostic struct {
	Epoch        int
	Loss         float64
	EnergyMSE    float64
	MeanFidelity float64
}

// TrainState is the mutable state of a training run.
type TrainState struct {
	// Params[i] are the circuit parameters of grid point i.
	Params [][]float64
	// Energies and States are the variational results of Params,
	// refreshed by Finalize.
	Energies []float64
	States   []*tensor.Dense

	// Diagnostics are the samples recorded during independent training.
	Diagnostics []Diagnostic
	// Trajectory holds snapshots of Params, when enabled.
	Trajectory [][][]float64
	// Order is the traversal of the last recycle run.
	Order []int
	// Sequential is whether batched evaluation has failed permanently.
	Sequential bool
}

// VQE estimates the ground states of all points of a Hamiltonian grid.
type VQE struct {
	Grid        *qphase.Grid
	CircuitName string
	NParams     int
	State       TrainState

	gates   []circuit.Gate
	batched *batched
	seq     *sequential
}

// New creates an engine whose parameters are independently initialized
// uniformly in [-π, π].
func New(grid *qphase.Grid, circuitName string) (*VQE, error) {
	c, err := circuit.Get(circuitName)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	v := &VQE{
		Grid:        grid,
		CircuitName: circuitName,
		NParams:     circuit.NumParams(c, grid.N),
		batched:     &batched{limit: defaultBatchLimit},
		seq:         newSequential(),
	}
	c(grid.N, make([]float64, v.NParams), &v.gates)

	n := grid.NStates()
	v.State.Params = make([][]float64, n)
	for i := range v.State.Params {
		row := make([]float64, v.NParams)
		for j := range row {
			row[j] = (rand.Float64()*2 - 1) * math.Pi
		}
		v.State.Params[i] = row
	}
	v.State.Energies = make([]float64, n)
	v.State.States = make([]*tensor.Dense, n)
	for i := range v.State.States {
		v.State.States[i] = tensor.Zeros(1 << grid.N)
	}
	return v, nil
}

// each runs fn over all grid points, batched while possible. The first
// batched failure switches to sequential evaluation for good.
func (v *VQE) each(fn pointFn) error {
	n := v.Grid.NStates()
	if !v.State.Sequential {
		err := v.batched.each(n, 1<<v.Grid.N, fn)
		if err == nil {
			return nil
		}
		log.Printf("switching to sequential evaluation: %v", err)
		v.State.Sequential = true
	}
	return v.seq.each(n, fn)
}

// Reference fills the exact ground energies and states of the grid by
// diagonalization. It is a no-op when the grid is already filled.
func (v *VQE) Reference() error {
	g := v.Grid
	if len(g.TrueE) == g.NStates() {
		return nil
	}
	g.TrueE = make([]float64, g.NStates())
	g.TruePsi = make([]*tensor.Dense, g.NStates())

	err := v.each(func(i int, s *scratch) error {
		vvs := g.Mats[i].Eigen()
		g.TrueE[i] = vvs[0].Val
		psi := tensor.Zeros(len(vvs[0].Vec))
		for j, c := range vvs[0].Vec {
			psi.SetAt([]int{j}, c)
		}
		g.TruePsi[i] = psi
		return nil
	})
	return errors.Wrap(err, "")
}

// TrainOptions are options for Train.
type TrainOptions struct {
	lr               float64
	epochs           int
	reg              float64
	recycle          bool
	diagnosticsEvery int
	trajectoryEvery  int
}

// NewTrainOptions returns the default training options.
func NewTrainOptions() TrainOptions {
	opt := TrainOptions{}
	opt.lr = 1e-2
	opt.epochs = 1000
	opt.reg = 0
	opt.recycle = false
	opt.diagnosticsEvery = 500
	opt.trajectoryEvery = 0
	return opt
}

// LR sets the Adam learning rate.
func (opt TrainOptions) LR(lr float64) TrainOptions {
	opt.lr = lr
	return opt
}

// Epochs sets the number of epochs per run, or per point in recycle mode.
func (opt TrainOptions) Epochs(epochs int) TrainOptions {
	opt.epochs = epochs
	return opt
}

// Reg sets the weight of the fidelity regularization between neighbouring
// grid points.
func (opt TrainOptions) Reg(reg float64) TrainOptions {
	opt.reg = reg
	return opt
}

// Recycle switches between training all points at once and traversing them
// one by one, warm starting each point from the previous one.
func (opt TrainOptions) Recycle(recycle bool) TrainOptions {
	opt.recycle = recycle
	return opt
}

// DiagnosticsEvery sets the epoch interval of diagnostics samples.
func (opt TrainOptions) DiagnosticsEvery(every int) TrainOptions {
	opt.diagnosticsEvery = every
	return opt
}

// TrajectoryEvery sets the epoch interval of parameter snapshots.
// Zero disables snapshots.
func (opt TrainOptions) TrajectoryEvery(every int) TrainOptions {
	opt.trajectoryEvery = every
	return opt
}

// Train estimates the ground states of all grid points.
func (v *VQE) Train(options ...TrainOptions) error {
	opt := NewTrainOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	// Run scoped state starts fresh, including the sequential fallback.
	v.State.Diagnostics = nil
	v.State.Trajectory = nil
	v.State.Order = nil
	v.State.Sequential = false

	if err := v.Reference(); err != nil {
		return errors.Wrap(err, "")
	}

	var err error
	switch {
	case opt.recycle:
		err = v.trainRecycle(opt)
	default:
		err = v.trainIndependent(opt)
	}
	if err != nil {
		return errors.Wrap(err, "")
	}

	return errors.Wrap(v.Finalize(), "")
}

// trainIndependent optimizes all points jointly with a single Adam over the
// whole parameter tensor. The loss is the mean energy plus the fidelity
// between neighbouring points weighted by reg.
func (v *VQE) trainIndependent(opt TrainOptions) error {
	n := v.Grid.NStates()
	grads := make([][]float64, n)
	for i := range grads {
		grads[i] = make([]float64, v.NParams)
	}
	a := newAdam(opt.lr, v.State.Params)

	for epoch := 0; epoch < opt.epochs; epoch++ {
		if err := v.Finalize(); err != nil {
			return errors.Wrap(err, "")
		}

		var mean float64
		for _, e := range v.State.Energies {
			mean += e
		}
		mean /= float64(n)
		loss := mean + opt.reg*NeighbourMeanFidelity(v.State.States)

		if opt.diagnosticsEvery > 0 && epoch%opt.diagnosticsEvery == 0 {
			v.diagnose(epoch, loss)
		}
		if opt.trajectoryEvery > 0 && epoch%opt.trajectoryEvery == 0 {
			v.snapshot()
		}

		if err := v.each(func(i int, s *scratch) error {
			v.gradient(grads[i], i, opt.reg, s)
			return nil
		}); err != nil {
			return errors.Wrap(err, "")
		}

		a.step(v.State.Params, grads)
	}
	return nil
}

// gradient computes the gradient of point i under the joint loss of
// trainIndependent, overwriting grads.
func (v *VQE) gradient(grads []float64, i int, reg float64, s *scratch) {
	n := v.Grid.NStates()
	states := v.State.States
	copyState(s.psi, states[i])

	hpsi := v.Grid.Mats[i].MulVec(s.aux, s.psi)
	s.lambda.Reset(1 << v.Grid.N)
	circuit.Axpy(s.lambda, complex(float32(1/float64(n)), 0), hpsi)

	if reg != 0 && n > 1 {
		w := complex(float32(reg/float64(n-1)), 0)
		if i+1 < n {
			b := circuit.Dot(s.psi, states[i+1])
			circuit.Axpy(s.lambda, w*conj(b), states[i+1])
		}
		if i > 0 {
			c := circuit.Dot(states[i-1], s.psi)
			circuit.Axpy(s.lambda, w*c, states[i-1])
		}
	}

	for j := range grads {
		grads[j] = 0
	}
	circuit.Gradient(grads, v.Grid.N, v.gates, v.State.Params[i], s.psi, s.lambda, s.bufs)
}

// trainRecycle traverses the grid in the order of Grid.Recycle. The first
// point trains ten times longer from a uniform [0, 1) start, every later
// point warm starts from its predecessor and is pulled away from the
// predecessor's state by a fidelity penalty weighted by reg.
func (v *VQE) trainRecycle(opt TrainOptions) error {
	order := v.Grid.Recycle
	if len(order) == 0 {
		order = make([]int, v.Grid.NStates())
		for i := range order {
			order[i] = i
		}
	}
	v.State.Order = slices.Clone(order)

	params := make([]float64, v.NParams)
	for j := range params {
		params[j] = rand.Float64()
	}
	grads := make([]float64, v.NParams)
	s := v.seq.s
	throttler := util.NewSkipThrottler(3 * time.Second)

	var prev *tensor.Dense
	for oi, p := range order {
		epochs := opt.epochs
		var target *tensor.Dense
		switch oi {
		case 0:
			epochs = 10 * opt.epochs
		default:
			target = prev
		}

		a := newAdam(opt.lr, [][]float64{params})
		for epoch := 0; epoch < epochs; epoch++ {
			loss := v.pointGradient(grads, p, params, opt.reg, target, s)
			a.step([][]float64{params}, [][]float64{grads})

			if throttler.Ok() {
				log.Printf("point %d/%d epoch %d loss %f", oi, len(order), epoch, loss)
			}
		}

		copy(v.State.Params[p], params)
		circuit.State(s.psi, v.Grid.N, v.gates, params, s.bufs)
		prev = copyState(tensor.Zeros(1), s.psi)
	}
	return nil
}

// pointGradient computes the loss and gradient of a single point, with an
// optional fidelity penalty towards target. grads is overwritten.
func (v *VQE) pointGradient(grads []float64, i int, params []float64, reg float64, target *tensor.Dense, s *scratch) float64 {
	circuit.State(s.psi, v.Grid.N, v.gates, params, s.bufs)
	hpsi := v.Grid.Mats[i].MulVec(s.aux, s.psi)
	loss := float64(real(circuit.Dot(s.psi, hpsi)))

	s.lambda.Reset(1 << v.Grid.N)
	circuit.Axpy(s.lambda, 1, hpsi)
	if target != nil {
		b := circuit.Dot(s.psi, target)
		loss += reg * float64(real(b)*real(b)+imag(b)*imag(b))
		circuit.Axpy(s.lambda, complex(float32(reg), 0)*conj(b), target)
	}

	for j := range grads {
		grads[j] = 0
	}
	circuit.Gradient(grads, v.Grid.N, v.gates, params, s.psi, s.lambda, s.bufs)
	return loss
}

// Finalize recomputes States and Energies from Params. It is idempotent as
// long as Params is unchanged.
func (v *VQE) Finalize() error {
	err := v.each(func(i int, s *scratch) error {
		circuit.State(s.psi, v.Grid.N, v.gates, v.State.Params[i], s.bufs)
		copyState(v.State.States[i], s.psi)
		v.State.Energies[i] = ExpectedEnergy(s.psi, v.Grid.Mats[i], s.aux)
		return nil
	})
	return errors.Wrap(err, "")
}

// diagnose records the distance of the current states to the exact
// references.
func (v *VQE) diagnose(epoch int, loss float64) {
	g := v.Grid
	var mse float64
	for i, e := range v.State.Energies {
		d := e - g.TrueE[i]
		mse += d * d
	}
	mse /= float64(len(v.State.Energies))
	fid := MeanFidelity(g.TruePsi, v.State.States)

	v.State.Diagnostics = append(v.State.Diagnostics, Diagnostic{Epoch: epoch, Loss: loss, EnergyMSE: mse, MeanFidelity: fid})
	log.Printf("epoch %d loss %f energy mse %f fidelity %f", epoch, loss, mse, fid)
}

func (v *VQE) snapshot() {
	snap := make([][]float64, len(v.State.Params))
	for i, row := range v.State.Params {
		snap[i] = slices.Clone(row)
	}
	v.State.Trajectory = append(v.State.Trajectory, snap)
}

func copyState(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}
