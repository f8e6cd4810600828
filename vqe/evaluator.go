package vqe

import (
	"fmt"
	"sync"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/SaverioMonaco/qphase/circuit"
)

// defaultBatchLimit bounds the total number of statevector amplitudes held
// alive by batched evaluation.
const defaultBatchLimit = 1 << 28

// scratch is the per worker workspace of an evaluation pass.
type scratch struct {
	psi    *tensor.Dense
	lambda *tensor.Dense
	aux    *tensor.Dense
	bufs   *circuit.Buffers
}

func newScratch() *scratch {
	return &scratch{
		psi:    tensor.Zeros(1),
		lambda: tensor.Zeros(1),
		aux:    tensor.Zeros(1),
		bufs:   circuit.NewBuffers(),
	}
}

// pointFn computes a quantity of grid point i. Implementations must write
// their results, not accumulate, so that a failed batched pass can be rerun
// sequentially.
type pointFn func(i int, s *scratch) error

// batched evaluates all grid points concurrently, one goroutine per point.
// It refuses upfront when the scratch space of the pass would exceed limit
// amplitudes.
type batched struct {
	limit int
}

func (b *batched) each(n, dim int, fn pointFn) error {
	if n*dim > b.limit {
		return errors.Errorf("%d states of %d amplitudes exceed %d", n, dim, b.limit)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(i, newScratch())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}
	}
	return nil
}

// sequential evaluates grid points one by one with a shared workspace.
type sequential struct {
	s *scratch
}

func newSequential() *sequential {
	return &sequential{s: newScratch()}
}

func (sq *sequential) each(n int, fn pointFn) error {
	for i := 0; i < n; i++ {
		if err := fn(i, sq.s); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}
