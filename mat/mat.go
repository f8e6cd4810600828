// Package mat implements sparse complex matrices for spin chain Hamiltonians.
package mat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	PauliX = [][]complex64{
		{0, 1},
		{1, 0},
	}
	PauliY = [][]complex64{
		{0, -1i},
		{1i, 0},
	}
	PauliZ = [][]complex64{
		{1, 0},
		{0, -1},
	}
)

type vRowCol struct {
	v   complex64
	row int
	col int
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}

// COO is a sparse matrix in coordinate format, sorted in row major order.
type COO struct {
	rows int
	cols int
	Data []vRowCol

	m map[[2]int]complex64
}

func M(dense [][]complex64) *COO {
	m := &COO{rows: len(dense), cols: len(dense[0]), Data: make([]vRowCol, 0), m: make(map[[2]int]complex64)}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

func COOZeros(rows, cols int) *COO {
	m := M([][]complex64{{0}})
	m.Zeros(rows, cols)
	return m
}

func COOIdentity(rows int) *COO {
	m := M([][]complex64{{0}})
	m.Zeros(rows, rows)
	for i := 0; i < rows; i++ {
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: i})
	}
	return m
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }

func (m *COO) Zeros(rows, cols int) {
	m.rows, m.cols = rows, cols
	m.Data = m.Data[:0]
}

func (m *COO) Scalar(v complex64) {
	m.rows, m.cols = 1, 1
	m.Data = m.Data[:0]
	m.Data = append(m.Data, vRowCol{v: v, row: 0, col: 0})
}

func (a *COO) Equal(b *COO) bool {
	if a.rows != b.rows {
		return false
	}
	if a.cols != b.cols {
		return false
	}
	if len(a.Data) != len(b.Data) {
		return false
	}
	for i, av := range a.Data {
		bv := b.Data[i]
		if av != bv {
			return false
		}
	}
	return true
}

// Add computes a += c*b.
func (a *COO) Add(c complex64, b *COO) {
	if !(b.rows == a.rows && b.cols == a.cols) {
		panic(fmt.Sprintf("%d %d, %d %d", a.rows, a.cols, b.rows, b.cols))
	}
	clear(b.m)
	for _, v := range b.Data {
		b.m[[2]int{v.row, v.col}] = v.v
	}

	for i, av := range a.Data {
		byx := [2]int{av.row, av.col}
		bv := b.m[byx]
		delete(b.m, byx)

		a.Data[i].v = av.v + c*bv
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	for yx, bv := range b.m {
		a.Data = append(a.Data, vRowCol{v: c * bv, row: yx[0], col: yx[1]})
	}
	slices.SortFunc(a.Data, rowMajor)
	clear(b.m)
}

// Kron computes the kronecker product a = a @ b.
func (a *COO) Kron(b *COO) {
	rows := a.rows * b.rows
	cols := a.cols * b.cols
	a.rows, a.cols = rows, cols

	prevElemNum := len(a.Data)
	for i := prevElemNum - 1; i >= 0; i-- {
		av := a.Data[i]
		a.Data[i].v = 0
		for _, bv := range b.Data {
			ky := av.row*b.rows + bv.row
			kx := av.col*b.cols + bv.col
			a.Data = append(a.Data, vRowCol{v: av.v * bv.v, row: ky, col: kx})
		}
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(a.Data, rowMajor)
}

// MulVec computes dst = m @ x, where x is a vector of length Cols.
func (m *COO) MulVec(dst, x *tensor.Dense) *tensor.Dense {
	if x.Shape()[0] != m.cols {
		panic(fmt.Sprintf("%#v %d", x.Shape(), m.cols))
	}
	dst.Reset(m.rows)
	for _, v := range m.Data {
		dst.SetAt([]int{v.row}, dst.At(v.row)+v.v*x.At(v.col))
	}
	return dst
}

func (m *COO) Dense() [][]complex64 {
	dense := make([][]complex64, m.rows)
	for i := range dense {
		dense[i] = make([]complex64, m.cols)
	}

	for _, v := range m.Data {
		dense[v.row][v.col] = v.v
	}

	return dense
}

func (m *COO) String() string {
	lines := make([]string, 0, m.rows)
	for _, row := range m.Dense() {
		ss := make([]string, 0, m.cols)
		for _, v := range row {
			ss = append(ss, fmt.Sprintf("%v", v))
		}
		lines = append(lines, strings.Join(ss, " "))
	}
	return strings.Join(lines, "\n")
}

// ValVec is an eigenvalue and its eigenvector.
type ValVec struct {
	Val float64
	Vec []complex64
}

// Eigen computes the full eigendecomposition of a real symmetric matrix.
// Eigenpairs are returned in ascending order of eigenvalues, so that the
// ground state of a Hamiltonian is the first pair.
func (m *COO) Eigen() []ValVec {
	vvs, err := m.eigen()
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return vvs
}

func (m *COO) eigen() ([]ValVec, error) {
	if m.rows != m.cols {
		return nil, errors.Errorf("%d %d", m.rows, m.cols)
	}
	sym := mat.NewSymDense(m.rows, nil)
	for _, v := range m.Data {
		if imag(v.v) != 0 {
			return nil, errors.Errorf("not real: %d %d %v", v.row, v.col, v.v)
		}
		if v.col >= v.row {
			sym.SetSym(v.row, v.col, float64(real(v.v)))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Errorf("factorize %dx%d", m.rows, m.cols)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	vvs := make([]ValVec, 0, len(vals))
	for j, val := range vals {
		vec := make([]complex64, 0, m.rows)
		for i := 0; i < m.rows; i++ {
			vec = append(vec, complex(float32(vecs.At(i, j)), 0))
		}
		vvs = append(vvs, ValVec{Val: val, Vec: vec})
	}
	slices.SortFunc(vvs, func(a, b ValVec) int { return cmp.Compare(a.Val, b.Val) })

	return vvs, nil
}
