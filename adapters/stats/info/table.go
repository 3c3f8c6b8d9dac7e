package info

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"tipnet/domain/core"
)

// MaxDims is the largest joint distribution the package decomposes.
const MaxDims = 3

// Table is a dense row-major probability table over one to three discrete
// variables. Axis 0 varies slowest.
type Table struct {
	shape   []int
	strides []int
	data    []float64
}

// NewTable wraps data with the given shape. Entries must be finite and
// non-negative; the table is not normalized here.
func NewTable(shape []int, data []float64) (*Table, error) {
	if len(shape) < 1 || len(shape) > MaxDims {
		return nil, fmt.Errorf("%w: table has %d axes, want 1..%d", core.ErrDimension, len(shape), MaxDims)
	}
	size := 1
	for i, n := range shape {
		if n < 1 {
			return nil, fmt.Errorf("axis %d has size %d", i, n)
		}
		size *= n
	}
	if len(data) != size {
		return nil, fmt.Errorf("table of shape %v needs %d entries, got %d", shape, size, len(data))
	}
	for i, v := range data {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("entry %d is not a valid probability mass: %v", i, v)
		}
	}

	t := &Table{
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), data...),
	}
	t.strides = stridesFor(t.shape)
	return t, nil
}

// NewCountTable builds a normalized table from raw counts.
func NewCountTable(shape []int, counts []float64) (*Table, error) {
	t, err := NewTable(shape, counts)
	if err != nil {
		return nil, err
	}
	if err := t.Normalize(); err != nil {
		return nil, err
	}
	return t, nil
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Dims returns the number of axes.
func (t *Table) Dims() int { return len(t.shape) }

// Shape returns a copy of the axis sizes.
func (t *Table) Shape() []int { return append([]int(nil), t.shape...) }

// Data returns the underlying row-major slice. Callers must not modify it.
func (t *Table) Data() []float64 { return t.data }

// Sum returns the total mass.
func (t *Table) Sum() float64 { return floats.Sum(t.data) }

// Normalize scales the table to unit mass.
func (t *Table) Normalize() error {
	total := t.Sum()
	if total <= 0 {
		return fmt.Errorf("cannot normalize a table with total mass %v", total)
	}
	floats.Scale(1/total, t.data)
	return nil
}

// At returns the mass at the given index, one coordinate per axis.
func (t *Table) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

func (t *Table) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("info: index %v does not match table of %d axes", idx, len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		off += v * t.strides[i]
	}
	return off
}

// Marginal sums out every axis not listed in keep. keep must be strictly
// increasing; the result keeps those axes in that order.
func (t *Table) Marginal(keep ...int) *Table {
	for i, ax := range keep {
		if ax < 0 || ax >= len(t.shape) || (i > 0 && ax <= keep[i-1]) {
			panic(fmt.Sprintf("info: invalid marginal axes %v for %d-axis table", keep, len(t.shape)))
		}
	}
	shape := make([]int, len(keep))
	for i, ax := range keep {
		shape[i] = t.shape[ax]
	}
	out := &Table{shape: shape, strides: stridesFor(shape)}
	size := 1
	for _, n := range shape {
		size *= n
	}
	out.data = make([]float64, size)

	idx := make([]int, len(t.shape))
	for off, v := range t.data {
		rem := off
		for ax := range t.shape {
			idx[ax] = rem / t.strides[ax]
			rem %= t.strides[ax]
		}
		dst := 0
		for i, ax := range keep {
			dst += idx[ax] * out.strides[i]
		}
		out.data[dst] += v
	}
	return out
}

// Transpose swaps the axes of a two-axis table.
func (t *Table) Transpose() *Table {
	if len(t.shape) != 2 {
		panic("info: Transpose needs a two-axis table")
	}
	nx, ny := t.shape[0], t.shape[1]
	out := &Table{shape: []int{ny, nx}, strides: stridesFor([]int{ny, nx}), data: make([]float64, nx*ny)}
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			out.data[y*nx+x] = t.data[x*ny+y]
		}
	}
	return out
}

// Support counts the non-empty cells of a one-axis table.
func (t *Table) Support() int {
	n := 0
	for _, v := range t.data {
		if v > 0 {
			n++
		}
	}
	return n
}
