package info

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipnet/domain/core"
)

const tol = 1e-12

func mustTable(t *testing.T, shape []int, data []float64) *Table {
	t.Helper()
	tab, err := NewTable(shape, data)
	require.NoError(t, err)
	return tab
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable([]int{2, 2, 2, 2}, make([]float64, 16))
	assert.True(t, errors.Is(err, core.ErrDimension))

	_, err = NewTable([]int{2, 2}, []float64{0.5, 0.5})
	assert.Error(t, err)

	_, err = NewTable([]int{2}, []float64{-0.1, 1.1})
	assert.Error(t, err)

	_, err = NewTable([]int{2}, []float64{math.NaN(), 1})
	assert.Error(t, err)
}

func TestMarginalAndTranspose(t *testing.T) {
	pdf := mustTable(t, []int{2, 3}, []float64{
		0.1, 0.2, 0.0,
		0.3, 0.1, 0.3,
	})
	assert.InDeltaSlice(t, []float64{0.3, 0.7}, pdf.Marginal(0).Data(), tol)
	assert.InDeltaSlice(t, []float64{0.4, 0.3, 0.3}, pdf.Marginal(1).Data(), tol)

	tr := pdf.Transpose()
	assert.Equal(t, []int{3, 2}, tr.Shape())
	assert.InDelta(t, 0.3, tr.At(2, 1), tol)
	assert.InDelta(t, 0.2, tr.At(1, 0), tol)
}

func TestEntropy1D(t *testing.T) {
	in, err := New(mustTable(t, []int{4}, []float64{0.25, 0.25, 0.25, 0.25}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, in.HX, tol)

	in, err = New(mustTable(t, []int{2}, []float64{1, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, in.HX, tol)

	in, err = New(mustTable(t, []int{2}, []float64{0.5, 0.5}), WithBase(math.E))
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, in.HX, tol)
}

func TestInfo2D(t *testing.T) {
	t.Run("independent", func(t *testing.T) {
		in, err := New(mustTable(t, []int{2, 2}, []float64{0.25, 0.25, 0.25, 0.25}))
		require.NoError(t, err)
		assert.InDelta(t, 1.0, in.HX, tol)
		assert.InDelta(t, 1.0, in.HY, tol)
		assert.InDelta(t, 1.0, in.HXgivenY, tol)
		assert.InDelta(t, 1.0, in.HYgivenX, tol)
		assert.InDelta(t, 0.0, in.IXY, tol)
	})

	t.Run("identical", func(t *testing.T) {
		in, err := New(mustTable(t, []int{2, 2}, []float64{0.5, 0, 0, 0.5}))
		require.NoError(t, err)
		assert.InDelta(t, 1.0, in.IXY, tol)
		assert.InDelta(t, 0.0, in.HYgivenX, tol)
		assert.InDelta(t, 0.0, in.HXgivenY, tol)
	})

	t.Run("chain rule", func(t *testing.T) {
		pdf := mustTable(t, []int{2, 3}, []float64{0.1, 0.2, 0.05, 0.3, 0.1, 0.25})
		in, err := New(pdf)
		require.NoError(t, err)
		assert.InDelta(t, in.HY-in.HYgivenX, in.IXY, 1e-9)
		assert.InDelta(t, in.HX-in.HXgivenY, in.IXY, 1e-9)
	})
}

func TestInfo2DSignificance(t *testing.T) {
	dependent := mustTable(t, []int{2, 2}, []float64{0.45, 0.05, 0.05, 0.45})
	in, err := New(dependent, WithSignificance(500, 0.05))
	require.NoError(t, err)
	assert.True(t, in.SignificanceDone)
	assert.True(t, in.MISignificant)
	assert.Less(t, in.MIPValue, 1e-6)

	flat := mustTable(t, []int{2, 2}, []float64{0.25, 0.25, 0.25, 0.25})
	in, err = New(flat, WithSignificance(500, 0.05))
	require.NoError(t, err)
	assert.False(t, in.MISignificant)
	assert.InDelta(t, 1.0, in.MIPValue, 1e-9)
}

// xorTable is X, Y fair independent bits and Z = X xor Y.
func xorTable(t *testing.T) *Table {
	data := make([]float64, 8)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			data[(x*2+y)*2+(x^y)] = 0.25
		}
	}
	return mustTable(t, []int{2, 2, 2}, data)
}

func TestInfo3DSynergy(t *testing.T) {
	in, err := New(xorTable(t))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, in.IXZ, tol)
	assert.InDelta(t, 0.0, in.IYZ, tol)
	assert.InDelta(t, 0.0, in.IXY, tol)
	assert.InDelta(t, 1.0, in.IYZgivenX, tol)
	assert.InDelta(t, 1.0, in.IXZgivenY, tol)
	assert.InDelta(t, 1.0, in.II, tol)
	assert.InDelta(t, 1.0, in.ITotal, tol)
	assert.InDelta(t, 0.0, in.R, tol)
	assert.InDelta(t, 1.0, in.S, tol)
	assert.InDelta(t, 0.0, in.UXZ, tol)
	assert.InDelta(t, 0.0, in.UYZ, tol)
}

func TestInfo3DRedundancy(t *testing.T) {
	data := make([]float64, 8)
	data[0] = 0.5 // (0,0,0)
	data[7] = 0.5 // (1,1,1)
	in, err := New(mustTable(t, []int{2, 2, 2}, data))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, in.IXZ, tol)
	assert.InDelta(t, 1.0, in.IYZ, tol)
	assert.InDelta(t, 0.0, in.IYZgivenX, tol)
	assert.InDelta(t, -1.0, in.II, tol)
	assert.InDelta(t, 1.0, in.ITotal, tol)
	assert.InDelta(t, 1.0, in.RMMI, tol)
	assert.InDelta(t, 1.0, in.ISource, tol)
	assert.InDelta(t, 1.0, in.RMin, tol)
	assert.InDelta(t, 1.0, in.R, tol)
	assert.InDelta(t, 0.0, in.S, tol)
	assert.InDelta(t, 0.0, in.UXZ, tol)
}

func TestInfo3DConstantSourceHasZeroIsource(t *testing.T) {
	// X is constant, so min(H(X), H(Y)) is zero.
	data := []float64{0.25, 0.25, 0.25, 0.25, 0, 0, 0, 0}
	in, err := New(mustTable(t, []int{2, 2, 2}, data))
	require.NoError(t, err)
	assert.Equal(t, 0.0, in.ISource)
	assert.False(t, math.IsNaN(in.R))
}

func TestAllAndGet(t *testing.T) {
	in, err := New(xorTable(t))
	require.NoError(t, err)

	all := in.All()
	require.Len(t, all, 16)
	assert.Equal(t, NameHX, all[0].Name)
	assert.Equal(t, NameUYZ, all[15].Name)

	v, ok := in.Get(NameS)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, v, tol)

	_, ok = in.Get(NameHXgivenY)
	assert.False(t, ok)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(xorTable(t), WithBase(1))
	assert.Error(t, err)

	_, err = New(xorTable(t), WithSignificance(100, 0.05))
	assert.Error(t, err)
}
