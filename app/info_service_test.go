package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipnet/adapters/stats/info"
	apperrors "tipnet/internal/errors"
	"tipnet/internal/testkit"
)

func quantity(t *testing.T, r *InfoReport, name string) float64 {
	t.Helper()
	for _, q := range r.Quantities {
		if q.Name == name {
			return q.Value
		}
	}
	t.Fatalf("quantity %s missing", name)
	return 0
}

func TestComputeInfoCopy(t *testing.T) {
	x := []float64{0, 1, 2, 3, 0, 1, 2, 3}
	report, err := ComputeInfo(InfoRequest{Columns: [][]float64{x, x}, Bins: 4, Binning: "equal_width", Alpha: 0.05})
	require.NoError(t, err)

	assert.Equal(t, 8, report.Samples)
	assert.InDelta(t, 2.0, quantity(t, report, info.NameHX), 1e-9)
	assert.InDelta(t, 2.0, quantity(t, report, info.NameIXY), 1e-9)
	require.NotNil(t, report.PValue)
}

func TestComputeInfoSingleColumnInNats(t *testing.T) {
	report, err := ComputeInfo(InfoRequest{Columns: [][]float64{{1, 2}}, Bins: 2, Binning: "equal_width", Base: 2.718281828459045})
	require.NoError(t, err)
	assert.InDelta(t, 0.6931, quantity(t, report, info.NameHX), 1e-3)
	assert.Nil(t, report.PValue)
}

func TestComputeInfoErrors(t *testing.T) {
	col := []float64{1, 2, 3}
	tests := []struct {
		name string
		req  InfoRequest
		code string
	}{
		{"no columns", InfoRequest{}, apperrors.CodeConfigInvalid},
		{"four columns", InfoRequest{Columns: [][]float64{col, col, col, col}}, apperrors.CodeConfigInvalid},
		{"ragged", InfoRequest{Columns: [][]float64{col, {1}}}, apperrors.CodeInvalidInput},
		{"bad binning", InfoRequest{Columns: [][]float64{col}, Binning: "log"}, apperrors.CodeInvalidInput},
		{"one bin", InfoRequest{Columns: [][]float64{col}, Bins: 1}, apperrors.CodeInvalidInput},
		{"empty column", InfoRequest{Columns: [][]float64{{}}}, apperrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeInfo(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestProfileObservations(t *testing.T) {
	report, err := ProfileObservations(context.Background(), &stubReader{obs: testkit.MustGenerate(testkit.WhiteNoise(2, 200, 3))})
	require.NoError(t, err)

	assert.Equal(t, 200, report.Samples)
	require.Len(t, report.Variables, 2)
	assert.False(t, report.Variables[0].Constant)

	_, err = ProfileObservations(context.Background(), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}
