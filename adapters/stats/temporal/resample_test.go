package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func day(d, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02T03:00:00Z", day(2, 3)},
		{"2024-01-02 03:00:00", day(2, 3)},
		{"2024-01-02", day(2, 0)},
		{"1704164400", day(2, 3)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}
	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestSortByTime(t *testing.T) {
	data := mat.NewDense(3, 1, []float64{3, 1, 2})
	sorted, times, err := SortByTime([]time.Time{day(3, 0), day(1, 0), day(2, 0)}, data)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, mat.Col(nil, 0, sorted))
	assert.True(t, times[0].Equal(day(1, 0)))
}

func TestResampleDaily(t *testing.T) {
	times := []time.Time{day(1, 5), day(1, 9), day(3, 1), day(4, 2)}
	data := mat.NewDense(4, 2, []float64{
		1, 10,
		3, 20,
		5, 30,
		7, 40,
	})

	out, grid, err := Resample(times, data, ResampleConfig{Interval: IntervalDay, Aggregate: AggMean, Fill: FillForward})
	require.NoError(t, err)

	require.Len(t, grid, 4)
	assert.True(t, grid[0].Equal(day(1, 0)))
	assert.Equal(t, []float64{2, 2, 5, 7}, mat.Col(nil, 0, out))
	assert.Equal(t, []float64{15, 15, 30, 40}, mat.Col(nil, 1, out))
}

func TestResampleAggregations(t *testing.T) {
	times := []time.Time{day(1, 1), day(1, 2), day(1, 3)}
	data := mat.NewDense(3, 1, []float64{4, 1, 7})

	for agg, want := range map[AggregationFunc]float64{
		AggSum: 12, AggCount: 3, AggMax: 7, AggMin: 1, AggLast: 7, AggMean: 4,
	} {
		out, _, err := Resample(times, data, ResampleConfig{Interval: IntervalDay, Aggregate: agg})
		require.NoError(t, err)
		assert.Equal(t, want, out.At(0, 0), string(agg))
	}
}

func TestResampleFillStrategies(t *testing.T) {
	times := []time.Time{day(1, 0), day(3, 0), day(4, 0)}
	data := mat.NewDense(3, 1, []float64{2, 4, 6})

	tests := map[FillStrategy][]float64{
		FillZero:    {2, 0, 4, 6},
		FillForward: {2, 2, 4, 6},
		FillMean:    {2, 4, 4, 6},
	}
	for fill, want := range tests {
		out, _, err := Resample(times, data, ResampleConfig{Interval: IntervalDay, Fill: fill})
		require.NoError(t, err)
		assert.Equal(t, want, mat.Col(nil, 0, out), string(fill))
	}
}

func TestResampleRejectsSparseData(t *testing.T) {
	times := []time.Time{day(1, 0), day(20, 0)}
	_, _, err := Resample(times, mat.NewDense(2, 1, []float64{1, 2}), ResampleConfig{Interval: IntervalDay})
	assert.Error(t, err)

	_, _, err = Resample(times, mat.NewDense(2, 1, []float64{1, 2}), ResampleConfig{Interval: "fortnight"})
	assert.Error(t, err)
}

func TestWeekAndMonthGrids(t *testing.T) {
	// 2024-01-03 is a Wednesday
	assert.True(t, truncateToInterval(day(3, 15), IntervalWeek).Equal(day(1, 0)))
	assert.True(t, truncateToInterval(day(31, 15), IntervalMonth).Equal(day(1, 0)))

	grid := generateTimeGrid(day(15, 0), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), IntervalMonth)
	assert.Len(t, grid, 3)
}
