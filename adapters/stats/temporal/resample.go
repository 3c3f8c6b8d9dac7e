// Package temporal turns irregular, timestamped rows into the evenly spaced,
// time-ordered observation matrices the network builder expects.
package temporal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ResolutionInterval defines the "heartbeat" of the time series
type ResolutionInterval string

const (
	IntervalHour  ResolutionInterval = "hour"
	IntervalDay   ResolutionInterval = "day"
	IntervalWeek  ResolutionInterval = "week"
	IntervalMonth ResolutionInterval = "month"
)

// ParseInterval accepts hour, day, week and month.
func ParseInterval(s string) (ResolutionInterval, error) {
	switch r := ResolutionInterval(strings.ToLower(strings.TrimSpace(s))); r {
	case IntervalHour, IntervalDay, IntervalWeek, IntervalMonth:
		return r, nil
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// FillStrategy defines how to handle missing periods
type FillStrategy string

const (
	FillZero    FillStrategy = "zero"    // Fill with 0.0
	FillForward FillStrategy = "forward" // Forward-fill last observed value
	FillMean    FillStrategy = "mean"    // Fill with the mean of observed periods
)

// AggregationFunc defines how to aggregate multiple rows in the same period
type AggregationFunc string

const (
	AggMean  AggregationFunc = "mean"
	AggSum   AggregationFunc = "sum"
	AggCount AggregationFunc = "count"
	AggMax   AggregationFunc = "max"
	AggMin   AggregationFunc = "min"
	AggLast  AggregationFunc = "last"
)

// ResampleConfig controls the resampling behavior
type ResampleConfig struct {
	Interval    ResolutionInterval
	Aggregate   AggregationFunc
	Fill        FillStrategy
	MaxGapRatio float64 // Maximum share of empty periods (default: 0.5)
}

// ParseTime reads RFC 3339 timestamps, "2006-01-02 15:04:05", plain dates and
// Unix seconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(sec), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SortByTime reorders the rows of data by ascending time. Rows with equal
// times keep their order.
func SortByTime(times []time.Time, data *mat.Dense) (*mat.Dense, []time.Time, error) {
	rows, cols := data.Dims()
	if len(times) != rows {
		return nil, nil, fmt.Errorf("%d timestamps for %d rows", len(times), rows)
	}
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]].Before(times[order[b]]) })

	sorted := mat.NewDense(rows, cols, nil)
	sortedTimes := make([]time.Time, rows)
	for i, src := range order {
		sorted.SetRow(i, data.RawRowView(src))
		sortedTimes[i] = times[src]
	}
	return sorted, sortedTimes, nil
}

// Resample aggregates the rows of data onto a regular grid of periods from
// the first to the last timestamp, filling empty periods per cfg.Fill.
func Resample(times []time.Time, data *mat.Dense, cfg ResampleConfig) (*mat.Dense, []time.Time, error) {
	rows, cols := data.Dims()
	if len(times) != rows {
		return nil, nil, fmt.Errorf("%d timestamps for %d rows", len(times), rows)
	}
	if rows == 0 {
		return nil, nil, fmt.Errorf("no rows to resample")
	}
	if _, err := ParseInterval(string(cfg.Interval)); err != nil {
		return nil, nil, err
	}
	if cfg.MaxGapRatio == 0 {
		cfg.MaxGapRatio = 0.5
	}

	start, end := times[0], times[0]
	for _, t := range times {
		if t.Before(start) {
			start = t
		}
		if t.After(end) {
			end = t
		}
	}
	grid := generateTimeGrid(start, end, cfg.Interval)
	slot := make(map[int64]int, len(grid))
	for i, g := range grid {
		slot[g.UnixNano()] = i
	}

	// bucket row indices per period, in time order so AggLast sees the latest
	sorted, sortedTimes, err := SortByTime(times, data)
	if err != nil {
		return nil, nil, err
	}
	buckets := make([][]int, len(grid))
	for r, t := range sortedTimes {
		i := slot[truncateToInterval(t, cfg.Interval).UnixNano()]
		buckets[i] = append(buckets[i], r)
	}

	missing := 0
	for _, b := range buckets {
		if len(b) == 0 {
			missing++
		}
	}
	if ratio := float64(missing) / float64(len(grid)); ratio > cfg.MaxGapRatio {
		return nil, nil, fmt.Errorf("excessive missing data: %.2f%% of periods empty, max %.2f%%", ratio*100, cfg.MaxGapRatio*100)
	}

	out := mat.NewDense(len(grid), cols, nil)
	values := make([]float64, 0)
	for j := 0; j < cols; j++ {
		col := make([]float64, len(grid))
		observed := make([]bool, len(grid))
		for i, b := range buckets {
			if len(b) == 0 {
				continue
			}
			values = values[:0]
			for _, r := range b {
				values = append(values, sorted.At(r, j))
			}
			col[i] = aggregate(values, cfg.Aggregate)
			observed[i] = true
		}
		fillMissing(col, observed, cfg.Fill)
		out.SetCol(j, col)
	}
	return out, grid, nil
}

// generateTimeGrid creates evenly spaced time points
func generateTimeGrid(start, end time.Time, interval ResolutionInterval) []time.Time {
	grid := []time.Time{}
	for current := truncateToInterval(start, interval); !current.After(end); current = step(current, interval) {
		grid = append(grid, current)
	}
	return grid
}

func step(t time.Time, interval ResolutionInterval) time.Time {
	switch interval {
	case IntervalHour:
		return t.Add(time.Hour)
	case IntervalDay:
		return t.AddDate(0, 0, 1)
	case IntervalWeek:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// truncateToInterval rounds time down to interval boundary
func truncateToInterval(t time.Time, interval ResolutionInterval) time.Time {
	switch interval {
	case IntervalHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case IntervalDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case IntervalWeek:
		// Round down to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := t.AddDate(0, 0, 1-weekday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	case IntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

// aggregate applies the aggregation function
func aggregate(values []float64, fn AggregationFunc) float64 {
	switch fn {
	case AggSum:
		return floats.Sum(values)
	case AggCount:
		return float64(len(values))
	case AggMax:
		return floats.Max(values)
	case AggMin:
		return floats.Min(values)
	case AggLast:
		return values[len(values)-1]
	default:
		return stat.Mean(values, nil)
	}
}

// fillMissing imputes the periods not marked observed.
func fillMissing(col []float64, observed []bool, strategy FillStrategy) {
	var fill float64
	if strategy == FillMean {
		var vals []float64
		for i, ok := range observed {
			if ok {
				vals = append(vals, col[i])
			}
		}
		if len(vals) > 0 {
			fill = stat.Mean(vals, nil)
		}
	}
	last, seen := 0.0, false
	for i, ok := range observed {
		switch {
		case ok:
			last, seen = col[i], true
		case strategy == FillForward && seen:
			col[i] = last
		case strategy == FillMean:
			col[i] = fill
		default:
			col[i] = 0
		}
	}
}
