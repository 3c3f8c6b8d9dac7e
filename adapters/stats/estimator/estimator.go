// Package estimator turns raw observation columns into discrete symbols and
// joint probability tables that the info package can decompose.
package estimator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"tipnet/adapters/stats/info"
	"tipnet/domain/core"
)

// Binning selects how continuous values are cut into bins.
type Binning string

const (
	EqualWidth     Binning = "equal_width"
	EqualFrequency Binning = "equal_frequency"
)

// ParseBinning accepts "equal_width"/"width" and "equal_frequency"/"quantile".
func ParseBinning(s string) (Binning, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "equal_frequency", "frequency", "quantile":
		return EqualFrequency, nil
	case "equal_width", "width":
		return EqualWidth, nil
	}
	return "", fmt.Errorf("unknown binning method %q", s)
}

// Estimator discretizes columns with a fixed number of bins.
type Estimator struct {
	bins   int
	method Binning
}

// New creates an estimator. bins must be at least 2.
func New(bins int, method Binning) (*Estimator, error) {
	if bins < 2 {
		return nil, fmt.Errorf("need at least 2 bins, got %d", bins)
	}
	if method != EqualWidth && method != EqualFrequency {
		return nil, fmt.Errorf("unknown binning method %q", method)
	}
	return &Estimator{bins: bins, method: method}, nil
}

// Bins returns the configured number of bins.
func (e *Estimator) Bins() int { return e.bins }

// Symbolize discretizes x and relabels the occupied bins densely from 0.
func (e *Estimator) Symbolize(x []float64) []int {
	symbols, _ := Compact(Discretize(x, e.bins, e.method))
	return symbols
}

// Discretize maps each value to a bin index in [0, bins). A constant column
// maps entirely to bin 0.
func Discretize(x []float64, bins int, method Binning) []int {
	out := make([]int, len(x))
	if len(x) == 0 || IsConstant(x) {
		return out
	}
	switch method {
	case EqualWidth:
		lo, hi := floats.Min(x), floats.Max(x)
		width := (hi - lo) / float64(bins)
		for i, v := range x {
			b := int(math.Floor((v - lo) / width))
			if b >= bins {
				b = bins - 1
			}
			out[i] = b
		}
	default:
		edges := quantileEdges(x, bins)
		for i, v := range x {
			// number of edges below v; a value equal to an edge closes the lower bin
			out[i] = sort.Search(len(edges), func(k int) bool { return edges[k] >= v })
		}
	}
	return out
}

func quantileEdges(x []float64, bins int) []float64 {
	edges := make([]float64, 0, bins-1)
	for b := 1; b < bins; b++ {
		q, err := stats.Percentile(x, 100*float64(b)/float64(bins))
		if err != nil {
			continue
		}
		if n := len(edges); n > 0 && q <= edges[n-1] {
			continue
		}
		edges = append(edges, q)
	}
	return edges
}

// IsConstant reports whether x has zero variance. Empty input is constant.
func IsConstant(x []float64) bool {
	if len(x) < 2 {
		return true
	}
	v, err := stats.Variance(x)
	if err != nil {
		return true
	}
	return v == 0
}

// Compact relabels symbols densely, preserving their order, and returns the
// alphabet size.
func Compact(symbols []int) ([]int, int) {
	distinct := make([]int, 0)
	seen := make(map[int]struct{})
	for _, s := range symbols {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			distinct = append(distinct, s)
		}
	}
	sort.Ints(distinct)
	index := make(map[int]int, len(distinct))
	for i, s := range distinct {
		index[s] = i
	}
	out := make([]int, len(symbols))
	for i, s := range symbols {
		out[i] = index[s]
	}
	return out, len(distinct)
}

// Fuse combines several symbol columns into one column whose symbols are the
// observed joint states. With no columns it returns nil.
func Fuse(cols ...[]int) ([]int, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	n := len(cols[0])
	for i, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("column %d has %d samples, want %d", i, len(c), n)
		}
	}
	keys := make([]int, n)
	radix := 1
	for _, c := range cols {
		compacted, k := Compact(c)
		for t := range keys {
			keys[t] += compacted[t] * radix
		}
		radix *= k
	}
	fused, _ := Compact(keys)
	return fused, nil
}

// JointPDF counts the joint occurrences of one to three symbol columns and
// returns the normalized table over their compacted alphabets.
func JointPDF(cols ...[]int) (*info.Table, error) {
	if len(cols) < 1 || len(cols) > info.MaxDims {
		return nil, fmt.Errorf("%w: %d columns", core.ErrDimension, len(cols))
	}
	n := len(cols[0])
	if n == 0 {
		return nil, core.ErrInsufficientData
	}
	shape := make([]int, len(cols))
	compacted := make([][]int, len(cols))
	for i, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("column %d has %d samples, want %d", i, len(c), n)
		}
		compacted[i], shape[i] = Compact(c)
	}

	size := 1
	for _, k := range shape {
		size *= k
	}
	counts := make([]float64, size)
	for t := 0; t < n; t++ {
		off := 0
		for i := range compacted {
			off = off*shape[i] + compacted[i][t]
		}
		counts[off]++
	}
	return info.NewCountTable(shape, counts)
}

// Align extracts one column per node from an N x D observation matrix. Nodes
// are placed on a common time axis by lag: the column of (v, l) is
// obs[t + l - minLag, v] for t in [0, N - (maxLag - minLag)).
func Align(obs mat.Matrix, nodes []core.Node) ([][]float64, error) {
	if obs == nil {
		return nil, fmt.Errorf("nil observation matrix")
	}
	rows, cols := obs.Dims()
	if len(nodes) == 0 {
		return nil, nil
	}
	minLag, maxLag := nodes[0].Lag, nodes[0].Lag
	for _, nd := range nodes {
		if err := nd.Validate(cols); err != nil {
			return nil, err
		}
		minLag = min(minLag, nd.Lag)
		maxLag = max(maxLag, nd.Lag)
	}
	n := rows - (maxLag - minLag)
	if n < 1 {
		return nil, fmt.Errorf("%w: lag span %d leaves no samples out of %d", core.ErrInsufficientData, maxLag-minLag, rows)
	}

	out := make([][]float64, len(nodes))
	for k, nd := range nodes {
		col := make([]float64, n)
		shift := nd.Lag - minLag
		for t := 0; t < n; t++ {
			col[t] = obs.At(t+shift, nd.Variable)
		}
		out[k] = col
	}
	return out, nil
}
