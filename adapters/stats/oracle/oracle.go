// Package oracle decides (conditional) independence between time-series
// graph nodes by discretizing the aligned observations and testing the
// (conditional) mutual information for significance.
package oracle

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"

	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/info"
	"tipnet/domain/core"
	"tipnet/internal"
	"tipnet/ports"
)

// InfoOracle implements ports.IndependenceOracle on top of the info package.
//
// Degenerate input is reported as independent: a constant side, fewer than
// MinSamples aligned samples, or zero degrees of freedom. This keeps edges
// out of the graph unless the data can actually support them.
type InfoOracle struct {
	cfg    Config
	est    *estimator.Estimator
	rng    ports.RNGPort
	logger *internal.Logger
}

var _ ports.IndependenceOracle = (*InfoOracle)(nil)

// Option customizes an InfoOracle.
type Option func(*InfoOracle)

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) Option {
	return func(o *InfoOracle) { o.logger = l.WithComponent("Oracle") }
}

// WithRNG replaces the permutation random source.
func WithRNG(rng ports.RNGPort) Option {
	return func(o *InfoOracle) { o.rng = rng }
}

// New validates cfg and builds an oracle.
func New(cfg Config, opts ...Option) (*InfoOracle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	est, err := estimator.New(cfg.Bins, cfg.Binning)
	if err != nil {
		return nil, err
	}
	o := &InfoOracle{
		cfg:    cfg,
		est:    est,
		rng:    HashRNG{},
		logger: internal.DefaultLogger.WithComponent("Oracle"),
	}
	for _, fn := range opts {
		fn(o)
	}
	return o, nil
}

// Config returns the oracle settings.
func (o *InfoOracle) Config() Config { return o.cfg }

// Independent implements ports.IndependenceOracle.
func (o *InfoOracle) Independent(ctx context.Context, a, b core.Node, obs mat.Matrix) (bool, error) {
	return o.ConditionallyIndependent(ctx, a, b, obs, nil)
}

// ConditionallyIndependent implements ports.IndependenceOracle.
func (o *InfoOracle) ConditionallyIndependent(ctx context.Context, a, b core.Node, obs mat.Matrix, cond []core.Node) (bool, error) {
	v, err := o.Test(ctx, a, b, obs, cond)
	if err != nil {
		return false, err
	}
	return v.Independent, nil
}

// Verdict is the full outcome of one test.
type Verdict struct {
	Independent bool
	Degenerate  bool
	Value       float64 // (conditional) mutual information in bits
	PValue      float64
	DF          int
	Samples     int
}

// Test runs one (conditional) independence test and returns the details.
func (o *InfoOracle) Test(ctx context.Context, a, b core.Node, obs mat.Matrix, cond []core.Node) (Verdict, error) {
	nodes := make([]core.Node, 0, 2+len(cond))
	nodes = append(nodes, a, b)
	nodes = append(nodes, cond...)

	cols, err := estimator.Align(obs, nodes)
	if err != nil {
		if stderrors.Is(err, core.ErrInsufficientData) {
			o.logger.Warn("%s: %v; treating as independent", testKey(a, b, cond), err)
			return Verdict{Independent: true, Degenerate: true, PValue: 1}, nil
		}
		return Verdict{}, err
	}

	n := len(cols[0])
	if n < o.cfg.MinSamples || estimator.IsConstant(cols[0]) || estimator.IsConstant(cols[1]) {
		return Verdict{Independent: true, Degenerate: true, PValue: 1, Samples: n}, nil
	}

	symA := o.est.Symbolize(cols[0])
	symB := o.est.Symbolize(cols[1])
	var strata []int
	if len(cond) > 0 {
		condSyms := make([][]int, len(cond))
		for i, c := range cols[2:] {
			condSyms[i] = o.est.Symbolize(c)
		}
		if strata, err = estimator.Fuse(condSyms...); err != nil {
			return Verdict{}, err
		}
	}

	value, df, err := statistic(symA, symB, strata)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Value: value, DF: df, Samples: n}
	if df <= 0 {
		v.Independent, v.Degenerate, v.PValue = true, true, 1
		return v, nil
	}

	switch o.cfg.Test {
	case Shuffle:
		v.PValue, err = o.shufflePValue(ctx, testKey(a, b, cond), symA, symB, strata, value)
		if err != nil {
			return Verdict{}, err
		}
	default:
		v.PValue = info.GTestPValue(value, 2, n, df)
	}
	v.Independent = v.PValue > o.cfg.Alpha

	o.logger.Trace("%s: I=%.4f df=%d p=%.4g independent=%t", testKey(a, b, cond), value, df, v.PValue, v.Independent)
	return v, nil
}

// statistic returns I(A;B) (no strata) or I(A;B|strata) in bits along with
// the degrees of freedom counted over observed symbols per stratum.
func statistic(symA, symB, strata []int) (float64, int, error) {
	if strata == nil {
		pdf, err := estimator.JointPDF(symA, symB)
		if err != nil {
			return 0, 0, err
		}
		in, err := info.New(pdf)
		if err != nil {
			return 0, 0, err
		}
		df := (pdf.Marginal(0).Support() - 1) * (pdf.Marginal(1).Support() - 1)
		return in.IXY, df, nil
	}

	pdf, err := estimator.JointPDF(strata, symA, symB)
	if err != nil {
		return 0, 0, err
	}
	in, err := info.New(pdf)
	if err != nil {
		return 0, 0, err
	}
	return in.IYZgivenX, stratifiedDF(strata, symA, symB), nil
}

func stratifiedDF(strata, symA, symB []int) int {
	type sets struct{ a, b map[int]struct{} }
	per := make(map[int]*sets)
	for t, c := range strata {
		s, ok := per[c]
		if !ok {
			s = &sets{a: make(map[int]struct{}), b: make(map[int]struct{})}
			per[c] = s
		}
		s.a[symA[t]] = struct{}{}
		s.b[symB[t]] = struct{}{}
	}
	df := 0
	for _, s := range per {
		df += (len(s.a) - 1) * (len(s.b) - 1)
	}
	return df
}

// shufflePValue estimates the p-value of observed by permuting symB (within
// strata when conditioning). Each permutation draws from its own named
// stream, so the result does not depend on scheduling.
func (o *InfoOracle) shufflePValue(ctx context.Context, key string, symA, symB, strata []int, observed float64) (float64, error) {
	sem := semaphore.NewWeighted(int64(o.cfg.Workers))
	g, gctx := errgroup.WithContext(ctx)
	var extreme atomic.Int64
	const eps = 1e-12

	for p := 0; p < o.cfg.Permutations; p++ {
		p := p
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			rng := o.rng.Stream(fmt.Sprintf("%s#%d", key, p), o.cfg.Seed)
			permuted := permuteWithin(symB, strata, rng.Shuffle)
			value, _, err := statistic(symA, permuted, strata)
			if err != nil {
				return err
			}
			if value >= observed-eps {
				extreme.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return float64(1+extreme.Load()) / float64(1+o.cfg.Permutations), nil
}

// permuteWithin returns a copy of sym shuffled inside each stratum.
func permuteWithin(sym, strata []int, shuffle func(n int, swap func(i, j int))) []int {
	out := append([]int(nil), sym...)
	if strata == nil {
		shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	groups := make(map[int][]int)
	order := make([]int, 0)
	for t, c := range strata {
		if _, ok := groups[c]; !ok {
			order = append(order, c)
		}
		groups[c] = append(groups[c], t)
	}
	for _, c := range order {
		idx := groups[c]
		shuffle(len(idx), func(i, j int) {
			out[idx[i]], out[idx[j]] = out[idx[j]], out[idx[i]]
		})
	}
	return out
}

func testKey(a, b core.Node, cond []core.Node) string {
	var sb strings.Builder
	sb.WriteString(a.String())
	sb.WriteString("⊥")
	sb.WriteString(b.String())
	if len(cond) > 0 {
		sb.WriteString("|")
		for i, c := range cond {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(c.String())
		}
	}
	return sb.String()
}
