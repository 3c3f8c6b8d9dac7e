// Package network discovers the time-lagged causal structure of a set of
// co-observed variables.
//
// The Builder grows a time-series graph one lag at a time. At every step each
// variable receives a preliminary parent set (its previous parents shifted one
// lag forward, plus every lag-0 anchor), spurious parents are pruned with
// (conditional) independence tests, and the loop stops once the lag-relative
// parent sets stop changing or the lag cutoff is reached.
package network

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"tipnet/domain/core"
	"tipnet/domain/network"
	"tipnet/internal"
	apperrors "tipnet/internal/errors"
	"tipnet/ports"
)

// State is the phase of the discovery loop.
type State int

const (
	StateInitializing State = iota
	StateExpanding
	StateCheckingConvergence
	StateConverged
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateExpanding:
		return "expanding"
	case StateCheckingConvergence:
		return "checking_convergence"
	case StateConverged:
		return "converged"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Builder owns the time-series graph of one discovery at a time. It is not
// safe for concurrent use; create one Builder per goroutine.
type Builder struct {
	oracle ports.IndependenceOracle
	params network.Params
	logger *internal.Logger

	graph   *Graph
	obs     mat.Matrix
	state   State
	history []network.LagSnapshot
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l.WithComponent("Builder") }
}

// NewBuilder creates a builder that decides independence with oracle.
func NewBuilder(oracle ports.IndependenceOracle, params network.Params, opts ...BuilderOption) *Builder {
	b := &Builder{
		oracle: oracle,
		params: params,
		logger: internal.DefaultLogger.WithComponent("Builder"),
	}
	for _, fn := range opts {
		fn(b)
	}
	return b
}

// State returns the phase the last Discover call reached.
func (b *Builder) State() State { return b.state }

// Discover runs the loop on an N x D observation matrix ordered by time.
// Configuration errors are reported before any graph is built. Hitting
// TauMax is not an error: the result then has HitCutoff set.
func (b *Builder) Discover(ctx context.Context, obs mat.Matrix) (*network.Result, error) {
	if err := b.validate(obs); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid, err)
	}
	if b.oracle == nil {
		return nil, apperrors.ConfigInvalid("no independence oracle configured")
	}

	samples, ndim := obs.Dims()
	b.initialize(obs, ndim)
	b.logger.Debug("starting discovery: %d variables, %d samples, params=%+v", ndim, samples, b.params)

	iterations := 0
	for !b.converged() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.state = StateExpanding
		if err := b.expand(ctx); err != nil {
			return nil, err
		}
		iterations++
		b.state = StateCheckingConvergence
	}
	b.state = StateConverged

	res := &network.Result{
		CausalDict:   b.causalDict(),
		ConvergedLag: b.graph.maxLag,
		Iterations:   iterations,
		HitCutoff:    b.graph.maxLag > b.params.TauMax,
		Variables:    ndim,
		Samples:      samples,
		History:      b.history,
	}
	if res.HitCutoff {
		b.logger.Warn("no stable structure up to tau_max=%d; reporting lag %d", b.params.TauMax, res.ConvergedLag)
	} else {
		b.logger.Info("converged at lag %d after %d iterations", res.ConvergedLag, iterations)
	}
	return res, nil
}

func (b *Builder) validate(obs mat.Matrix) error {
	if err := b.params.Validate(); err != nil {
		return err
	}
	if obs == nil {
		return fmt.Errorf("%w: no observations", network.ErrInvalidObservations)
	}
	rows, cols := obs.Dims()
	if cols < 1 {
		return fmt.Errorf("%w: zero variables", network.ErrInvalidObservations)
	}
	if rows < 1 {
		return fmt.Errorf("%w: zero samples", network.ErrInvalidObservations)
	}
	return nil
}

// initialize creates the graph holding only the lag-0 anchors.
func (b *Builder) initialize(obs mat.Matrix, ndim int) {
	b.state = StateInitializing
	b.obs = obs
	b.history = nil
	b.graph = newGraph(ndim)
	for j := 0; j < ndim; j++ {
		b.graph.addNode(core.NewNode(j, 0))
	}
}

// expand performs one lag step: propose for every variable, then prune.
func (b *Builder) expand(ctx context.Context) error {
	lag := b.graph.maxLag + 1
	proposed := make(map[int][]core.Node, b.graph.ndim)
	for j := 0; j < b.graph.ndim; j++ {
		ppa := b.proposeParents(j, lag)
		proposed[j] = relativeTo(b.graph.decodeAll(ppa), lag)
	}
	b.graph.maxLag = lag

	for j := 0; j < b.graph.ndim; j++ {
		if err := b.pruneSpuriousParents(ctx, core.NewNode(j, lag)); err != nil {
			return err
		}
	}

	snapshot := network.LagSnapshot{Lag: lag, Proposed: proposed, Parents: make(map[int][]core.Node, b.graph.ndim)}
	for j := 0; j < b.graph.ndim; j++ {
		snapshot.Parents[j] = b.relativeParents(j, lag)
	}
	b.history = append(b.history, snapshot)
	b.logger.Debug("lag %d: %d nodes, %d edges", lag, b.graph.nodeCount(), b.graph.edgeCount())
	return nil
}

// causalDict reads the parents of every variable at the frontier lag.
func (b *Builder) causalDict() network.CausalDict {
	dict := make(network.CausalDict, b.graph.ndim)
	lag := b.graph.maxLag
	for j := 0; j < b.graph.ndim; j++ {
		id := core.NewNode(j, lag).ID(b.graph.ndim)
		dict[j] = b.graph.decodeAll(b.graph.parentsOf(id))
	}
	return dict
}

func (b *Builder) independent(ctx context.Context, a, t core.Node) (bool, error) {
	ind, err := b.oracle.Independent(ctx, a, t, b.obs)
	if err != nil {
		return false, apperrors.OracleFailure(fmt.Errorf("%s vs %s: %w", a, t, err))
	}
	return ind, nil
}

func (b *Builder) condIndependent(ctx context.Context, a, t core.Node, cond []core.Node) (bool, error) {
	ind, err := b.oracle.ConditionallyIndependent(ctx, a, t, b.obs, cond)
	if err != nil {
		return false, apperrors.OracleFailure(fmt.Errorf("%s vs %s given %v: %w", a, t, cond, err))
	}
	return ind, nil
}
