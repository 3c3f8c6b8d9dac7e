package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"tipnet/domain/core"
)

// IndependenceOracle decides (conditional) independence between nodes of the
// time-series graph from raw observations (N samples x D variables).
// Implementations are read-only and deterministic for identical input, and
// only fail on malformed input, never on degenerate distributions.
type IndependenceOracle interface {
	// Independent reports whether a and b are independent.
	Independent(ctx context.Context, a, b core.Node, obs mat.Matrix) (bool, error)

	// ConditionallyIndependent reports whether a and b are independent given
	// cond. An empty cond gives the same verdict as Independent.
	ConditionallyIndependent(ctx context.Context, a, b core.Node, obs mat.Matrix, cond []core.Node) (bool, error)
}
