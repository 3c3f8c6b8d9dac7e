package network

import (
	"slices"

	"tipnet/domain/core"
)

// converged evaluates the stopping rule at the current frontier lag τ:
// keep expanding below TauMin, stop above TauMax, keep expanding while
// τ <= DTau, otherwise stop once every variable's lag-relative parent set at
// lag k equals the one at lag k-1 for every k in [τ-DTau, τ-1]. The frontier
// lag τ itself is not compared. It has no side effects.
func (b *Builder) converged() bool {
	tau := b.graph.maxLag
	p := b.params

	if tau < p.TauMin {
		return false
	}
	if tau > p.TauMax {
		return true
	}
	if tau <= p.DTau {
		return false
	}
	for k := tau - p.DTau; k < tau; k++ {
		for j := 0; j < b.graph.ndim; j++ {
			if !slices.Equal(b.relativeParents(j, k), b.relativeParents(j, k-1)) {
				return false
			}
		}
	}
	return true
}

// relativeParents returns the parents of (j, lag) as lag offsets: a parent
// (i, l) is reported as (i, lag-l).
func (b *Builder) relativeParents(j, lag int) []core.Node {
	id := core.NewNode(j, lag).ID(b.graph.ndim)
	return relativeTo(b.graph.decodeAll(b.graph.parentsOf(id)), lag)
}

func relativeTo(nodes []core.Node, lag int) []core.Node {
	rel := make([]core.Node, len(nodes))
	for i, n := range nodes {
		rel[i] = core.NewNode(n.Variable, lag-n.Lag)
	}
	core.SortNodes(rel)
	return rel
}
