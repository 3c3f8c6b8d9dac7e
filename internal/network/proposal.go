package network

import "tipnet/domain/core"

// proposeParents registers (j, lag) and links it to its preliminary parents:
// the parents of (j, lag-1) shifted one lag forward, plus every anchor (i, 0).
// It returns the preliminary parent ids.
func (b *Builder) proposeParents(j, lag int) []core.NodeID {
	g := b.graph
	prev := core.NewNode(j, lag-1).ID(g.ndim)

	ppa := make(idSet)
	for _, p := range g.parentsOf(prev) {
		ppa[core.ShiftLag(p, g.ndim, 1)] = struct{}{}
	}
	for i := 0; i < g.ndim; i++ {
		ppa[core.NewNode(i, 0).ID(g.ndim)] = struct{}{}
	}

	target := g.addNode(core.NewNode(j, lag))
	ids := sortedIDs(ppa)
	for _, p := range ids {
		g.addEdge(p, target)
	}
	return ids
}
