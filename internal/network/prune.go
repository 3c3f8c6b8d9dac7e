package network

import (
	"context"
	"slices"

	"tipnet/domain/core"
)

// pruneSpuriousParents removes the parents of target that the oracle finds
// spurious. Anchors are visited in increasing variable order; removals made
// for one anchor change the paths seen by the next.
func (b *Builder) pruneSpuriousParents(ctx context.Context, target core.Node) error {
	g := b.graph
	tid := target.ID(g.ndim)

	for i := 0; i < g.ndim; i++ {
		anchor := core.NewNode(i, 0)
		aid := anchor.ID(g.ndim)

		// unconditional test
		if g.hasEdge(aid, tid) {
			ind, err := b.independent(ctx, anchor, target)
			if err != nil {
				return err
			}
			if ind {
				b.removeEdge(aid, tid, "independent")
			}
		}

		onPath := g.pathNodes(aid, tid)
		if len(onPath) == 0 {
			continue
		}
		candidates := make([]core.NodeID, 0)
		for _, p := range g.parentsOf(tid) {
			if _, ok := onPath[p]; ok {
				candidates = append(candidates, p)
			}
		}
		nCandidates := len(candidates)

		// the anchor's dependence may flow through the other parents
		if g.hasEdge(aid, tid) && nCandidates > 1 {
			cond := g.decodeAll(without(candidates, aid))
			ind, err := b.condIndependent(ctx, anchor, target, cond)
			if err != nil {
				return err
			}
			if ind {
				b.removeEdge(aid, tid, "mediated")
				candidates = without(candidates, aid)
			}
		}

		// the other parents may only be driven by the anchor
		if len(g.parentsOf(tid)) <= 1 || nCandidates <= 1 {
			continue
		}
		for _, pid := range without(candidates, aid) {
			if !g.hasEdge(pid, tid) {
				continue
			}
			parent := g.decode(pid)
			ind, err := b.condIndependent(ctx, parent, target, []core.Node{anchor})
			if err != nil {
				return err
			}
			if ind {
				b.removeEdge(pid, tid, "common driver "+anchor.String())
				candidates = without(candidates, pid)
				continue
			}
			if !b.params.Deep {
				continue
			}
			cond := g.decodeAll(without(without(candidates, aid), pid))
			ind, err = b.condIndependent(ctx, parent, target, cond)
			if err != nil {
				return err
			}
			if ind {
				b.removeEdge(pid, tid, "deep check")
				candidates = without(candidates, pid)
			}
		}
	}
	return nil
}

func (b *Builder) removeEdge(from, to core.NodeID, reason string) {
	if b.graph.removeEdge(from, to) {
		b.logger.Trace("removed %s -> %s (%s)", b.graph.decode(from), b.graph.decode(to), reason)
	}
}

// without returns ids minus id, leaving ids untouched.
func without(ids []core.NodeID, id core.NodeID) []core.NodeID {
	return slices.DeleteFunc(slices.Clone(ids), func(x core.NodeID) bool { return x == id })
}
