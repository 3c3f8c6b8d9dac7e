package network

import "tipnet/domain/core"

// pathNodes returns every node lying on some directed path from src to dst,
// src and dst included, or an empty set when dst is unreachable.
//
// In a DAG a node v lies on a simple src ⇝ dst path exactly when v is
// reachable from src and dst is reachable from v, so the union of all simple
// paths is the intersection of the forward closure of src and the backward
// closure of dst. This avoids enumerating paths, whose number can grow
// exponentially with the lag.
func (g *Graph) pathNodes(src, dst core.NodeID) idSet {
	out := make(idSet)
	if !g.hasNode(src) || !g.hasNode(dst) {
		return out
	}
	forward := g.closure(src, g.children)
	if _, ok := forward[dst]; !ok {
		return out
	}
	backward := g.closure(dst, g.parents)
	for id := range forward {
		if _, ok := backward[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (g *Graph) closure(start core.NodeID, adj []idSet) idSet {
	seen := idSet{start: {}}
	stack := []core.NodeID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range adj[id] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			stack = append(stack, next)
		}
	}
	return seen
}
