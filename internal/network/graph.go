package network

import (
	"slices"

	"tipnet/domain/core"
)

type idSet map[core.NodeID]struct{}

// Graph is the time-series DAG over (variable, lag) nodes. Nodes live in an
// arena indexed by their encoded id; they are never removed. Every edge
// points from a lower lag to a higher one, so the graph is acyclic.
type Graph struct {
	ndim     int
	maxLag   int
	present  []bool
	parents  []idSet
	children []idSet
	edges    int
}

func newGraph(ndim int) *Graph {
	return &Graph{ndim: ndim}
}

func (g *Graph) grow(id core.NodeID) {
	for int(id) >= len(g.present) {
		g.present = append(g.present, false)
		g.parents = append(g.parents, nil)
		g.children = append(g.children, nil)
	}
}

// addNode registers n and returns its id. Adding an existing node is a no-op.
func (g *Graph) addNode(n core.Node) core.NodeID {
	id := n.ID(g.ndim)
	g.grow(id)
	if !g.present[id] {
		g.present[id] = true
		g.parents[id] = make(idSet)
		g.children[id] = make(idSet)
	}
	return id
}

func (g *Graph) hasNode(id core.NodeID) bool {
	return id >= 0 && int(id) < len(g.present) && g.present[id]
}

// addEdge inserts from -> to, registering both nodes if needed.
func (g *Graph) addEdge(from, to core.NodeID) {
	g.addNode(g.decode(from))
	g.addNode(g.decode(to))
	if _, ok := g.parents[to][from]; ok {
		return
	}
	g.parents[to][from] = struct{}{}
	g.children[from][to] = struct{}{}
	g.edges++
}

// removeEdge deletes from -> to and reports whether it existed.
func (g *Graph) removeEdge(from, to core.NodeID) bool {
	if !g.hasEdge(from, to) {
		return false
	}
	delete(g.parents[to], from)
	delete(g.children[from], to)
	g.edges--
	return true
}

func (g *Graph) hasEdge(from, to core.NodeID) bool {
	if !g.hasNode(from) || !g.hasNode(to) {
		return false
	}
	_, ok := g.parents[to][from]
	return ok
}

// parentsOf returns the predecessors of id in ascending order.
func (g *Graph) parentsOf(id core.NodeID) []core.NodeID {
	if !g.hasNode(id) {
		return nil
	}
	return sortedIDs(g.parents[id])
}

// childrenOf returns the successors of id in ascending order.
func (g *Graph) childrenOf(id core.NodeID) []core.NodeID {
	if !g.hasNode(id) {
		return nil
	}
	return sortedIDs(g.children[id])
}

func (g *Graph) nodeCount() int {
	n := 0
	for _, ok := range g.present {
		if ok {
			n++
		}
	}
	return n
}

func (g *Graph) edgeCount() int { return g.edges }

func (g *Graph) decode(id core.NodeID) core.Node { return core.Decode(id, g.ndim) }

// decodeAll converts ids to nodes sorted by lag, then variable.
func (g *Graph) decodeAll(ids []core.NodeID) []core.Node {
	nodes := make([]core.Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.decode(id)
	}
	core.SortNodes(nodes)
	return nodes
}

func sortedIDs(s idSet) []core.NodeID {
	ids := make([]core.NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
