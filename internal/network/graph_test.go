package network

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tipnet/domain/core"
)

func id(v, l int) core.NodeID { return core.NewNode(v, l).ID(2) }

func TestGraphEdges(t *testing.T) {
	g := newGraph(2)
	g.addEdge(id(0, 0), id(1, 1))
	g.addEdge(id(1, 0), id(1, 1))
	g.addEdge(id(1, 0), id(1, 1))

	assert.Equal(t, 2, g.edgeCount())
	assert.Equal(t, 3, g.nodeCount())
	assert.True(t, g.hasEdge(id(0, 0), id(1, 1)))
	assert.False(t, g.hasEdge(id(1, 1), id(0, 0)))
	assert.Equal(t, []core.NodeID{id(0, 0), id(1, 0)}, g.parentsOf(id(1, 1)))
	assert.Equal(t, []core.NodeID{id(1, 1)}, g.childrenOf(id(0, 0)))

	assert.True(t, g.removeEdge(id(0, 0), id(1, 1)))
	assert.False(t, g.removeEdge(id(0, 0), id(1, 1)))
	assert.Equal(t, 1, g.edgeCount())
	assert.True(t, g.hasNode(id(0, 0)), "nodes survive edge removal")
	assert.Nil(t, g.parentsOf(id(0, 5)))
}

func TestDecodeAllSortsByLagThenVariable(t *testing.T) {
	g := newGraph(2)
	got := g.decodeAll([]core.NodeID{id(1, 1), id(0, 0), id(0, 1), id(1, 0)})
	assert.Equal(t, []core.Node{node(0, 0), node(1, 0), node(0, 1), node(1, 1)}, got)
}

func TestPathNodes(t *testing.T) {
	// (0,0) -> (0,1) -> (1,2), (0,0) -> (1,2), (1,0) -> (1,1)
	g := newGraph(2)
	g.addEdge(id(0, 0), id(0, 1))
	g.addEdge(id(0, 1), id(1, 2))
	g.addEdge(id(0, 0), id(1, 2))
	g.addEdge(id(1, 0), id(1, 1))

	tests := []struct {
		name     string
		src, dst core.NodeID
		want     []core.NodeID
	}{
		{"two paths", id(0, 0), id(1, 2), []core.NodeID{id(0, 0), id(0, 1), id(1, 2)}},
		{"single edge", id(1, 0), id(1, 1), []core.NodeID{id(1, 0), id(1, 1)}},
		{"unreachable", id(1, 0), id(1, 2), []core.NodeID{}},
		{"unknown node", id(0, 0), id(0, 7), []core.NodeID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sortedIDs(g.pathNodes(tt.src, tt.dst)))
		})
	}
}

func TestPathNodesExcludesSideBranches(t *testing.T) {
	g := newGraph(2)
	g.addEdge(id(0, 0), id(0, 1))
	g.addEdge(id(0, 0), id(1, 1))
	g.addEdge(id(1, 1), id(1, 2))

	got := g.pathNodes(id(0, 0), id(1, 2))
	assert.NotContains(t, got, id(0, 1))
	assert.Len(t, got, 3)
}
