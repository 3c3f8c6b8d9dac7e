package core

import (
	"cmp"
	"fmt"
	"slices"
)

// Node is one variable observed at one lag of the time-series graph.
type Node struct {
	Variable int `json:"variable"`
	Lag      int `json:"lag"`
}

// NodeID is the dense integer key of a Node: Lag*ndim + Variable.
type NodeID int

// NewNode builds a node without validating it.
func NewNode(variable, lag int) Node {
	return Node{Variable: variable, Lag: lag}
}

// String renders the node as (variable, lag).
func (n Node) String() string {
	return fmt.Sprintf("(%d,%d)", n.Variable, n.Lag)
}

// Validate checks the node against a graph of ndim variables.
func (n Node) Validate(ndim int) error {
	if ndim < 1 {
		return NewNodeError(n, ndim, "graph must have at least one variable")
	}
	if n.Variable < 0 || n.Variable >= ndim {
		return NewNodeError(n, ndim, "variable index out of range")
	}
	if n.Lag < 0 {
		return NewNodeError(n, ndim, "negative lag")
	}
	return nil
}

// ID encodes the node without validation. Callers must have validated n.
func (n Node) ID(ndim int) NodeID {
	return NodeID(n.Lag*ndim + n.Variable)
}

// Shift moves the node delta lags forward (negative delta moves it back).
func (n Node) Shift(delta int) Node {
	return Node{Variable: n.Variable, Lag: n.Lag + delta}
}

// Compare orders nodes by lag, then variable.
func (n Node) Compare(o Node) int {
	if c := cmp.Compare(n.Lag, o.Lag); c != 0 {
		return c
	}
	return cmp.Compare(n.Variable, o.Variable)
}

// Encode maps a node to its dense id.
func Encode(n Node, ndim int) (NodeID, error) {
	if err := n.Validate(ndim); err != nil {
		return 0, err
	}
	return n.ID(ndim), nil
}

// Decode is the inverse of Encode.
func Decode(id NodeID, ndim int) Node {
	return Node{Variable: int(id) % ndim, Lag: int(id) / ndim}
}

// ShiftLag translates an encoded node by delta lags.
func ShiftLag(id NodeID, ndim, delta int) NodeID {
	return id + NodeID(delta*ndim)
}

// SortNodes sorts nodes in place by lag, then variable.
func SortNodes(nodes []Node) {
	slices.SortFunc(nodes, Node.Compare)
}
