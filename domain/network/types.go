// Package network holds the value types shared by the causal network
// builder, its storage and its transports.
package network

import (
	"errors"
	"fmt"

	"tipnet/domain/core"
)

var (
	// ErrInvalidParams reports a discovery configuration that can never run.
	ErrInvalidParams = errors.New("invalid discovery parameters")
	// ErrInvalidObservations reports an observation matrix of the wrong shape.
	ErrInvalidObservations = errors.New("invalid observation matrix")
)

// Params configures one discovery run.
type Params struct {
	DTau   int  `json:"dtau"`    // lags compared by the convergence check
	TauMax int  `json:"tau_max"` // hard cutoff
	TauMin int  `json:"tau_min"` // no convergence before this lag
	Deep   bool `json:"deep"`    // extra conditional test while pruning
}

// DefaultParams returns a window of one lag between lag 1 and lag 10.
func DefaultParams() Params {
	return Params{DTau: 1, TauMax: 10, TauMin: 1}
}

// Validate rejects parameter combinations that make the loop meaningless.
func (p Params) Validate() error {
	if p.DTau < 1 {
		return fmt.Errorf("%w: dtau must be >= 1, got %d", ErrInvalidParams, p.DTau)
	}
	if p.TauMin < 0 {
		return fmt.Errorf("%w: tau_min must be >= 0, got %d", ErrInvalidParams, p.TauMin)
	}
	if p.TauMax < 1 {
		return fmt.Errorf("%w: tau_max must be >= 1, got %d", ErrInvalidParams, p.TauMax)
	}
	if p.TauMin > p.TauMax {
		return fmt.Errorf("%w: tau_min (%d) exceeds tau_max (%d)", ErrInvalidParams, p.TauMin, p.TauMax)
	}
	return nil
}

// CausalDict maps each variable index to the parents of that variable at the
// converged lag, sorted by lag then variable.
type CausalDict map[int][]core.Node

// Parents returns the parents of variable j, or nil.
func (d CausalDict) Parents(j int) []core.Node {
	return d[j]
}

// Relative re-expresses the parents of (j, lag) as lag offsets: a parent
// (i, l) becomes (i, lag-l). Offsets are what recurs under stationarity.
func (d CausalDict) Relative(lag int) map[int][]core.Node {
	out := make(map[int][]core.Node, len(d))
	for j, parents := range d {
		rel := make([]core.Node, len(parents))
		for k, p := range parents {
			rel[k] = core.NewNode(p.Variable, lag-p.Lag)
		}
		core.SortNodes(rel)
		out[j] = rel
	}
	return out
}

// LagSnapshot is the lag-relative parent structure of every variable at one
// lag, before (Proposed) and after (Parents) pruning.
type LagSnapshot struct {
	Lag      int                 `json:"lag"`
	Proposed map[int][]core.Node `json:"proposed,omitempty"`
	Parents  map[int][]core.Node `json:"parents"`
}

// Result is the outcome of a discovery run.
type Result struct {
	CausalDict   CausalDict    `json:"causal_dict"`
	ConvergedLag int           `json:"converged_lag"`
	Iterations   int           `json:"iterations"`
	HitCutoff    bool          `json:"hit_cutoff"`
	Variables    int           `json:"variables"`
	Samples      int           `json:"samples"`
	History      []LagSnapshot `json:"history,omitempty"`
}
