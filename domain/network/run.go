package network

import (
	"strconv"
	"time"

	"tipnet/domain/core"
)

// OracleSettings records how independence was decided for a run.
type OracleSettings struct {
	Test         string  `json:"test"`
	Bins         int     `json:"bins"`
	Binning      string  `json:"binning"`
	Alpha        float64 `json:"alpha"`
	Permutations int     `json:"permutations,omitempty"`
	Seed         int64   `json:"seed"`
	MinSamples   int     `json:"min_samples"`
}

// Run is a stored discovery: its inputs, fingerprint and outcome.
type Run struct {
	ID          core.RunID     `json:"id"`
	Source      string         `json:"source"`
	Variables   []string       `json:"variables"`
	Params      Params         `json:"params"`
	Oracle      OracleSettings `json:"oracle"`
	Fingerprint core.Hash      `json:"fingerprint"`
	Result      *Result        `json:"result"`
	DurationMs  int64          `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NamedParents renders the causal dict with variable names, e.g.
// "precip" -> ["temp(t-1)"].
func (r *Run) NamedParents() map[string][]string {
	if r.Result == nil {
		return nil
	}
	lag := r.Result.ConvergedLag
	out := make(map[string][]string, len(r.Result.CausalDict))
	for j, parents := range r.Result.CausalDict {
		name := r.variableName(j)
		labels := make([]string, 0, len(parents))
		for _, p := range parents {
			labels = append(labels, r.variableName(p.Variable)+lagSuffix(lag-p.Lag))
		}
		out[name] = labels
	}
	return out
}

func (r *Run) variableName(i int) string {
	if i >= 0 && i < len(r.Variables) && r.Variables[i] != "" {
		return r.Variables[i]
	}
	return "X" + strconv.Itoa(i)
}

func lagSuffix(offset int) string {
	if offset == 0 {
		return "(t)"
	}
	return "(t-" + strconv.Itoa(offset) + ")"
}
