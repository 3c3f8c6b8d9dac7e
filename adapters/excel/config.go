package excel

import (
	"fmt"

	"tipnet/adapters/stats/temporal"
)

// ReaderConfig controls how a sheet or CSV file becomes an observation matrix.
type ReaderConfig struct {
	// Sheet is the XLSX sheet to read; CSV files ignore it.
	Sheet string `json:"sheet"`
	// Columns selects and orders the variables by header name. Empty keeps
	// every column in file order.
	Columns []string `json:"columns,omitempty"`
	// DropIncomplete skips rows with a blank or non-numeric selected cell
	// instead of failing.
	DropIncomplete bool `json:"drop_incomplete"`

	// TimeColumn names a timestamp column. Rows are ordered by it and it is
	// never treated as a variable.
	TimeColumn string `json:"time_column,omitempty"`
	// Interval resamples the rows onto a regular hour/day/week/month grid.
	// It requires TimeColumn.
	Interval string `json:"interval,omitempty"`
	// Aggregate combines rows falling in the same period (default mean).
	Aggregate string `json:"aggregate,omitempty"`
	// Fill imputes empty periods: zero, forward or mean (default forward).
	Fill string `json:"fill,omitempty"`
}

// DefaultReaderConfig reads every column of Sheet1 and rejects incomplete rows.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{Sheet: "Sheet1", Aggregate: "mean", Fill: "forward"}
}

func (c ReaderConfig) resampleConfig() (temporal.ResampleConfig, error) {
	interval, err := temporal.ParseInterval(c.Interval)
	if err != nil {
		return temporal.ResampleConfig{}, err
	}
	cfg := temporal.ResampleConfig{
		Interval:  interval,
		Aggregate: temporal.AggregationFunc(c.Aggregate),
		Fill:      temporal.FillStrategy(c.Fill),
	}
	switch cfg.Aggregate {
	case "":
		cfg.Aggregate = temporal.AggMean
	case temporal.AggMean, temporal.AggSum, temporal.AggCount, temporal.AggMax, temporal.AggMin, temporal.AggLast:
	default:
		return cfg, fmt.Errorf("unknown aggregate %q", c.Aggregate)
	}
	switch cfg.Fill {
	case "":
		cfg.Fill = temporal.FillForward
	case temporal.FillZero, temporal.FillForward, temporal.FillMean:
	default:
		return cfg, fmt.Errorf("unknown fill strategy %q", c.Fill)
	}
	return cfg, nil
}
