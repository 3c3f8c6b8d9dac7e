package app

import (
	"fmt"

	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/info"
	"tipnet/domain/core"
	apperrors "tipnet/internal/errors"
)

// InfoRequest asks for the information quantities of one to three columns.
// With three columns the last is the target of the decomposition.
type InfoRequest struct {
	Columns [][]float64 `json:"columns"`
	Bins    int         `json:"bins"`
	Binning string      `json:"binning"`
	Base    float64     `json:"base"`
	// Alpha enables the G-test of I(X;Y) for two columns.
	Alpha float64 `json:"alpha"`
}

// InfoReport is the response to an InfoRequest.
type InfoReport struct {
	Samples    int             `json:"samples"`
	Quantities []info.Quantity `json:"quantities"`
	PValue     *float64        `json:"p_value,omitempty"`
}

// ComputeInfo discretizes the columns and evaluates every quantity defined
// for their number.
func ComputeInfo(req InfoRequest) (*InfoReport, error) {
	if len(req.Columns) < 1 || len(req.Columns) > info.MaxDims {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid,
			fmt.Errorf("%w: expected 1 to %d columns, got %d", core.ErrDimension, info.MaxDims, len(req.Columns)))
	}
	if req.Bins == 0 {
		req.Bins = 8
	}
	if req.Base == 0 {
		req.Base = 2
	}
	method, err := estimator.ParseBinning(req.Binning)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	est, err := estimator.New(req.Bins, method)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	n := len(req.Columns[0])
	symbols := make([][]int, len(req.Columns))
	for i, col := range req.Columns {
		if len(col) != n {
			return nil, apperrors.InvalidInputf("column %d has %d values, want %d", i, len(col), n)
		}
		symbols[i] = est.Symbolize(col)
	}
	pdf, err := estimator.JointPDF(symbols...)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	opts := []info.Option{info.WithBase(req.Base)}
	if req.Alpha > 0 && len(req.Columns) == 2 {
		opts = append(opts, info.WithSignificance(n, req.Alpha))
	}
	in, err := info.New(pdf, opts...)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	report := &InfoReport{Samples: n, Quantities: in.All()}
	if in.SignificanceDone {
		p := in.MIPValue
		report.PValue = &p
	}
	return report, nil
}
