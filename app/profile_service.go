package app

import (
	"context"

	apperrors "tipnet/internal/errors"
	"tipnet/internal/profiling"
	"tipnet/ports"
)

// ProfileReport describes the observations a discovery would run on.
type ProfileReport struct {
	Source    string                      `json:"source"`
	Samples   int                         `json:"samples"`
	Variables []profiling.VariableProfile `json:"variables"`
}

// ProfileObservations loads the observations from reader and summarizes each
// variable.
func ProfileObservations(ctx context.Context, reader ports.ObservationReader) (*ProfileReport, error) {
	if reader == nil {
		return nil, apperrors.InvalidInput("no observation source")
	}
	obs, err := reader.ReadObservations(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load observations")
	}
	profiles, err := profiling.ProfileObservations(obs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidInput(err.Error()), "failed to profile observations")
	}
	samples, _ := obs.Data.Dims()
	return &ProfileReport{Source: obs.Source, Samples: samples, Variables: profiles}, nil
}
