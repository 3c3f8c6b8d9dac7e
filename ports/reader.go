package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Observations is a loaded N x D observation matrix with its column names.
type Observations struct {
	Source    string
	Variables []string
	Data      *mat.Dense
}

// ObservationReader loads an observation matrix, ordered by time ascending.
type ObservationReader interface {
	ReadObservations(ctx context.Context) (*Observations, error)
}
