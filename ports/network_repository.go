package ports

import (
	"context"

	"tipnet/domain/core"
	"tipnet/domain/network"
)

// NetworkRepository stores discovery runs.
type NetworkRepository interface {
	Save(ctx context.Context, run *network.Run) error
	Get(ctx context.Context, id core.RunID) (*network.Run, error)
	FindByFingerprint(ctx context.Context, fingerprint core.Hash) (*network.Run, error)
	List(ctx context.Context, limit, offset int) ([]*network.Run, error)
}
