package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tipnet/domain/core"
	"tipnet/domain/network"
	apperrors "tipnet/internal/errors"
	"tipnet/ports"
)

// networkRunRow mirrors the network_runs table.
type networkRunRow struct {
	ID          string         `db:"id"`
	Source      string         `db:"source"`
	Variables   pq.StringArray `db:"variables"`
	Params      []byte         `db:"params"`
	Oracle      []byte         `db:"oracle"`
	Fingerprint string         `db:"fingerprint"`
	Result      []byte         `db:"result"`
	DurationMs  int64          `db:"duration_ms"`
	CreatedAt   time.Time      `db:"created_at"`
}

const networkRunColumns = `id, source, variables, params, oracle, fingerprint, result, duration_ms, created_at`

// networkRepository implements ports.NetworkRepository on PostgreSQL.
type networkRepository struct {
	db *sqlx.DB
}

// NewNetworkRepository creates a repository backed by db.
func NewNetworkRepository(db *sqlx.DB) ports.NetworkRepository {
	return &networkRepository{db: db}
}

// Save inserts run, replacing a stored run with the same id.
func (r *networkRepository) Save(ctx context.Context, run *network.Run) error {
	row, err := toRow(run)
	if err != nil {
		return err
	}

	query := `INSERT INTO network_runs (` + networkRunColumns + `)
	VALUES (:id, :source, :variables, :params, :oracle, :fingerprint, :result, :duration_ms, :created_at)
	ON CONFLICT (id) DO UPDATE SET
		source = EXCLUDED.source, variables = EXCLUDED.variables, params = EXCLUDED.params,
		oracle = EXCLUDED.oracle, fingerprint = EXCLUDED.fingerprint, result = EXCLUDED.result,
		duration_ms = EXCLUDED.duration_ms`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return apperrors.DatabaseError("failed to save network run", err)
	}
	return nil
}

// Get loads a run by id.
func (r *networkRepository) Get(ctx context.Context, id core.RunID) (*network.Run, error) {
	var row networkRunRow
	query := `SELECT ` + networkRunColumns + ` FROM network_runs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WithCode(apperrors.CodeNotFound, core.NewNotFoundError("network run", id.String()))
		}
		return nil, apperrors.DatabaseError("failed to get network run", err)
	}
	return fromRow(&row)
}

// FindByFingerprint returns the newest run with the given fingerprint.
func (r *networkRepository) FindByFingerprint(ctx context.Context, fingerprint core.Hash) (*network.Run, error) {
	var row networkRunRow
	query := `SELECT ` + networkRunColumns + ` FROM network_runs
	WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, fingerprint.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WithCode(apperrors.CodeNotFound, core.NewNotFoundError("network run", fingerprint.String()))
		}
		return nil, apperrors.DatabaseError("failed to find network run", err)
	}
	return fromRow(&row)
}

// List returns runs newest first.
func (r *networkRepository) List(ctx context.Context, limit, offset int) ([]*network.Run, error) {
	var rows []networkRunRow
	query := `SELECT ` + networkRunColumns + ` FROM network_runs
	ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, apperrors.DatabaseError("failed to list network runs", err)
	}

	runs := make([]*network.Run, 0, len(rows))
	for i := range rows {
		run, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func toRow(run *network.Run) (*networkRunRow, error) {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	oracle, err := json.Marshal(run.Oracle)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oracle settings: %w", err)
	}
	result, err := json.Marshal(run.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &networkRunRow{
		ID:          run.ID.String(),
		Source:      run.Source,
		Variables:   pq.StringArray(run.Variables),
		Params:      params,
		Oracle:      oracle,
		Fingerprint: run.Fingerprint.String(),
		Result:      result,
		DurationMs:  run.DurationMs,
		CreatedAt:   run.CreatedAt,
	}, nil
}

func fromRow(row *networkRunRow) (*network.Run, error) {
	run := &network.Run{
		ID:          core.RunID(row.ID),
		Source:      row.Source,
		Variables:   []string(row.Variables),
		Fingerprint: core.Hash(row.Fingerprint),
		DurationMs:  row.DurationMs,
		CreatedAt:   row.CreatedAt,
	}
	if err := json.Unmarshal(row.Params, &run.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if len(row.Oracle) > 0 {
		if err := json.Unmarshal(row.Oracle, &run.Oracle); err != nil {
			return nil, fmt.Errorf("failed to unmarshal oracle settings: %w", err)
		}
	}
	if len(row.Result) > 0 && string(row.Result) != "null" {
		run.Result = &network.Result{}
		if err := json.Unmarshal(row.Result, run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return run, nil
}
