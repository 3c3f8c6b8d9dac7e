package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tipnet/adapters/stats/oracle"
	"tipnet/domain/core"
	"tipnet/domain/network"
	"tipnet/internal"
	apperrors "tipnet/internal/errors"
	builder "tipnet/internal/network"
	"tipnet/internal/profiling"
	"tipnet/ports"
)

// DiscoveryRequest describes one discovery run.
type DiscoveryRequest struct {
	Reader ports.ObservationReader
	Params network.Params
	Oracle oracle.Config
	// Store persists the run when a repository is configured.
	Store bool
	// Reuse returns a stored run with the same data and settings instead of
	// recomputing it.
	Reuse bool
}

// DiscoveryService loads observations, runs the network builder and stores
// the outcome.
type DiscoveryService struct {
	repo   ports.NetworkRepository
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewDiscoveryService creates the service. repo may be nil, which disables
// persistence.
func NewDiscoveryService(repo ports.NetworkRepository, rng ports.RNGPort, logger *internal.Logger) *DiscoveryService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if rng == nil {
		rng = oracle.HashRNG{}
	}
	return &DiscoveryService{
		repo:   repo,
		rng:    rng,
		logger: logger.WithComponent("DiscoveryService"),
	}
}

// PersistenceEnabled reports whether runs can be stored and fetched.
func (s *DiscoveryService) PersistenceEnabled() bool { return s.repo != nil }

// Discover runs the full pipeline and returns the run record.
func (s *DiscoveryService) Discover(ctx context.Context, req DiscoveryRequest) (*network.Run, error) {
	if req.Reader == nil {
		return nil, apperrors.InvalidInput("no observation source")
	}
	if err := req.Params.Validate(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid, err)
	}
	if err := req.Oracle.Validate(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid, err)
	}

	obs, err := req.Reader.ReadObservations(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load observations")
	}
	s.warnDegenerate(obs)
	fingerprint := fingerprintOf(obs, req)

	if req.Reuse && s.repo != nil {
		cached, err := s.repo.FindByFingerprint(ctx, fingerprint)
		switch {
		case err == nil:
			s.logger.Info("reusing run %s for %s", cached.ID, obs.Source)
			return cached, nil
		case !errors.Is(err, core.ErrNotFound):
			s.logger.Warn("fingerprint lookup failed: %v", err)
		}
	}

	o, err := oracle.New(req.Oracle, oracle.WithLogger(s.logger), oracle.WithRNG(s.rng))
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeConfigInvalid, err)
	}

	start := time.Now()
	result, err := builder.NewBuilder(o, req.Params, builder.WithLogger(s.logger)).Discover(ctx, obs.Data)
	if err != nil {
		return nil, apperrors.Wrap(err, "discovery failed")
	}

	run := &network.Run{
		ID:          core.NewRunID(),
		Source:      obs.Source,
		Variables:   obs.Variables,
		Params:      req.Params,
		Oracle:      settingsOf(req.Oracle),
		Fingerprint: fingerprint,
		Result:      result,
		DurationMs:  time.Since(start).Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	s.logger.Info("run %s: %d variables, %d samples, converged lag %d in %dms",
		run.ID, result.Variables, result.Samples, result.ConvergedLag, run.DurationMs)

	if req.Store {
		if s.repo == nil {
			s.logger.Warn("persistence disabled; run %s not stored", run.ID)
		} else if err := s.repo.Save(ctx, run); err != nil {
			return nil, apperrors.Wrap(err, "failed to store run")
		}
	}
	return run, nil
}

// warnDegenerate logs variables the oracle can never find dependent.
func (s *DiscoveryService) warnDegenerate(obs *ports.Observations) {
	profiles, err := profiling.ProfileObservations(obs)
	if err != nil {
		s.logger.Debug("profiling skipped: %v", err)
		return
	}
	for _, p := range profiles {
		if p.Constant {
			s.logger.Warn("variable %q is constant; it will have no parents or children", p.Name)
		}
	}
}

// Get fetches a stored run by its textual id.
func (s *DiscoveryService) Get(ctx context.Context, id string) (*network.Run, error) {
	runID, err := core.ParseRunID(id)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if s.repo == nil {
		return nil, apperrors.NotFound("network run " + runID.String())
	}
	return s.repo.Get(ctx, runID)
}

// List returns stored runs newest first.
func (s *DiscoveryService) List(ctx context.Context, limit, offset int) ([]*network.Run, error) {
	if s.repo == nil {
		return []*network.Run{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func fingerprintOf(obs *ports.Observations, req DiscoveryRequest) core.Hash {
	rows, cols := obs.Data.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, obs.Data.RawRowView(i)...)
	}
	settings := fmt.Sprintf("%+v|%+v", req.Params, settingsOf(req.Oracle))
	return core.ComputeObservationHash(rows, cols, data, settings)
}

func settingsOf(cfg oracle.Config) network.OracleSettings {
	s := network.OracleSettings{
		Test:       string(cfg.Test),
		Bins:       cfg.Bins,
		Binning:    string(cfg.Binning),
		Alpha:      cfg.Alpha,
		Seed:       cfg.Seed,
		MinSamples: cfg.MinSamples,
	}
	if cfg.Test == oracle.Shuffle {
		s.Permutations = cfg.Permutations
	}
	return s
}
