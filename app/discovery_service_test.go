package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/oracle"
	"tipnet/domain/core"
	"tipnet/domain/network"
	"tipnet/internal"
	apperrors "tipnet/internal/errors"
	"tipnet/internal/testkit"
	"tipnet/ports"
)

type MockNetworkRepository struct {
	mock.Mock
}

func (m *MockNetworkRepository) Save(ctx context.Context, run *network.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockNetworkRepository) Get(ctx context.Context, id core.RunID) (*network.Run, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*network.Run)
	return run, args.Error(1)
}

func (m *MockNetworkRepository) FindByFingerprint(ctx context.Context, fingerprint core.Hash) (*network.Run, error) {
	args := m.Called(ctx, fingerprint)
	run, _ := args.Get(0).(*network.Run)
	return run, args.Error(1)
}

func (m *MockNetworkRepository) List(ctx context.Context, limit, offset int) ([]*network.Run, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*network.Run), args.Error(1)
}

type stubReader struct {
	obs   *ports.Observations
	err   error
	reads int
}

func (s *stubReader) ReadObservations(context.Context) (*ports.Observations, error) {
	s.reads++
	return s.obs, s.err
}

func laggedPair(n int) *ports.Observations {
	obs := testkit.MustGenerate(testkit.LaggedCopy(1, n, 3))
	obs.Source = "pair.csv"
	return obs
}

func testOracleConfig() oracle.Config {
	cfg := oracle.DefaultConfig()
	cfg.Bins = 4
	cfg.Binning = estimator.EqualWidth
	cfg.Alpha = 0.001
	return cfg
}

func quietService(repo ports.NetworkRepository) *DiscoveryService {
	return NewDiscoveryService(repo, nil, internal.NewWriterLogger(internal.LogLevelError, &bytes.Buffer{}))
}

func TestDiscoverStoresRun(t *testing.T) {
	repo := new(MockNetworkRepository)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*network.Run")).Return(nil)

	run, err := quietService(repo).Discover(context.Background(), DiscoveryRequest{
		Reader: &stubReader{obs: laggedPair(1500)},
		Params: network.Params{DTau: 1, TauMin: 1, TauMax: 5},
		Oracle: testOracleConfig(),
		Store:  true,
	})
	require.NoError(t, err)

	assert.False(t, run.ID.String() == "")
	assert.False(t, run.Fingerprint.IsEmpty())
	assert.Equal(t, "pair.csv", run.Source)
	assert.Equal(t, []string{"x0(t-1)"}, run.NamedParents()["x1"])
	assert.Empty(t, run.NamedParents()["x0"])
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestDiscoverReusesStoredRun(t *testing.T) {
	cached := &network.Run{ID: core.NewRunID()}
	repo := new(MockNetworkRepository)
	repo.On("FindByFingerprint", mock.Anything, mock.Anything).Return(cached, nil)

	run, err := quietService(repo).Discover(context.Background(), DiscoveryRequest{
		Reader: &stubReader{obs: laggedPair(200)},
		Params: network.DefaultParams(),
		Oracle: testOracleConfig(),
		Store:  true,
		Reuse:  true,
	})
	require.NoError(t, err)
	assert.Same(t, cached, run)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDiscoverComputesWhenNothingCached(t *testing.T) {
	repo := new(MockNetworkRepository)
	repo.On("FindByFingerprint", mock.Anything, mock.Anything).
		Return(nil, apperrors.WithCode(apperrors.CodeNotFound, core.NewNotFoundError("network run", "x")))

	run, err := quietService(repo).Discover(context.Background(), DiscoveryRequest{
		Reader: &stubReader{obs: laggedPair(300)},
		Params: network.Params{DTau: 1, TauMin: 1, TauMax: 3},
		Oracle: testOracleConfig(),
		Reuse:  true,
	})
	require.NoError(t, err)
	assert.NotNil(t, run.Result)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDiscoverRejectsInvalidSettingsBeforeReading(t *testing.T) {
	reader := &stubReader{obs: laggedPair(50)}
	badOracle := testOracleConfig()
	badOracle.Alpha = 2

	tests := []struct {
		name   string
		params network.Params
		oracle oracle.Config
	}{
		{"tau_min above tau_max", network.Params{DTau: 1, TauMin: 10, TauMax: 3}, testOracleConfig()},
		{"alpha out of range", network.DefaultParams(), badOracle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietService(nil).Discover(context.Background(), DiscoveryRequest{Reader: reader, Params: tt.params, Oracle: tt.oracle})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
		})
	}
	assert.Zero(t, reader.reads)
}

func TestDiscoverPropagatesReaderErrors(t *testing.T) {
	reader := &stubReader{err: apperrors.InvalidInput("bad file")}
	_, err := quietService(nil).Discover(context.Background(), DiscoveryRequest{
		Reader: reader, Params: network.DefaultParams(), Oracle: testOracleConfig(),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestFingerprintDependsOnDataAndSettings(t *testing.T) {
	obs := laggedPair(100)
	req := DiscoveryRequest{Params: network.DefaultParams(), Oracle: testOracleConfig()}
	first := fingerprintOf(obs, req)
	assert.Equal(t, first, fingerprintOf(laggedPair(100), req))

	req.Params.Deep = true
	assert.NotEqual(t, first, fingerprintOf(obs, req))
	assert.NotEqual(t, first, fingerprintOf(laggedPair(101), DiscoveryRequest{Params: network.DefaultParams(), Oracle: testOracleConfig()}))

	// too few aligned samples turns a verdict into "independent"
	stricter := DiscoveryRequest{Params: network.DefaultParams(), Oracle: testOracleConfig()}
	stricter.Oracle.MinSamples++
	assert.NotEqual(t, first, fingerprintOf(obs, stricter))
	assert.Equal(t, stricter.Oracle.MinSamples, settingsOf(stricter.Oracle).MinSamples)
}

func TestGet(t *testing.T) {
	id := core.NewRunID()
	stored := &network.Run{ID: id}
	repo := new(MockNetworkRepository)
	repo.On("Get", mock.Anything, id).Return(stored, nil)

	run, err := quietService(repo).Get(context.Background(), id.String())
	require.NoError(t, err)
	assert.Same(t, stored, run)

	_, err = quietService(repo).Get(context.Background(), "not-a-uuid")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = quietService(nil).Get(context.Background(), id.String())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListWithoutRepository(t *testing.T) {
	runs, err := quietService(nil).List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListClampsPaging(t *testing.T) {
	repo := new(MockNetworkRepository)
	repo.On("List", mock.Anything, 20, 0).Return([]*network.Run{}, nil)

	_, err := quietService(repo).List(context.Background(), 1000, -5)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDiscoverRequiresReader(t *testing.T) {
	_, err := quietService(nil).Discover(context.Background(), DiscoveryRequest{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.False(t, errors.Is(err, core.ErrNotFound))
}
