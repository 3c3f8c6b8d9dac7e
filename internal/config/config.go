package config

import (
	"os"
	"strconv"
	"time"

	"tipnet/adapters/stats/estimator"
	"tipnet/adapters/stats/oracle"
	"tipnet/domain/network"
	"tipnet/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Discovery network.Params
	Oracle    oracle.Config
	Profiling ProfilingConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	ConnTimeout  time.Duration
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	GinMode     string
	MaxUploadMB int64
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:  *loadDatabaseConfig(),
		Server:    *loadServerConfig(),
		Discovery: loadDiscoveryParams(),
		Profiling: *loadProfilingConfig(),
	}

	oracleConfig, err := loadOracleConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load oracle configuration")
	}
	config.Oracle = oracleConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		ConnTimeout:  getEnvDurationOrDefault("DB_CONN_TIMEOUT", 5*time.Second),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "debug"),
		MaxUploadMB: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 32)),
	}
}

// LoadDiscovery reads only the discovery and oracle defaults (TIPNET_*), for
// tools that need no server or database settings. On error the built-in
// defaults are returned with it.
func LoadDiscovery() (network.Params, oracle.Config, error) {
	params := loadDiscoveryParams()
	cfg, err := loadOracleConfig()
	if err != nil {
		return network.DefaultParams(), oracle.DefaultConfig(), err
	}
	if err := params.Validate(); err != nil {
		return network.DefaultParams(), oracle.DefaultConfig(), errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return network.DefaultParams(), oracle.DefaultConfig(), errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return params, cfg, nil
}

func loadDiscoveryParams() network.Params {
	def := network.DefaultParams()
	return network.Params{
		DTau:   getEnvIntOrDefault("TIPNET_DTAU", def.DTau),
		TauMax: getEnvIntOrDefault("TIPNET_TAUMAX", def.TauMax),
		TauMin: getEnvIntOrDefault("TIPNET_TAUMIN", def.TauMin),
		Deep:   getEnvBoolOrDefault("TIPNET_DEEP", def.Deep),
	}
}

func loadOracleConfig() (oracle.Config, error) {
	cfg := oracle.DefaultConfig()

	test, err := oracle.ParseTestKind(getEnvOrDefault("TIPNET_TEST", string(cfg.Test)))
	if err != nil {
		return cfg, errors.ConfigInvalid(err.Error())
	}
	binning, err := estimator.ParseBinning(getEnvOrDefault("TIPNET_BINNING", string(cfg.Binning)))
	if err != nil {
		return cfg, errors.ConfigInvalid(err.Error())
	}

	cfg.Test = test
	cfg.Binning = binning
	cfg.Bins = getEnvIntOrDefault("TIPNET_BINS", cfg.Bins)
	cfg.Alpha = getEnvFloatOrDefault("TIPNET_ALPHA", cfg.Alpha)
	cfg.Permutations = getEnvIntOrDefault("TIPNET_PERMUTATIONS", cfg.Permutations)
	cfg.Seed = int64(getEnvIntOrDefault("TIPNET_SEED", int(cfg.Seed)))
	cfg.Workers = getEnvIntOrDefault("TIPNET_WORKERS", cfg.Workers)
	return cfg, nil
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Server.MaxUploadMB < 1 {
		return errors.ConfigInvalidf("MAX_UPLOAD_MB must be >= 1, got %d", config.Server.MaxUploadMB)
	}
	if err := config.Discovery.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := config.Oracle.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
