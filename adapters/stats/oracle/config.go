package oracle

import (
	"fmt"
	"strings"

	"tipnet/adapters/stats/estimator"
)

// TestKind selects how significance of an information value is judged.
type TestKind string

const (
	// GTest compares 2·N·I (in nats) with a chi-square distribution.
	GTest TestKind = "gtest"
	// Shuffle builds the null distribution by permuting one side.
	Shuffle TestKind = "shuffle"
)

// ParseTestKind accepts "gtest" and "shuffle" (case-insensitive).
func ParseTestKind(s string) (TestKind, error) {
	switch TestKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", GTest:
		return GTest, nil
	case Shuffle:
		return Shuffle, nil
	}
	return "", fmt.Errorf("unknown independence test %q", s)
}

// Config holds the oracle settings.
type Config struct {
	Test         TestKind
	Bins         int
	Binning      estimator.Binning
	Alpha        float64
	Permutations int
	Seed         int64
	MinSamples   int
	Workers      int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Test:         GTest,
		Bins:         8,
		Binning:      estimator.EqualFrequency,
		Alpha:        0.05,
		Permutations: 200,
		Seed:         42,
		MinSamples:   10,
		Workers:      4,
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Test != GTest && c.Test != Shuffle {
		return fmt.Errorf("unknown independence test %q", c.Test)
	}
	if c.Bins < 2 {
		return fmt.Errorf("bins must be >= 2, got %d", c.Bins)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0,1), got %v", c.Alpha)
	}
	if c.Test == Shuffle && c.Permutations < 1 {
		return fmt.Errorf("shuffle test needs at least one permutation, got %d", c.Permutations)
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("min samples must be >= 1, got %d", c.MinSamples)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
