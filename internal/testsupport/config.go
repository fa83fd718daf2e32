package testsupport

import (
	"path/filepath"
	"testing"

	"alttag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Provider.EndpointURL = "https://caption.test/v1/generate"
	cfg.Provider.AuthToken = "test-token"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMinConfidence overrides the auto-approval confidence floor.
func WithMinConfidence(value float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.MinConfidence = value
	}
}

// WithRequireReview toggles the manual review gate.
func WithRequireReview(required bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.RequireReview = required
	}
}
