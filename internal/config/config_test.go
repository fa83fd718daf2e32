package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alttag/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Processing.BatchSize != 10 {
		t.Fatalf("unexpected default batch size: %d", cfg.Processing.BatchSize)
	}
	if cfg.Processing.MinConfidence != 0.70 {
		t.Fatalf("unexpected default min confidence: %v", cfg.Processing.MinConfidence)
	}
	if !cfg.Processing.RequireReview {
		t.Fatal("require_review should default to true")
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[provider]
endpoint_url = "captions.example.com/v1/alt"

[processing]
batch_size = 25
min_confidence = 0.5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to resolve, got exists=%v path=%q", exists, resolved)
	}
	if cfg.Processing.BatchSize != 25 {
		t.Fatalf("batch size not applied: %d", cfg.Processing.BatchSize)
	}
	if !strings.HasPrefix(cfg.Provider.EndpointURL, "https://") {
		t.Fatalf("expected scheme promotion, got %q", cfg.Provider.EndpointURL)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data dir not absolute: %q", cfg.Paths.DataDir)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"batch size too small", func(c *config.Config) { c.Processing.BatchSize = 0 }},
		{"batch size too large", func(c *config.Config) { c.Processing.BatchSize = 51 }},
		{"confidence negative", func(c *config.Config) { c.Processing.MinConfidence = -0.1 }},
		{"confidence above one", func(c *config.Config) { c.Processing.MinConfidence = 1.5 }},
		{"stale lock zero", func(c *config.Config) { c.Processing.StaleLockMinutes = 0 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path, false); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path, false); err == nil {
		t.Fatal("expected error writing over existing config")
	}
}

func TestWriteSampleForceReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("stale = true\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	if err := config.WriteSample(path, true); err != nil {
		t.Fatalf("WriteSample with force failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(contents) != config.SampleConfig() {
		t.Fatal("existing config was not replaced with the sample")
	}
}
