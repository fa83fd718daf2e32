package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"alttag/internal/config"
)

func runConfigInit(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newConfigInitCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestConfigInitRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := runConfigInit(t, "--path", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := runConfigInit(t, "--path", path); err == nil {
		t.Fatal("expected error for existing config without --overwrite")
	}
}

func TestConfigInitOverwriteReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("stale = true\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	if err := runConfigInit(t, "--path", path, "--overwrite"); err != nil {
		t.Fatalf("init --overwrite: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(contents) != config.SampleConfig() {
		t.Fatal("existing config was not replaced with the sample")
	}
}
