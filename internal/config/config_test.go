package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("unexpected timeout %v", cfg.HTTP.Timeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Delay != 2*time.Second {
		t.Errorf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Storage.Backend != "json" {
		t.Errorf("unexpected storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Server.Port != 8080 || cfg.Server.MetricsPort != 9090 {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
http:
  timeout: 10s
  fingerprint: firefox
search:
  max_per_query: 5
storage:
  backend: sqlite
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Timeout != 10*time.Second {
		t.Errorf("file value not applied: %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.Fingerprint != "firefox" {
		t.Errorf("unexpected fingerprint %q", cfg.HTTP.Fingerprint)
	}
	if cfg.Search.MaxPerQuery != 5 {
		t.Errorf("unexpected max_per_query %d", cfg.Search.MaxPerQuery)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("unexpected backend %q", cfg.Storage.Backend)
	}
	// Untouched values keep their defaults.
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("default lost: %+v", cfg.Retry)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}
