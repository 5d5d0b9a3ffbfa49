package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Strategy.Default != "ask" {
		t.Errorf("Strategy.Default = %q, want ask", cfg.Strategy.Default)
	}
	if cfg.Tuning.TimeoutStep != 300 || cfg.Tuning.TimeoutMax != 1800 {
		t.Errorf("unexpected tuning defaults: %+v", cfg.Tuning)
	}
}

func TestLoad_MissingPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(\"\") = %+v, want Default()", cfg)
	}
}

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Strategy.Default != "ask" {
		t.Errorf("Strategy.Default = %q, want ask", cfg.Strategy.Default)
	}
}

func TestLoad_OverlayMergesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiler.yaml")
	if err := os.WriteFile(path, []byte(`
tuning:
  timeout_max: 3600
storage:
  backend: s3
  bucket: my-bucket
`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tuning.TimeoutMax != 3600 {
		t.Errorf("TimeoutMax = %d, want 3600", cfg.Tuning.TimeoutMax)
	}
	if cfg.Tuning.TimeoutStep != 300 {
		t.Errorf("TimeoutStep = %d, want unchanged default 300", cfg.Tuning.TimeoutStep)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.Bucket != "my-bucket" {
		t.Errorf("Storage = %+v, want backend=s3 bucket=my-bucket", cfg.Storage)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiler.yaml")
	if err := os.WriteFile(path, []byte("bogus_top_level: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}
