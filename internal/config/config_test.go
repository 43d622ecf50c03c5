package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "nope")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("missing file must fall back to defaults: %v", err)
	}
	if cfg.Mode != "release" || cfg.Port != 3000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PingPeriod != 54*time.Second || cfg.WriteTimeout != 5*time.Second {
		t.Fatalf("duration defaults wrong: %+v", cfg)
	}
	if cfg.SendBuffer != 256 || cfg.ReadLimit != 1<<20 {
		t.Fatalf("buffer defaults wrong: %+v", cfg)
	}
	if cfg.JoinRate != 10 || cfg.JoinWindow != 10*time.Second {
		t.Fatalf("join limiter defaults wrong: %+v", cfg)
	}
}

func TestLoad_ReadsEnvSelectedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")

	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte("mode: debug\nport: 9000\nping_period: 10s\nsend_buffer: 32\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "debug" || cfg.Port != 9000 || cfg.PingPeriod != 10*time.Second || cfg.SendBuffer != 32 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if cfg.WriteTimeout != 5*time.Second {
		t.Fatalf("default not preserved: %+v", cfg)
	}
}
