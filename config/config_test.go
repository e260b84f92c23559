package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress == "" || cfg.DataDir == "" {
		t.Fatalf("expected default config to be populated, got %+v", cfg)
	}
	if cfg.SnapshotCapacity <= 0 {
		t.Fatalf("expected default snapshot capacity > 0, got %d", cfg.SnapshotCapacity)
	}
	if cfg.SlotIntervalMillis != DefaultSlotIntervalMillis {
		t.Fatalf("expected default slot interval %d, got %d", DefaultSlotIntervalMillis, cfg.SlotIntervalMillis)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ListenAddress != cfg.ListenAddress || reloaded.DataDir != cfg.DataDir {
		t.Fatalf("expected reload to match persisted default, got %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = ":9090"
DataDir = "/var/lib/farmengine"
Env = "production"
SnapshotCapacity = 500
RateLimitPerSecond = 10
RateLimitBurst = 20
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9090" || cfg.Env != "production" || cfg.SnapshotCapacity != 500 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
