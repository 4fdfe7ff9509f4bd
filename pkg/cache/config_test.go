package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "columnlet.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
cache:
  enabled: true
  location: /dev/shm/columnlet.cache
  size: 1073741824
index:
  location: /dev/shm/columnlet.index
  size: 104857600
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		Enabled:       true,
		CacheLocation: "/dev/shm/columnlet.cache",
		CacheSize:     1073741824,
		IndexLocation: "/dev/shm/columnlet.index",
		IndexSize:     104857600,
	}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigDefaultsEnabled(t *testing.T) {
	path := writeConfig(t, `
cache:
  location: /tmp/c
index:
  location: /tmp/i
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Enabled {
		t.Fatal("cache.enabled should default to true")
	}
}

func TestLoadConfigDisabledSkipsValidation(t *testing.T) {
	path := writeConfig(t, "cache:\n  enabled: false\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Enabled {
		t.Fatal("expected disabled config")
	}
}

func TestLoadConfigMissingLocations(t *testing.T) {
	path := writeConfig(t, "cache:\n  enabled: true\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for missing locations")
	}
}

func TestValidateNegativeSizes(t *testing.T) {
	cfg := Config{Enabled: true, CacheLocation: "c", IndexLocation: "i", CacheSize: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative cache.size")
	}
}
