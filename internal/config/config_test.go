package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradelanes.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Mode != CatalogCore || cfg.Engine.DayInterval != 10*time.Second || cfg.API.Port != 8080 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
game:
  seed: 7
  start_system: 9
catalog:
  mode: generated
  systems: 120
engine:
  day_interval: 2s
  autosave_days: 5
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.Seed != 7 || cfg.Game.StartSystem != 9 {
		t.Errorf("game = %+v", cfg.Game)
	}
	if cfg.Catalog.Mode != CatalogGenerated || cfg.Catalog.Systems != 120 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Engine.DayInterval != 2*time.Second || cfg.Engine.AutosaveDays != 5 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	// Unset keys keep their defaults.
	if cfg.Game.CargoCapacity != 50 || cfg.Catalog.Radius != 40 {
		t.Errorf("defaults lost: capacity %d radius %v", cfg.Game.CargoCapacity, cfg.Catalog.Radius)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "game:\n  seed: 7\napi:\n  port: 9000\n")
	t.Setenv("TRADELANES_SEED", "99")
	t.Setenv("TRADELANES_ADMIN_KEY", "s3cret")
	t.Setenv("TRADELANES_DAY_INTERVAL", "250ms")
	t.Setenv("TRADELANES_METRICS", "false")
	t.Setenv("TRADELANES_TRUST_PROXY", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.Seed != 99 {
		t.Errorf("seed = %d, want 99", cfg.Game.Seed)
	}
	if cfg.API.Port != 9000 || cfg.API.AdminKey != "s3cret" || cfg.API.Metrics || !cfg.API.TrustProxy {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Engine.DayInterval != 250*time.Millisecond {
		t.Errorf("interval = %v", cfg.Engine.DayInterval)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"bad yaml", "game: [", nil},
		{"unknown mode", "catalog:\n  mode: spiral\n", nil},
		{"zero capacity", "game:\n  cargo_capacity: 0\n", nil},
		{"bad level", "logging:\n  level: loud\n", nil},
		{"generated without systems", "catalog:\n  mode: generated\n  systems: 0\n", nil},
		{"generated with zero seed", "game:\n  seed: 0\ncatalog:\n  mode: generated\n", nil},
		{"generated with zero env seed", "catalog:\n  mode: generated\n", map[string]string{"TRADELANES_SEED": "0"}},
		{"bad env bool", "", map[string]string{"TRADELANES_TRUST_PROXY": "maybe"}},
		{"bad env int", "", map[string]string{"TRADELANES_PORT": "eighty"}},
		{"bad env duration", "", map[string]string{"TRADELANES_DAY_INTERVAL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
