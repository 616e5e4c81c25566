package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tiny resolution", func(c *Config) { c.Resolution[1] = 2 }},
		{"zero base dt", func(c *Config) { c.BaseTimeStep = 0 }},
		{"negative cfl", func(c *Config) { c.CFL = -1 }},
		{"async max dt below base", func(c *Config) { c.Async = true; c.MaximumTimeStep = 1e-9 }},
		{"zero frames", func(c *Config) { c.Frames = 0 }},
		{"zero seed density", func(c *Config) { c.Seed.Density = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")

	cfg := DefaultConfig()
	cfg.Resolution = [3]int{64, 48, 64}
	cfg.Async = true
	cfg.AffineDamping = 2.5

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Resolution != cfg.Resolution {
		t.Errorf("resolution = %v, want %v", loaded.Resolution, cfg.Resolution)
	}
	if !loaded.Async || loaded.AffineDamping != 2.5 {
		t.Errorf("fields lost in round trip: %+v", loaded)
	}
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	if err := os.WriteFile(path, []byte("scenario: sand\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Scenario != "sand" {
		t.Errorf("scenario = %q", cfg.Scenario)
	}
	if !cfg.APIC {
		t.Error("apic default lost")
	}
	if cfg.BaseTimeStep != DefaultBaseTimeStep {
		t.Errorf("base dt = %v", cfg.BaseTimeStep)
	}
}

func TestPresetsAreValid(t *testing.T) {
	for scenario, presets := range Presets {
		for name, cfg := range presets {
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset %s/%s invalid: %v", scenario, name, err)
			}
		}
	}
}

func TestGetPreset(t *testing.T) {
	if GetPreset("snow", "block-drop") == nil {
		t.Error("known preset missing")
	}
	if GetPreset("snow", "nope") != nil {
		t.Error("unknown preset returned")
	}
	if names := ListPresets("sand"); len(names) == 0 {
		t.Error("no sand presets listed")
	}
}
