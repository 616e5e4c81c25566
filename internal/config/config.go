package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseTimeStep    = 1e-6
	DefaultCFL             = 1.0
	DefaultStrengthDtMul   = 1.0
	DefaultMaximumTimeStep = 1e-1
	DefaultFrameDt         = 1e-2
	DefaultFrames          = 100
	DefaultSeedDensity     = 4.0
)

// Config is the full simulation setup, loadable from yaml. Flags set on the
// CLI override whatever a file provides.
type Config struct {
	Scenario        string     `yaml:"scenario"`
	Resolution      [3]int     `yaml:"resolution"`
	Gravity         [3]float64 `yaml:"gravity"`
	APIC            bool       `yaml:"apic"`
	Async           bool       `yaml:"async"`
	BaseTimeStep    float64    `yaml:"base_time_step"`
	CFL             float64    `yaml:"cfl"`
	StrengthDtMul   float64    `yaml:"strength_time_step_multiplier"`
	AffineDamping   float64    `yaml:"affine_damping"`
	MaximumTimeStep float64    `yaml:"maximum_time_step"` // only meaningful when async
	FrameDt         float64    `yaml:"frame_dt"`
	Frames          int        `yaml:"frames"`
	Friction        float64    `yaml:"friction"` // negative means sticky
	Seed            SeedConfig `yaml:"seed"`
}

// SeedConfig controls initial particle placement.
type SeedConfig struct {
	Source          string     `yaml:"source"` // "uniform" or "noise"
	Density         float64    `yaml:"density"`
	NoiseScale      float64    `yaml:"noise_scale"`
	RandSeed        int64      `yaml:"rand_seed"`
	RegionMin       [3]float64 `yaml:"region_min"` // fractions of the domain
	RegionMax       [3]float64 `yaml:"region_max"`
	InitialVelocity [3]float64 `yaml:"initial_velocity"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:        "snow",
		Resolution:      [3]int{32, 32, 32},
		Gravity:         [3]float64{0, -10, 0},
		APIC:            true,
		Async:           false,
		BaseTimeStep:    DefaultBaseTimeStep,
		CFL:             DefaultCFL,
		StrengthDtMul:   DefaultStrengthDtMul,
		AffineDamping:   0,
		MaximumTimeStep: DefaultMaximumTimeStep,
		FrameDt:         DefaultFrameDt,
		Frames:          DefaultFrames,
		Friction:        0.4,
		Seed: SeedConfig{
			Source:    "uniform",
			Density:   DefaultSeedDensity,
			RegionMin: [3]float64{0.3, 0.5, 0.3},
			RegionMax: [3]float64{0.7, 0.9, 0.7},
			RandSeed:  42,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	for a, r := range c.Resolution {
		if r < 4 {
			return fmt.Errorf("config: resolution axis %d is %d, need at least 4", a, r)
		}
	}
	if c.BaseTimeStep <= 0 {
		return fmt.Errorf("config: base_time_step must be positive, got %g", c.BaseTimeStep)
	}
	if c.CFL <= 0 {
		return fmt.Errorf("config: cfl must be positive, got %g", c.CFL)
	}
	if c.Async && c.MaximumTimeStep < c.BaseTimeStep {
		return fmt.Errorf("config: maximum_time_step %g below base_time_step %g", c.MaximumTimeStep, c.BaseTimeStep)
	}
	if c.FrameDt < c.BaseTimeStep {
		return fmt.Errorf("config: frame_dt %g below base_time_step %g", c.FrameDt, c.BaseTimeStep)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("config: frames must be positive, got %d", c.Frames)
	}
	if c.Seed.Density <= 0 {
		return fmt.Errorf("config: seed density must be positive, got %g", c.Seed.Density)
	}
	return nil
}
