// Package registry maps scenario names to fully built simulations: material,
// obstacles and initial particles assembled from a config.
package registry

import (
	"fmt"

	"github.com/mawry/graupel/internal/config"
	"github.com/mawry/graupel/internal/levelset"
	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/metrics"
	"github.com/mawry/graupel/internal/mpm"
	"github.com/mawry/graupel/internal/particle"
	"github.com/mawry/graupel/internal/seed"
)

type BuildFunc func(cfg *config.Config) (*mpm.Simulation, error)

type Registry struct {
	scenarios map[string]BuildFunc
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]BuildFunc)}

	r.scenarios["snow"] = func(cfg *config.Config) (*mpm.Simulation, error) {
		return buildScenario(cfg, particle.Snow(), floor(cfg))
	}
	r.scenarios["sand"] = func(cfg *config.Config) (*mpm.Simulation, error) {
		return buildScenario(cfg, particle.Sand(), floor(cfg))
	}
	r.scenarios["snow-sphere"] = func(cfg *config.Config) (*mpm.Simulation, error) {
		res := cfg.Resolution
		obstacle := levelset.Sphere{
			Center: math3.V(float64(res[0])/2, float64(res[1])/3, float64(res[2])/2),
			Radius: float64(res[1]) / 8,
			Mu:     cfg.Friction,
		}
		surface := levelset.Union{Members: []levelset.Surface{floor(cfg), obstacle}}
		return buildScenario(cfg, particle.Snow(), surface)
	}
	r.scenarios["snow-plow"] = func(cfg *config.Config) (*mpm.Simulation, error) {
		res := cfg.Resolution
		wall := levelset.Translating{
			Base: levelset.HalfSpace{
				Point:  math3.V(2, 0, 0),
				Normal: math3.V(1, 0, 0),
				Mu:     cfg.Friction,
			},
			Vel: math3.V(float64(res[0])/20, 0, 0),
		}
		surface := levelset.Union{Members: []levelset.Surface{floor(cfg), wall}}
		return buildScenario(cfg, particle.Snow(), surface)
	}

	return r
}

// Build constructs and seeds the named scenario.
func (r *Registry) Build(name string, cfg *config.Config) (*mpm.Simulation, error) {
	fn, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("registry: unknown scenario %q", name)
	}
	return fn(cfg)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	return names
}

// DefaultMetrics is the metric set attached to every scenario.
func (r *Registry) DefaultMetrics() []metrics.Metric {
	return metrics.Standard()
}

// floor is the common ground plane, placed a little above the domain face so
// the boundary band has room below it.
func floor(cfg *config.Config) levelset.Surface {
	return levelset.HalfSpace{
		Point:  math3.V(0, float64(cfg.Resolution[1])*0.15, 0),
		Normal: math3.V(0, 1, 0),
		Mu:     cfg.Friction,
	}
}

func buildScenario(cfg *config.Config, m particle.Material, surface levelset.Surface) (*mpm.Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := mpm.New(mpm.Params{
		Res:           cfg.Resolution,
		Gravity:       math3.V(cfg.Gravity[0], cfg.Gravity[1], cfg.Gravity[2]),
		APIC:          cfg.APIC,
		Async:         cfg.Async,
		BaseDt:        cfg.BaseTimeStep,
		CFL:           cfg.CFL,
		StrengthDtMul: cfg.StrengthDtMul,
		AffineDamping: cfg.AffineDamping,
		MaxDt:         cfg.MaximumTimeStep,
	}, surface)
	if err != nil {
		return nil, err
	}
	s.SetMaterial(m)

	res := cfg.Resolution
	sc := cfg.Seed
	lo := math3.V(
		sc.RegionMin[0]*float64(res[0]),
		sc.RegionMin[1]*float64(res[1]),
		sc.RegionMin[2]*float64(res[2]),
	)
	hi := math3.V(
		sc.RegionMax[0]*float64(res[0]),
		sc.RegionMax[1]*float64(res[1]),
		sc.RegionMax[2]*float64(res[2]),
	)
	var field seed.Field
	if sc.Source == "noise" {
		field = seed.NoiseField(sc.RandSeed, sc.NoiseScale)
	}
	vel := math3.V(sc.InitialVelocity[0], sc.InitialVelocity[1], sc.InitialVelocity[2])
	ps := seed.New(res, sc.RandSeed).Fill(m.Kind, m, lo, hi, sc.Density, vel, field)
	if len(ps) == 0 {
		return nil, fmt.Errorf("registry: scenario seeded no particles")
	}
	s.AddParticles(ps)
	return s, nil
}
