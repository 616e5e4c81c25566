// Package mpm is the simulation core: it orchestrates the particle/grid
// transfer cycle, the constitutive update, boundary handling and the
// asynchronous tick scheduler into a single Substep, and drives frames on
// top of that.
package mpm

import (
	"context"
	"fmt"

	"github.com/mawry/graupel/internal/grid"
	"github.com/mawry/graupel/internal/levelset"
	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
	"github.com/mawry/graupel/internal/scheduler"
)

// positionEps keeps advected particles strictly below the upper domain face
// so the support neighborhood never runs past the lattice.
const positionEps = 1e-4

// minChunk is the smallest per-goroutine particle range worth spawning for.
const minChunk = 256

// Params configures a Simulation. Positions and lengths are in grid-index
// units, so the cell spacing is 1 and velocities are cells per second.
type Params struct {
	Res     [3]int
	Gravity math3.Vec3

	// APIC enables the affine transfer; when off the velocity update falls
	// back to pure FLIP.
	APIC bool

	// Async enables multi-rate stepping; otherwise every substep advances
	// one base tick.
	Async bool

	BaseDt        float64
	CFL           float64
	StrengthDtMul float64
	AffineDamping float64
	MaxDt         float64
}

// Simulation owns all state for one run. Methods are not safe for concurrent
// use; the internal parallelism is the simulation's own.
type Simulation struct {
	params    Params
	grid      *grid.Grid
	particles []particle.Particle
	sched     *scheduler.Scheduler
	boundary  levelset.Surface
	materials map[particle.Kind]particle.Material

	flipAlpha float64
	substeps  int64

	// smoothnessViolations counts blocks the smoothness pass tightened below
	// the rate they had already been advanced at.
	smoothnessViolations int64
}

// New validates params and builds an empty simulation. A nil boundary means
// free space; the domain faces themselves do not collide, particles are only
// clamped there.
func New(params Params, boundary levelset.Surface) (*Simulation, error) {
	for a, r := range params.Res {
		if r < scheduler.BlockSize {
			return nil, fmt.Errorf("%w: resolution axis %d is %d, need at least %d",
				ErrBadParams, a, r, scheduler.BlockSize)
		}
	}
	if params.BaseDt <= 0 {
		return nil, fmt.Errorf("%w: base dt %g", ErrBadParams, params.BaseDt)
	}
	if params.CFL <= 0 {
		return nil, fmt.Errorf("%w: cfl %g", ErrBadParams, params.CFL)
	}
	if params.Async && params.MaxDt < params.BaseDt {
		return nil, fmt.Errorf("%w: max dt %g below base dt %g",
			ErrBadParams, params.MaxDt, params.BaseDt)
	}

	alpha := 1.0
	if params.APIC {
		alpha = 0.0
	}
	maxDt := params.MaxDt
	if !params.Async {
		maxDt = params.BaseDt
	}
	return &Simulation{
		params:    params,
		grid:      grid.New(params.Res),
		sched:     scheduler.New(params.Res, params.BaseDt, params.CFL, params.StrengthDtMul, maxDt),
		boundary:  boundary,
		materials: map[particle.Kind]particle.Material{},
		flipAlpha: alpha,
	}, nil
}

// SetMaterial registers the constitutive parameters for a particle kind.
func (s *Simulation) SetMaterial(m particle.Material) {
	s.materials[m.Kind] = m
}

// AddParticles appends seeded particles. Positions outside the domain are
// clamped rather than rejected.
func (s *Simulation) AddParticles(ps []particle.Particle) {
	for i := range ps {
		ps[i].Pos = s.clampPosition(ps[i].Pos)
		ps[i].LastUpdate = s.sched.Tick()
	}
	s.particles = append(s.particles, ps...)
}

func (s *Simulation) Particles() []particle.Particle { return s.particles }
func (s *Simulation) Grid() *grid.Grid               { return s.grid }
func (s *Simulation) Scheduler() *scheduler.Scheduler {
	return s.sched
}
func (s *Simulation) Tick() int64     { return s.sched.Tick() }
func (s *Simulation) Time() float64   { return s.sched.Time() }
func (s *Simulation) Substeps() int64 { return s.substeps }

// SmoothnessViolations reports how many times an updating block was found to
// have exceeded its own smoothed rate limit. Nonzero values mean the rate
// field changed faster than the 2:1 constraint could follow.
func (s *Simulation) SmoothnessViolations() int64 { return s.smoothnessViolations }

// TotalMass sums particle mass. Transfers conserve it exactly.
func (s *Simulation) TotalMass() float64 {
	sum := 0.0
	for i := range s.particles {
		sum += s.particles[i].Mass
	}
	return sum
}

// Momentum sums particle momentum.
func (s *Simulation) Momentum() math3.Vec3 {
	var sum math3.Vec3
	for i := range s.particles {
		sum = sum.Add(s.particles[i].Vel.Scale(s.particles[i].Mass))
	}
	return sum
}

// KineticEnergy sums 0.5*m*v^2 over the particles.
func (s *Simulation) KineticEnergy() float64 {
	sum := 0.0
	for i := range s.particles {
		v := s.particles[i].Vel
		sum += 0.5 * s.particles[i].Mass * v.Dot(v)
	}
	return sum
}

// Substep advances the simulation by one tick increment: classification,
// transfer to the grid, grid-side forces and boundaries, transfer back, and
// the per-particle constitutive update. Returns the increment actually taken.
func (s *Simulation) Substep() (int64, error) {
	if len(s.particles) == 0 {
		return 0, ErrNoParticles
	}

	s.sched.UpdateParticleGroups(s.particles)
	s.sched.ResetParticleStates(s.particles)

	var inc, pot int64
	if s.params.Async {
		s.sched.Reset()
		s.sched.UpdateDtLimits(s.particles, s.materials)
		pot = scheduler.LargestPOT(int64(s.params.MaxDt / s.params.BaseDt))
		if m := s.sched.UpdateMaxDtInt(); m < pot {
			pot = m
		}
		inc = scheduler.AlignIncrement(pot, s.sched.Tick())
		s.sched.SetTick(s.sched.Tick() + inc)
		s.sched.Expand(s.particles)
	} else {
		inc = 1
		s.sched.SetTick(s.sched.Tick() + 1)
		s.sched.MarkAllUpdating(s.particles)
	}
	dt := float64(inc) * s.params.BaseDt

	s.grid.Reset()
	s.rasterize()
	s.grid.Normalize()
	s.grid.Backup()
	s.grid.ApplyExternalForce(s.params.Gravity, dt)
	s.applyDeformationForce(dt)
	s.applyGridBoundaryConditions()
	s.resample()
	s.resolveParticleCollisions()

	if s.params.Async {
		// Smoothness is checked against the rate chosen before tick
		// alignment. Tightened neighbors get re-classified next substep;
		// nothing is rolled back within this one, only counted. Because the
		// increment is the minimum over all occupied blocks, the violation
		// set stays empty unless the limits themselves change mid-pass.
		s.smoothnessViolations += int64(len(s.sched.EnforceSmoothness(pot)))
	}

	s.substeps++
	return inc, s.validate()
}

// AdvanceFrame substeps until the simulation clock reaches one frame further.
func (s *Simulation) AdvanceFrame(ctx context.Context, frameDt float64) error {
	target := s.sched.Time() + frameDt
	for s.sched.Time() < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := s.Substep(); err != nil {
			return err
		}
	}
	return nil
}

// Run advances the given number of frames, calling observe after each. A nil
// observe just runs the physics.
func (s *Simulation) Run(ctx context.Context, frames int, frameDt float64, observe func(frame int, s *Simulation) error) error {
	for f := 0; f < frames; f++ {
		if err := s.AdvanceFrame(ctx, frameDt); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
		if observe != nil {
			if err := observe(f, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulation) validate() error {
	for i := range s.particles {
		if s.particles[i].State != particle.Updating {
			continue
		}
		if !s.particles[i].IsValid() {
			return fmt.Errorf("%w: particle %d at tick %d", ErrNonFinite, i, s.sched.Tick())
		}
	}
	return nil
}

func (s *Simulation) clampPosition(p math3.Vec3) math3.Vec3 {
	return p.Clamp(
		math3.Vec3{},
		math3.V(
			float64(s.params.Res[0])-positionEps,
			float64(s.params.Res[1])-positionEps,
			float64(s.params.Res[2])-positionEps,
		),
	)
}
