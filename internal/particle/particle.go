// Package particle holds the Lagrangian material samples: position, velocity,
// elastic/plastic deformation state, and the per-variant constitutive
// behavior. Particles live in one contiguous slice with a kind discriminant
// so parallel loops stay cache-friendly and allocation-free.
package particle

import (
	"github.com/mawry/graupel/internal/math3"
)

// ActivationState is the scheduler's per-particle phase.
type ActivationState uint8

const (
	Inactive ActivationState = iota
	Buffer
	Updating
)

func (s ActivationState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Buffer:
		return "buffer"
	case Updating:
		return "updating"
	}
	return "unknown"
}

// Kind discriminates the material variant stored in a Particle.
type Kind uint8

const (
	// ElasticPlastic is the snow-style variant: fixed-corotated elasticity
	// with singular-value clamping plasticity.
	ElasticPlastic Kind = iota
	// GranularSand is the sand-style variant: cohesionless elasticity with a
	// Drucker-Prager-type return mapping.
	GranularSand
)

// Particle is one material sample. Position is in grid-index units and stays
// inside [0, resolution) per axis. The grids DgE and DgP split the total
// deformation into recoverable and permanent parts; DgCache holds the
// freshly advected total gradient for the next force computation. B is the
// APIC affine velocity surrogate. TmpForce is volume-scaled stress,
// recomputed every tick and projected onto the grid through the kernel
// gradient.
type Particle struct {
	Kind Kind

	Pos math3.Vec3
	Vel math3.Vec3

	DgE     math3.Mat3
	DgP     math3.Mat3
	DgCache math3.Mat3
	B       math3.Mat3

	TmpForce math3.Mat3
	Mass     float64
	Vol      float64

	State      ActivationState
	LastUpdate int64
}

// New returns a particle at rest with identity deformation.
func New(kind Kind, pos, vel math3.Vec3, tick int64) Particle {
	return Particle{
		Kind:       kind,
		Pos:        pos,
		Vel:        vel,
		DgE:        math3.Identity(),
		DgP:        math3.Identity(),
		DgCache:    math3.Identity(),
		Mass:       1.0,
		Vol:        1.0,
		State:      Buffer,
		LastUpdate: tick,
	}
}

// SyncedPosition extrapolates the position to the current tick for particles
// that have not been integrated this frame. Rendering and diagnostics use
// this so sub-cycled regions appear at a consistent time.
func (p *Particle) SyncedPosition(currentTick int64, baseDt float64) math3.Vec3 {
	elapsed := float64(currentTick-p.LastUpdate) * baseDt
	return p.Pos.Add(p.Vel.Scale(elapsed))
}

// IsValid reports whether position, velocity and deformation state are free
// of NaN/Inf. The simulation treats a failure here as fatal.
func (p *Particle) IsValid() bool {
	return p.Pos.IsFinite() && p.Vel.IsFinite() &&
		p.DgE.IsFinite() && p.DgP.IsFinite() && p.B.IsFinite()
}

// RenderPoint is the read-only view handed to rendering collaborators.
type RenderPoint struct {
	Pos   math3.Vec3
	State ActivationState
}

// RenderPoints extrapolates every particle to the current tick. Callers own
// the returned slice; simulation state is never shared mutably.
func RenderPoints(particles []Particle, currentTick int64, baseDt float64) []RenderPoint {
	pts := make([]RenderPoint, len(particles))
	for i := range particles {
		pts[i] = RenderPoint{
			Pos:   particles[i].SyncedPosition(currentTick, baseDt),
			State: particles[i].State,
		}
	}
	return pts
}
