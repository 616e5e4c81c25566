package mpm

import (
	"math"

	"github.com/mawry/graupel/internal/kernel"
	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
)

// rasterize scatters mass and momentum from every active particle onto its
// 4x4x4 node neighborhood. The affine term 3*B*d recovers the locally linear
// velocity field around the particle; the factor 3 is the inverse inertia of
// the cubic kernel at unit spacing.
func (s *Simulation) rasterize() {
	ParallelFor(len(s.particles), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			p := &s.particles[i]
			if p.State == particle.Inactive {
				continue
			}
			lo, hi := s.grid.NeighborhoodBounds(p.Pos)
			for ii := lo[0]; ii < hi[0]; ii++ {
				for jj := lo[1]; jj < hi[1]; jj++ {
					for kk := lo[2]; kk < hi[2]; kk++ {
						d := math3.V(float64(ii), float64(jj), float64(kk)).Sub(p.Pos)
						w := kernel.Weight3(d)
						vel := p.Vel
						if s.params.APIC {
							vel = vel.Add(p.B.MulVec(d).Scale(3))
						}
						s.grid.ScatterAdd(s.grid.Index(ii, jj, kk), w*p.Mass, vel.Scale(w*p.Mass))
					}
				}
			}
		}
	})
}

// resample gathers grid velocity back onto each updating particle, updates
// the deformation gradients from the velocity gradient, blends PIC/FLIP,
// advects, and applies plasticity. This is the only pass that mutates
// particle state.
func (s *Simulation) resample() {
	tick := s.sched.Tick()

	ParallelFor(len(s.particles), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			p := &s.particles[i]
			if p.State != particle.Updating {
				continue
			}

			// A slow region sits out whole global increments, so each
			// particle integrates over everything since its own last update,
			// not just the increment taken this substep.
			elapsed := float64(tick-p.LastUpdate) * s.params.BaseDt
			damp := math.Max(0, 1-elapsed*s.params.AffineDamping)

			var v, flip math3.Vec3
			var b, vg math3.Mat3
			lo, hi := s.grid.NeighborhoodBounds(p.Pos)
			fullSupport := (hi[0]-lo[0])*(hi[1]-lo[1])*(hi[2]-lo[2]) == 64

			for ii := lo[0]; ii < hi[0]; ii++ {
				for jj := lo[1]; jj < hi[1]; jj++ {
					for kk := lo[2]; kk < hi[2]; kk++ {
						// Kernel offset is particle minus node; the affine
						// moment wants the opposite arm, node minus particle.
						dp := p.Pos.Sub(math3.V(float64(ii), float64(jj), float64(kk)))
						w := kernel.Weight3(dp)
						gw := kernel.Gradient3(dp)
						idx := s.grid.Index(ii, jj, kk)
						gv := s.grid.Velocity(idx)

						v = v.Add(gv.Scale(w))
						flip = flip.Add(gv.Sub(s.grid.BackupVelocity(idx)).Scale(w))
						b = b.Add(math3.Outer(gv.Scale(w), dp.Scale(-1)))
						vg = vg.Add(math3.Outer(gv, gw))
					}
				}
			}

			// A truncated neighborhood makes the affine fit unreliable, and
			// without APIC the moment is never consumed, so it must not leak
			// into the stability limits.
			if !fullSupport || !s.params.APIC {
				b = math3.Mat3{}
			}
			// Linear decay of the affine field. An exact exponential decay
			// would be exp(-dt*lambda); the explicit form matches the rest
			// of the integrator and is cheaper.
			b = b.Scale(damp)

			p.Vel = v.Scale(1 - s.flipAlpha).Add(flip.Add(p.Vel).Scale(s.flipAlpha))
			p.B = b

			cdg := math3.Identity().Add(vg.Scale(elapsed))
			p.DgE = cdg.Mul(p.DgE)
			p.DgCache = p.DgE.Mul(p.DgP)

			p.Pos = s.clampPosition(p.Pos.Add(p.Vel.Scale(elapsed)))
			p.LastUpdate = tick

			if m, ok := s.materials[p.Kind]; ok {
				p.ApplyPlasticity(m)
			}
		}
	})
}
