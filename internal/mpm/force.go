package mpm

import (
	"github.com/mawry/graupel/internal/kernel"
	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
)

// applyDeformationForce runs the constitutive model in two passes: stress
// evaluation per particle, then projection of the stress divergence onto the
// grid velocities. Splitting keeps the expensive SVD work lock-free.
func (s *Simulation) applyDeformationForce(dt float64) {
	ParallelFor(len(s.particles), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			p := &s.particles[i]
			if p.State == particle.Inactive {
				continue
			}
			m, ok := s.materials[p.Kind]
			if !ok {
				p.TmpForce = math3.Mat3{}
				continue
			}
			p.ComputeForce(m)
		}
	})

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
						idx := s.grid.Index(ii, jj, kk)
						mass := s.grid.Mass(idx)
						if mass <= 0 {
							continue
						}
						// Particle-relative offset: the gradient of this
						// node's weight with respect to the particle position.
						dp := p.Pos.Sub(math3.V(float64(ii), float64(jj), float64(kk)))
						gw := kernel.Gradient3(dp)
						dv := p.TmpForce.MulVec(gw).Scale(dt / mass)
						s.grid.ScatterAddVelocity(idx, dv)
					}
				}
			}
		}
	})
}
