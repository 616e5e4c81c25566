package mpm

import (
	"math"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
)

// Boundary handling acts in a narrow band around the surface: a node further
// than one cell outside, or three cells inside, is left alone.
const (
	boundaryBandOutside = 1.0
	boundaryBandInside  = -3.0
)

// applyGridBoundaryConditions rewrites node velocities near the obstacle
// surface. Each node is touched exactly once so no locking is needed.
func (s *Simulation) applyGridBoundaryConditions() {
	if s.boundary == nil {
		return
	}
	t := s.sched.Time()

	if s.params.Async {
		nodes := s.sched.ActiveGridNodes()
		ParallelFor(len(nodes), 1024, func(start, end int) {
			for n := start; n < end; n++ {
				s.applyNodeBoundary(nodes[n][0], nodes[n][1], nodes[n][2], t)
			}
		})
		return
	}

	dims := s.grid.Dims()
	total := dims[0] * dims[1] * dims[2]
	ParallelFor(total, 4096, func(start, end int) {
		for f := start; f < end; f++ {
			k := f % dims[2]
			j := (f / dims[2]) % dims[1]
			i := f / (dims[1] * dims[2])
			s.applyNodeBoundary(i, j, k, t)
		}
	})
}

func (s *Simulation) applyNodeBoundary(i, j, k int, t float64) {
	// The level set is sampled half a cell off the node, at the cell center.
	pos := math3.V(float64(i)+0.5, float64(j)+0.5, float64(k)+0.5)
	phi := s.boundary.Sample(pos, t)
	if phi >= boundaryBandOutside || phi <= boundaryBandInside {
		return
	}

	n := s.boundary.SpatialGradient(pos, t)
	bv := n.Scale(s.boundary.NormalSpeed(pos, t))
	idx := s.grid.Index(i, j, k)

	// Work in the boundary's rest frame.
	v := s.grid.Velocity(idx).Sub(bv)
	mu := s.boundary.Friction()

	switch {
	case phi > 0:
		if mu < 0 {
			// Sticky: material takes on the boundary motion completely.
			v = math3.Vec3{}
		} else if vn := v.Dot(n); vn < 0 {
			vt := v.Sub(n.Scale(vn))
			vtn := vt.Norm()
			if vtn > -mu*vn {
				// Coulomb slip: tangential motion shortened by mu*|vn|.
				v = vt.Scale(1 + mu*vn/vtn)
			} else {
				v = math3.Vec3{}
			}
		}
	case phi < 0:
		// Penetrating node: only separating normal motion survives, even
		// against a sticky surface, so trapped material can escape.
		v = n.Scale(math.Max(0, v.Dot(n)))
	}

	s.grid.SetVelocity(idx, v.Add(bv))
}

// resolveParticleCollisions is the Lagrangian backstop for particles the grid
// projection missed, typically fast movers crossing the band in one step.
func (s *Simulation) resolveParticleCollisions() {
	if s.boundary == nil {
		return
	}
	t := s.sched.Time()
	ParallelFor(len(s.particles), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			p := &s.particles[i]
			if p.State != particle.Updating {
				continue
			}
			p.ResolveCollision(s.boundary, t)
		}
	})
}
