// Package levelset defines the implicit-surface oracle consumed by the
// boundary handler, plus a few analytic surfaces. The simulation core only
// ever samples a surface; how a surface is represented is its own business.
package levelset

import "github.com/mawry/graupel/internal/math3"

// Surface is a signed-distance oracle. Sample returns the signed distance
// phi at a position (positive outside the obstacle, negative inside),
// SpatialGradient the outward unit normal, and NormalSpeed the speed of the
// boundary itself along that normal, so that the boundary velocity vector is
// NormalSpeed * SpatialGradient.
//
// A negative Friction marks the surface as sticky: contacting material takes
// on the boundary velocity completely.
type Surface interface {
	Sample(pos math3.Vec3, t float64) float64
	SpatialGradient(pos math3.Vec3, t float64) math3.Vec3
	NormalSpeed(pos math3.Vec3, t float64) float64
	Friction() float64
}

// HalfSpace is the region above a plane: phi = (pos - point) . normal.
type HalfSpace struct {
	Point  math3.Vec3
	Normal math3.Vec3 // unit
	Mu     float64
}

func (h HalfSpace) Sample(pos math3.Vec3, t float64) float64 {
	return pos.Sub(h.Point).Dot(h.Normal)
}

func (h HalfSpace) SpatialGradient(pos math3.Vec3, t float64) math3.Vec3 {
	return h.Normal
}

func (h HalfSpace) NormalSpeed(pos math3.Vec3, t float64) float64 { return 0 }

func (h HalfSpace) Friction() float64 { return h.Mu }

// Sphere is a solid ball obstacle: phi = |pos - center| - radius.
type Sphere struct {
	Center math3.Vec3
	Radius float64
	Mu     float64
}

func (s Sphere) Sample(pos math3.Vec3, t float64) float64 {
	return pos.Sub(s.Center).Norm() - s.Radius
}

func (s Sphere) SpatialGradient(pos math3.Vec3, t float64) math3.Vec3 {
	return pos.Sub(s.Center).Normalized(1e-12)
}

func (s Sphere) NormalSpeed(pos math3.Vec3, t float64) float64 { return 0 }

func (s Sphere) Friction() float64 { return s.Mu }

// Translating moves a base surface with constant velocity.
type Translating struct {
	Base Surface
	Vel  math3.Vec3
}

func (m Translating) Sample(pos math3.Vec3, t float64) float64 {
	return m.Base.Sample(pos.Sub(m.Vel.Scale(t)), 0)
}

func (m Translating) SpatialGradient(pos math3.Vec3, t float64) math3.Vec3 {
	return m.Base.SpatialGradient(pos.Sub(m.Vel.Scale(t)), 0)
}

func (m Translating) NormalSpeed(pos math3.Vec3, t float64) float64 {
	return m.Vel.Dot(m.SpatialGradient(pos, t))
}

func (m Translating) Friction() float64 { return m.Base.Friction() }

// Union combines surfaces by minimum distance. Friction comes from whichever
// member is closest at the last Sample; to keep the oracle stateless the
// friction of the first member is used, so unions should group surfaces with
// a common friction coefficient.
type Union struct {
	Members []Surface
}

func (u Union) closest(pos math3.Vec3, t float64) Surface {
	best := u.Members[0]
	bestPhi := best.Sample(pos, t)
	for _, s := range u.Members[1:] {
		if phi := s.Sample(pos, t); phi < bestPhi {
			best, bestPhi = s, phi
		}
	}
	return best
}

func (u Union) Sample(pos math3.Vec3, t float64) float64 {
	return u.closest(pos, t).Sample(pos, t)
}

func (u Union) SpatialGradient(pos math3.Vec3, t float64) math3.Vec3 {
	return u.closest(pos, t).SpatialGradient(pos, t)
}

func (u Union) NormalSpeed(pos math3.Vec3, t float64) float64 {
	return u.closest(pos, t).NormalSpeed(pos, t)
}

func (u Union) Friction() float64 { return u.Members[0].Friction() }
