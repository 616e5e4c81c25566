package math3

import "math"

// Vec3 is a 3-component vector in grid-index units.
type Vec3 struct {
	X, Y, Z float64
}

func V(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func Splat(v float64) Vec3 { return Vec3{v, v, v} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

// Normalized returns the unit vector, or the zero vector if a is shorter
// than eps.
func (a Vec3) Normalized(eps float64) Vec3 {
	n := a.Norm()
	if n <= eps {
		return Vec3{}
	}
	return a.Scale(1 / n)
}

func (a Vec3) At(i int) float64 {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	}
	return a.Z
}

// Clamp limits each component to [lo, hi].
func (a Vec3) Clamp(lo, hi Vec3) Vec3 {
	return Vec3{
		clamp(a.X, lo.X, hi.X),
		clamp(a.Y, lo.Y, hi.Y),
		clamp(a.Z, lo.Z, hi.Z),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether all components are free of NaN and Inf.
func (a Vec3) IsFinite() bool {
	return finite(a.X) && finite(a.Y) && finite(a.Z)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
