// Package kernel provides the cubic B-spline interpolation kernel used for
// particle/grid transfers. The kernel has support [-2, 2]; callers must
// restrict evaluation to the 4x4x4 node neighborhood around a particle.
package kernel

import (
	"fmt"

	"github.com/mawry/graupel/internal/math3"
)

// Radius is the half-width of the kernel support in grid cells.
const Radius = 2.0

// Weight evaluates the 1D cubic B-spline at x. Panics if |x| > 2: that means
// the caller enumerated nodes outside the supported neighborhood, which is a
// bug, not a recoverable condition.
func Weight(x float64) float64 {
	if x < 0 {
		x = -x
	}
	if x > Radius {
		panic(fmt.Sprintf("kernel: weight evaluated at |x|=%v outside support", x))
	}
	if x < 1 {
		return 0.5*x*x*x - x*x + 2.0/3.0
	}
	return -1.0/6.0*x*x*x + x*x - 2*x + 4.0/3.0
}

// Gradient evaluates the analytic derivative of Weight at x. It is
// sign-symmetric: Gradient(-x) = -Gradient(x).
func Gradient(x float64) float64 {
	s := 1.0
	if x < 0 {
		s = -1.0
		x = -x
	}
	if x > Radius {
		panic(fmt.Sprintf("kernel: gradient evaluated at |x|=%v outside support", x))
	}
	xx := x * x
	var val float64
	if x < 1 {
		val = 1.5*xx - 2.0*x
	} else {
		val = -0.5*xx + 2.0*x - 2.0
	}
	return s * val
}

// Weight3 is the separable 3D weight: the product of the per-axis weights.
func Weight3(d math3.Vec3) float64 {
	return Weight(d.X) * Weight(d.Y) * Weight(d.Z)
}

// Gradient3 is the separable 3D gradient: each component differentiates one
// axis while holding the other two weights fixed.
func Gradient3(d math3.Vec3) math3.Vec3 {
	wx, wy, wz := Weight(d.X), Weight(d.Y), Weight(d.Z)
	return math3.Vec3{
		X: Gradient(d.X) * wy * wz,
		Y: wx * Gradient(d.Y) * wz,
		Z: wx * wy * Gradient(d.Z),
	}
}
