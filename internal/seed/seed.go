// Package seed places initial particles into the domain: uniform blocks and
// coherent-noise density fields, both with jittered in-cell positions and
// stochastic rounding so the expected particle count matches the requested
// density exactly.
package seed

import (
	"math"
	"math/rand"

	"github.com/ojrac/opensimplex-go"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
)

// Field maps a position (grid-index units) to a relative density in [0, 1].
type Field func(pos math3.Vec3) float64

// Seeder fills regions of one domain. It is deterministic for a given seed.
type Seeder struct {
	res [3]int
	rng *rand.Rand
}

func New(res [3]int, randSeed int64) *Seeder {
	return &Seeder{res: res, rng: rand.New(rand.NewSource(randSeed))}
}

// Fill seeds the axis-aligned box [lo, hi) with density particles per cell,
// modulated by field (nil means uniform). Each particle carries the mass and
// volume of its share of a cell, so material density is reproduced on the
// grid regardless of the sampling rate.
func (s *Seeder) Fill(kind particle.Kind, m particle.Material, lo, hi math3.Vec3, density float64, vel math3.Vec3, field Field) []particle.Particle {
	lo = s.clampToDomain(lo)
	hi = s.clampToDomain(hi)

	var ps []particle.Particle
	for x := math.Floor(lo.X); x < hi.X; x++ {
		for y := math.Floor(lo.Y); y < hi.Y; y++ {
			for z := math.Floor(lo.Z); z < hi.Z; z++ {
				cell := math3.V(x, y, z)
				rel := 1.0
				if field != nil {
					rel = field(cell.Add(math3.Splat(0.5)))
					if rel <= 0 {
						continue
					}
				}
				expected := density * rel
				n := int(expected)
				if s.rng.Float64() < expected-float64(n) {
					n++
				}
				for i := 0; i < n; i++ {
					pos := cell.Add(math3.V(s.rng.Float64(), s.rng.Float64(), s.rng.Float64()))
					pos = pos.Clamp(lo, hi)
					p := particle.New(kind, pos, vel, 0)
					p.Mass = m.Density / density
					p.Vol = 1 / density
					ps = append(ps, p)
				}
			}
		}
	}
	return ps
}

func (s *Seeder) clampToDomain(v math3.Vec3) math3.Vec3 {
	return v.Clamp(math3.Vec3{}, math3.V(
		float64(s.res[0]),
		float64(s.res[1]),
		float64(s.res[2]),
	))
}

// NoiseField builds a coherent-noise density field in [0, 1]. Larger scale
// means larger blobs.
func NoiseField(randSeed int64, scale float64) Field {
	if scale <= 0 {
		scale = 8
	}
	n := opensimplex.NewNormalized(randSeed)
	return func(pos math3.Vec3) float64 {
		return n.Eval3(pos.X/scale, pos.Y/scale, pos.Z/scale)
	}
}
