package seed

import (
	"math"
	"testing"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
)

func TestFillCountMatchesDensity(t *testing.T) {
	s := New([3]int{32, 32, 32}, 1)
	lo, hi := math3.V(8, 8, 8), math3.V(18, 18, 18)
	density := 4.0
	ps := s.Fill(particle.ElasticPlastic, particle.Snow(), lo, hi, density, math3.Vec3{}, nil)

	want := density * 1000 // 10^3 cells
	got := float64(len(ps))
	if math.Abs(got-want) > 0.1*want {
		t.Errorf("seeded %v particles, want about %v", got, want)
	}
}

func TestFillStaysInsideRegion(t *testing.T) {
	s := New([3]int{32, 32, 32}, 2)
	lo, hi := math3.V(4, 4, 4), math3.V(8, 8, 8)
	ps := s.Fill(particle.GranularSand, particle.Sand(), lo, hi, 2, math3.V(0, -1, 0), nil)
	if len(ps) == 0 {
		t.Fatal("no particles seeded")
	}
	for i, p := range ps {
		for a := 0; a < 3; a++ {
			if p.Pos.At(a) < lo.At(a) || p.Pos.At(a) > hi.At(a) {
				t.Fatalf("particle %d outside region: %v", i, p.Pos)
			}
		}
		if p.Vel != math3.V(0, -1, 0) {
			t.Fatalf("particle %d velocity %v", i, p.Vel)
		}
	}
}

func TestFillMassReproducesMaterialDensity(t *testing.T) {
	s := New([3]int{32, 32, 32}, 3)
	m := particle.Snow()
	density := 8.0
	ps := s.Fill(particle.ElasticPlastic, m, math3.V(8, 8, 8), math3.V(16, 16, 16), density, math3.Vec3{}, nil)

	total := 0.0
	for _, p := range ps {
		total += p.Mass
	}
	// Expected mass is material density times region volume; stochastic
	// rounding keeps it close.
	want := m.Density * 512
	if math.Abs(total-want) > 0.1*want {
		t.Errorf("total mass %v, want about %v", total, want)
	}
}

func TestFillIsDeterministic(t *testing.T) {
	mk := func() []particle.Particle {
		s := New([3]int{16, 16, 16}, 7)
		return s.Fill(particle.ElasticPlastic, particle.Snow(), math3.V(2, 2, 2), math3.V(10, 10, 10), 3, math3.Vec3{}, nil)
	}
	a, b := mk(), mk()
	if len(a) != len(b) {
		t.Fatalf("counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Pos != b[i].Pos {
			t.Fatalf("position %d differs: %v vs %v", i, a[i].Pos, b[i].Pos)
		}
	}
}

func TestNoiseFieldModulatesDensity(t *testing.T) {
	field := NoiseField(11, 4)
	low, high := math.Inf(1), math.Inf(-1)
	for x := 0.0; x < 32; x += 2 {
		for y := 0.0; y < 32; y += 2 {
			v := field(math3.V(x, y, 16))
			if v < 0 || v > 1 {
				t.Fatalf("field value %v outside [0,1]", v)
			}
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	if high-low < 0.1 {
		t.Errorf("field nearly constant: range [%v, %v]", low, high)
	}

	s := New([3]int{32, 32, 32}, 12)
	uniform := s.Fill(particle.ElasticPlastic, particle.Snow(), math3.V(4, 4, 4), math3.V(28, 28, 28), 4, math3.Vec3{}, nil)
	s2 := New([3]int{32, 32, 32}, 12)
	noisy := s2.Fill(particle.ElasticPlastic, particle.Snow(), math3.V(4, 4, 4), math3.V(28, 28, 28), 4, math3.Vec3{}, field)
	if len(noisy) >= len(uniform) {
		t.Errorf("noise field did not thin the seeding: %d vs %d", len(noisy), len(uniform))
	}
}
