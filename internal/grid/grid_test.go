package grid

import (
	"math"
	"sync"
	"testing"

	"github.com/mawry/graupel/internal/math3"
)

func TestNewDims(t *testing.T) {
	g := New([3]int{8, 4, 2})
	want := [3]int{9, 5, 3}
	if g.Dims() != want {
		t.Errorf("Dims = %v, want %v", g.Dims(), want)
	}
}

func TestScatterAddConcurrent(t *testing.T) {
	g := New([3]int{4, 4, 4})
	idx := g.Index(2, 2, 2)

	const writers = 16
	const adds = 1000
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < adds; i++ {
				g.ScatterAdd(idx, 1.0, math3.V(0.5, 0, -0.5))
			}
		}()
	}
	wg.Wait()

	if got := g.Mass(idx); math.Abs(got-writers*adds) > 1e-6 {
		t.Errorf("mass = %v, want %v", got, writers*adds)
	}
	mom := g.Velocity(idx)
	if math.Abs(mom.X-writers*adds*0.5) > 1e-6 {
		t.Errorf("momentum.X = %v", mom.X)
	}
}

func TestNormalizeSkipsZeroMass(t *testing.T) {
	g := New([3]int{2, 2, 2})
	a := g.Index(0, 0, 0)
	b := g.Index(1, 1, 1)
	g.ScatterAdd(a, 2.0, math3.V(4, 0, 0))
	g.Normalize()

	if v := g.Velocity(a); math.Abs(v.X-2) > 1e-12 {
		t.Errorf("velocity = %v, want (2,0,0)", v)
	}
	if v := g.Velocity(b); v != (math3.Vec3{}) {
		t.Errorf("zero-mass node got velocity %v", v)
	}
}

func TestResetClears(t *testing.T) {
	g := New([3]int{2, 2, 2})
	g.ScatterAdd(g.Index(1, 0, 1), 3.0, math3.V(1, 2, 3))
	g.Reset()
	if g.TotalMass() != 0 {
		t.Error("mass survived Reset")
	}
	if g.TotalMomentum() != (math3.Vec3{}) {
		t.Error("momentum survived Reset")
	}
}

func TestBackupSnapshot(t *testing.T) {
	g := New([3]int{2, 2, 2})
	idx := g.Index(1, 1, 0)
	g.ScatterAdd(idx, 1.0, math3.V(5, 0, 0))
	g.Normalize()
	g.Backup()
	g.SetVelocity(idx, math3.V(9, 9, 9))
	if bv := g.BackupVelocity(idx); math.Abs(bv.X-5) > 1e-12 {
		t.Errorf("backup = %v, want (5,0,0)", bv)
	}
}

func TestApplyExternalForceOnlyMassedNodes(t *testing.T) {
	g := New([3]int{2, 2, 2})
	idx := g.Index(0, 1, 0)
	g.ScatterAdd(idx, 1.0, math3.Vec3{})
	g.ApplyExternalForce(math3.V(0, -10, 0), 0.1)
	if v := g.Velocity(idx); math.Abs(v.Y+1) > 1e-12 {
		t.Errorf("velocity.Y = %v, want -1", v.Y)
	}
	if v := g.Velocity(g.Index(1, 1, 1)); v != (math3.Vec3{}) {
		t.Errorf("massless node accelerated: %v", v)
	}
}

func TestNeighborhoodBounds(t *testing.T) {
	g := New([3]int{8, 8, 8})

	lo, hi := g.NeighborhoodBounds(math3.V(4.5, 4.5, 4.5))
	for a := 0; a < 3; a++ {
		if lo[a] != 3 || hi[a] != 7 {
			t.Fatalf("interior bounds axis %d: [%d,%d), want [3,7)", a, lo[a], hi[a])
		}
		if hi[a]-lo[a] != 4 {
			t.Fatalf("interior support is %d nodes, want 4", hi[a]-lo[a])
		}
	}

	lo, hi = g.NeighborhoodBounds(math3.V(0.2, 8.0, 4.0))
	if lo[0] != 0 {
		t.Errorf("lower clamp failed: lo[0]=%d", lo[0])
	}
	if hi[1] != 9 {
		t.Errorf("upper clamp failed: hi[1]=%d", hi[1])
	}
}

func TestNeighborhoodWeightsWithinSupport(t *testing.T) {
	// Every node the bounds produce must be within kernel support of the
	// particle, otherwise transfers would hit the kernel assertion.
	g := New([3]int{8, 8, 8})
	positions := []math3.Vec3{
		math3.V(0.01, 0.01, 0.01),
		math3.V(3.999, 2.5, 7.9),
		math3.V(7.99, 7.99, 7.99),
	}
	for _, pos := range positions {
		lo, hi := g.NeighborhoodBounds(pos)
		p := [3]float64{pos.X, pos.Y, pos.Z}
		for a := 0; a < 3; a++ {
			for n := lo[a]; n < hi[a]; n++ {
				if d := math.Abs(float64(n) - p[a]); d > 2 {
					t.Fatalf("node %d on axis %d is %v cells from particle at %v", n, a, d, pos)
				}
			}
		}
	}
}
