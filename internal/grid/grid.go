// Package grid implements the background Eulerian lattice that carries mass
// and momentum during a transfer step. The grid is a transient buffer: it is
// rebuilt from the particles every tick and holds no simulation state of its
// own across ticks.
package grid

import (
	"sync"

	"github.com/mawry/graupel/internal/math3"
)

// Node is one lattice sample. The mutex serializes concurrent scatter
// accumulation from particles landing on the same node.
type Node struct {
	Vel  math3.Vec3
	Mass float64
	mu   sync.Mutex
}

// Grid spans resolution+1 nodes per axis so that particles near the upper
// domain face still have a full set of supporting nodes.
type Grid struct {
	res    [3]int
	dims   [3]int
	nodes  []Node
	backup []math3.Vec3
}

func New(res [3]int) *Grid {
	dims := [3]int{res[0] + 1, res[1] + 1, res[2] + 1}
	n := dims[0] * dims[1] * dims[2]
	return &Grid{
		res:    res,
		dims:   dims,
		nodes:  make([]Node, n),
		backup: make([]math3.Vec3, n),
	}
}

func (g *Grid) Res() [3]int  { return g.res }
func (g *Grid) Dims() [3]int { return g.dims }

// Index flattens lattice coordinates. Callers are expected to stay in bounds;
// the bounds come from NeighborhoodBounds or the dims themselves.
func (g *Grid) Index(i, j, k int) int {
	return (i*g.dims[1]+j)*g.dims[2] + k
}

func (g *Grid) Velocity(idx int) math3.Vec3 { return g.nodes[idx].Vel }
func (g *Grid) Mass(idx int) float64        { return g.nodes[idx].Mass }
func (g *Grid) BackupVelocity(idx int) math3.Vec3 {
	return g.backup[idx]
}

func (g *Grid) SetVelocity(idx int, v math3.Vec3) { g.nodes[idx].Vel = v }

// Reset zeroes velocity and mass on every node.
func (g *Grid) Reset() {
	for i := range g.nodes {
		g.nodes[i].Vel = math3.Vec3{}
		g.nodes[i].Mass = 0
	}
}

// ScatterAdd accumulates a mass and momentum contribution onto one node. The
// lock is held only around the read-modify-write, never around kernel
// evaluation; the summed result is exact up to floating-point reassociation.
func (g *Grid) ScatterAdd(idx int, dm float64, dp math3.Vec3) {
	n := &g.nodes[idx]
	n.mu.Lock()
	n.Mass += dm
	n.Vel = n.Vel.Add(dp)
	n.mu.Unlock()
}

// ScatterAddVelocity accumulates a velocity delta under the node lock. Used
// by the force projection pass, where grid velocity is already normalized.
func (g *Grid) ScatterAddVelocity(idx int, dv math3.Vec3) {
	n := &g.nodes[idx]
	n.mu.Lock()
	n.Vel = n.Vel.Add(dv)
	n.mu.Unlock()
}

// Normalize converts accumulated momentum into velocity. Zero-mass nodes are
// an expected sparse-grid condition and keep zero velocity.
func (g *Grid) Normalize() {
	for i := range g.nodes {
		if g.nodes[i].Mass > 0 {
			g.nodes[i].Vel = g.nodes[i].Vel.Scale(1 / g.nodes[i].Mass)
		}
	}
}

// Backup snapshots node velocities for the FLIP-style correction applied
// later during resample.
func (g *Grid) Backup() {
	for i := range g.nodes {
		g.backup[i] = g.nodes[i].Vel
	}
}

// ApplyExternalForce adds acceleration*dt to every node carrying mass.
func (g *Grid) ApplyExternalForce(accel math3.Vec3, dt float64) {
	dv := accel.Scale(dt)
	for i := range g.nodes {
		if g.nodes[i].Mass > 0 {
			g.nodes[i].Vel = g.nodes[i].Vel.Add(dv)
		}
	}
}

// TotalMass sums accumulated node mass, mostly for conservation checks.
func (g *Grid) TotalMass() float64 {
	sum := 0.0
	for i := range g.nodes {
		sum += g.nodes[i].Mass
	}
	return sum
}

// TotalMomentum sums node momentum. Only meaningful before Normalize; after
// normalization multiply velocity back by mass.
func (g *Grid) TotalMomentum() math3.Vec3 {
	var sum math3.Vec3
	for i := range g.nodes {
		sum = sum.Add(g.nodes[i].Vel)
	}
	return sum
}

// MassWeightedMomentum sums mass*velocity, the momentum after Normalize.
func (g *Grid) MassWeightedMomentum() math3.Vec3 {
	var sum math3.Vec3
	for i := range g.nodes {
		sum = sum.Add(g.nodes[i].Vel.Scale(g.nodes[i].Mass))
	}
	return sum
}

// NeighborhoodBounds returns the half-open node index range [lo, hi) of the
// 4x4x4 support around pos, clamped to the lattice. A particle in the domain
// interior always gets the full 64 nodes; near a face the range shrinks.
func (g *Grid) NeighborhoodBounds(pos math3.Vec3) (lo, hi [3]int) {
	p := [3]float64{pos.X, pos.Y, pos.Z}
	for a := 0; a < 3; a++ {
		base := int(p[a]) // pos is non-negative inside the domain
		l, h := base-1, base+3
		if l < 0 {
			l = 0
		}
		if h > g.dims[a] {
			h = g.dims[a]
		}
		lo[a], hi[a] = l, h
	}
	return lo, hi
}
