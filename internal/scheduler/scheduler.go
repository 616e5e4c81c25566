// Package scheduler implements the asynchronous multi-rate time stepping
// bookkeeping: the global integer tick, per-region stability limits, and the
// activation states that decide which particles and grid nodes take part in
// a given tick. Regions are fixed blocks of grid cells; every block advances
// by a power-of-two multiple of the base time step, and neighboring blocks
// are kept within a 2:1 rate ratio.
package scheduler

import (
	"math"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
)

// BlockSize is the edge length of a scheduler region in grid cells.
const BlockSize = 4

// Scheduler owns tick/activation bookkeeping. All methods are sequential:
// the cost is O(particles + blocks) classification work, not worth the
// coordination overhead of parallelizing.
type Scheduler struct {
	res         [3]int
	nb          [3]int // blocks per axis
	baseDt      float64
	cfl         float64
	strengthMul float64
	maxPot      int64 // ceiling from maximum_time_step

	tick int64

	blockLimit     []int64 // per-block stability limit, power of two, in ticks
	blockParticles [][]int
	blockUpdating  []bool
	blockActive    []bool // updating or buffering
}

func New(res [3]int, baseDt, cfl, strengthMul, maxDt float64) *Scheduler {
	nb := [3]int{
		(res[0] + BlockSize - 1) / BlockSize,
		(res[1] + BlockSize - 1) / BlockSize,
		(res[2] + BlockSize - 1) / BlockSize,
	}
	n := nb[0] * nb[1] * nb[2]
	s := &Scheduler{
		res:            res,
		nb:             nb,
		baseDt:         baseDt,
		cfl:            cfl,
		strengthMul:    strengthMul,
		maxPot:         LargestPOT(int64(maxDt / baseDt)),
		blockLimit:     make([]int64, n),
		blockParticles: make([][]int, n),
		blockUpdating:  make([]bool, n),
		blockActive:    make([]bool, n),
	}
	for i := range s.blockLimit {
		s.blockLimit[i] = s.maxPot
	}
	return s
}

func (s *Scheduler) Tick() int64 { return s.tick }

// BlockLimit exposes a block's current stability limit in ticks.
func (s *Scheduler) BlockLimit(b int) int64 { return s.blockLimit[b] }

func (s *Scheduler) SetTick(t int64)   { s.tick = t }
func (s *Scheduler) Time() float64     { return float64(s.tick) * s.baseDt }
func (s *Scheduler) BlockCount() int   { return len(s.blockLimit) }
func (s *Scheduler) BlockDims() [3]int { return s.nb }

// LargestPOT returns the largest power of two not exceeding x, and 1 for
// anything below 2.
func LargestPOT(x int64) int64 {
	if x < 1 {
		return 1
	}
	p := int64(1)
	for p*2 <= x {
		p *= 2
	}
	return p
}

// AlignIncrement aligns a chosen power-of-two increment so the advanced tick
// lands on a multiple of it: increment = pot - tick mod pot. Shared tick
// boundaries are what let differently-rated regions re-synchronize.
func AlignIncrement(pot, tick int64) int64 {
	return pot - tick%pot
}

func (s *Scheduler) blockIndex(bi, bj, bk int) int {
	return (bi*s.nb[1]+bj)*s.nb[2] + bk
}

// BlockOf maps a particle position (grid-index units) to its region.
func (s *Scheduler) BlockOf(pos math3.Vec3) int {
	bi := clampInt(int(pos.X)/BlockSize, 0, s.nb[0]-1)
	bj := clampInt(int(pos.Y)/BlockSize, 0, s.nb[1]-1)
	bk := clampInt(int(pos.Z)/BlockSize, 0, s.nb[2]-1)
	return s.blockIndex(bi, bj, bk)
}

// UpdateParticleGroups rebins every particle into its current block.
func (s *Scheduler) UpdateParticleGroups(ps []particle.Particle) {
	for i := range s.blockParticles {
		s.blockParticles[i] = s.blockParticles[i][:0]
	}
	for i := range ps {
		b := s.BlockOf(ps[i].Pos)
		s.blockParticles[b] = append(s.blockParticles[b], i)
	}
}

// ResetParticleStates downgrades everything to inactive before this tick's
// activation is decided.
func (s *Scheduler) ResetParticleStates(ps []particle.Particle) {
	for i := range ps {
		ps[i].State = particle.Inactive
	}
	for i := range s.blockUpdating {
		s.blockUpdating[i] = false
		s.blockActive[i] = false
	}
}

// Reset restores every block's stability limit to the ceiling; UpdateDtLimits
// then only tightens.
func (s *Scheduler) Reset() {
	for i := range s.blockLimit {
		s.blockLimit[i] = s.maxPot
	}
}

// UpdateDtLimits recomputes each occupied block's stability limit from a
// CFL-style velocity bound and the material sound speed, both expressed as
// power-of-two tick multiples.
func (s *Scheduler) UpdateDtLimits(ps []particle.Particle, materials map[particle.Kind]particle.Material) {
	for b, idxs := range s.blockParticles {
		if len(idxs) == 0 {
			continue
		}
		limit := math.Inf(1)
		for _, i := range idxs {
			p := &ps[i]
			// Grid spacing is 1 in index units.
			if vm := p.Vel.Norm(); vm > 1e-12 {
				limit = math.Min(limit, s.cfl/vm)
			}
			if dm := p.B.MaxAbs(); dm > 1e-12 {
				limit = math.Min(limit, s.cfl/dm)
			}
			if m, ok := materials[p.Kind]; ok {
				if c := m.SoundSpeed(); c > 1e-12 {
					limit = math.Min(limit, s.strengthMul/c)
				}
			}
		}
		pot := s.maxPot
		if !math.IsInf(limit, 1) {
			pot = LargestPOT(int64(limit / s.baseDt))
			if pot > s.maxPot {
				pot = s.maxPot
			}
		}
		s.blockLimit[b] = pot
	}
}

// UpdateMaxDtInt returns the scheduler's own largest permissible tick
// increment: the tightest limit over occupied blocks, so no region is forced
// past its stability bound. The caller still aligns the result to tick
// boundaries.
func (s *Scheduler) UpdateMaxDtInt() int64 {
	min := s.maxPot
	occupied := false
	for b, idxs := range s.blockParticles {
		if len(idxs) == 0 {
			continue
		}
		occupied = true
		if s.blockLimit[b] < min {
			min = s.blockLimit[b]
		}
	}
	if !occupied {
		return s.maxPot
	}
	return min
}

// Expand marks blocks due at the current tick as updating and widens the
// active set by one block ring so transfers near rate boundaries see their
// full support. Due means the tick is a multiple of the block's limit; the
// alignment of increments guarantees this divisibility invariant.
func (s *Scheduler) Expand(ps []particle.Particle) {
	for b := range s.blockLimit {
		if len(s.blockParticles[b]) == 0 {
			continue
		}
		if s.tick%s.blockLimit[b] == 0 {
			s.blockUpdating[b] = true
			s.blockActive[b] = true
		}
	}
	// Buffer ring: neighbors of updating blocks contribute to the grid but
	// are not integrated.
	for bi := 0; bi < s.nb[0]; bi++ {
		for bj := 0; bj < s.nb[1]; bj++ {
			for bk := 0; bk < s.nb[2]; bk++ {
				b := s.blockIndex(bi, bj, bk)
				if !s.blockUpdating[b] {
					continue
				}
				s.forEachNeighbor(bi, bj, bk, func(nb int) {
					s.blockActive[nb] = true
				})
			}
		}
	}
	for b := range s.blockParticles {
		if !s.blockActive[b] {
			continue
		}
		state := particle.Buffer
		if s.blockUpdating[b] {
			state = particle.Updating
		}
		for _, i := range s.blockParticles[b] {
			ps[i].State = state
		}
	}
}

// MarkAllUpdating is the synchronous mode: every particle advances every
// tick with unit increment.
func (s *Scheduler) MarkAllUpdating(ps []particle.Particle) {
	for i := range ps {
		ps[i].State = particle.Updating
	}
	for b := range s.blockUpdating {
		s.blockUpdating[b] = len(s.blockParticles[b]) > 0
		s.blockActive[b] = s.blockUpdating[b]
	}
}

// ActiveGridNodes enumerates the lattice nodes of all active blocks. The
// lattice spans res+1 nodes per axis; boundary nodes belong to the last
// block on the axis.
func (s *Scheduler) ActiveGridNodes() [][3]int {
	var nodes [][3]int
	dims := [3]int{s.res[0] + 1, s.res[1] + 1, s.res[2] + 1}
	for i := 0; i < dims[0]; i++ {
		bi := clampInt(i/BlockSize, 0, s.nb[0]-1)
		for j := 0; j < dims[1]; j++ {
			bj := clampInt(j/BlockSize, 0, s.nb[1]-1)
			for k := 0; k < dims[2]; k++ {
				bk := clampInt(k/BlockSize, 0, s.nb[2]-1)
				if s.blockActive[s.blockIndex(bi, bj, bk)] {
					nodes = append(nodes, [3]int{i, j, k})
				}
			}
		}
	}
	return nodes
}

// EnforceSmoothness caps the rate ratio between neighboring occupied blocks
// at 2:1, halving the faster limit until the constraint holds. It returns
// the blocks whose limit was tightened below the increment that was just
// used; those regions were advanced too far this tick and the owner of the
// escalation policy decides whether to re-run them.
func (s *Scheduler) EnforceSmoothness(usedIncrement int64) []int {
	changed := true
	for changed {
		changed = false
		for bi := 0; bi < s.nb[0]; bi++ {
			for bj := 0; bj < s.nb[1]; bj++ {
				for bk := 0; bk < s.nb[2]; bk++ {
					b := s.blockIndex(bi, bj, bk)
					if len(s.blockParticles[b]) == 0 {
						continue
					}
					s.forEachNeighbor(bi, bj, bk, func(nb int) {
						if len(s.blockParticles[nb]) == 0 {
							return
						}
						if s.blockLimit[b] > 2*s.blockLimit[nb] {
							s.blockLimit[b] = 2 * s.blockLimit[nb]
							changed = true
						}
					})
				}
			}
		}
	}
	var violated []int
	for b := range s.blockLimit {
		if len(s.blockParticles[b]) > 0 && s.blockLimit[b] < usedIncrement && s.blockUpdating[b] {
			violated = append(violated, b)
		}
	}
	return violated
}

func (s *Scheduler) forEachNeighbor(bi, bj, bk int, fn func(nb int)) {
	type off struct{ di, dj, dk int }
	for _, d := range []off{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}} {
		ni, nj, nk := bi+d.di, bj+d.dj, bk+d.dk
		if ni < 0 || ni >= s.nb[0] || nj < 0 || nj >= s.nb[1] || nk < 0 || nk >= s.nb[2] {
			continue
		}
		fn(s.blockIndex(ni, nj, nk))
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
