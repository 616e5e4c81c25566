package scheduler_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mawry/graupel/internal/math3"
	"github.com/mawry/graupel/internal/particle"
	"github.com/mawry/graupel/internal/scheduler"
)

var _ = Describe("LargestPOT", func() {
	It("returns the largest power of two not exceeding the input", func() {
		Expect(scheduler.LargestPOT(1)).To(Equal(int64(1)))
		Expect(scheduler.LargestPOT(2)).To(Equal(int64(2)))
		Expect(scheduler.LargestPOT(3)).To(Equal(int64(2)))
		Expect(scheduler.LargestPOT(64)).To(Equal(int64(64)))
		Expect(scheduler.LargestPOT(100)).To(Equal(int64(64)))
	})

	It("never returns less than one", func() {
		Expect(scheduler.LargestPOT(0)).To(Equal(int64(1)))
		Expect(scheduler.LargestPOT(-5)).To(Equal(int64(1)))
	})
})

var _ = Describe("AlignIncrement", func() {
	It("lands the advanced tick on a multiple of the chosen increment", func() {
		// tick=5, pot=4: increment 3 advances to tick 8.
		Expect(scheduler.AlignIncrement(4, 5)).To(Equal(int64(3)))
		Expect((int64(5) + scheduler.AlignIncrement(4, 5)) % 4).To(BeZero())
	})

	It("keeps a full increment when already aligned", func() {
		Expect(scheduler.AlignIncrement(8, 16)).To(Equal(int64(8)))
	})
})

var _ = Describe("Scheduler", func() {
	var (
		s  *scheduler.Scheduler
		ps []particle.Particle
	)

	newParticle := func(pos math3.Vec3, vel math3.Vec3) particle.Particle {
		return particle.New(particle.ElasticPlastic, pos, vel, 0)
	}

	BeforeEach(func() {
		s = scheduler.New([3]int{16, 16, 16}, 1e-6, 1.0, 1.0, 1e-1)
		ps = []particle.Particle{
			newParticle(math3.V(1, 1, 1), math3.V(1e6, 0, 0)),
			newParticle(math3.V(12, 12, 12), math3.V(0.001, 0, 0)),
		}
		s.UpdateParticleGroups(ps)
	})

	Describe("UpdateDtLimits", func() {
		It("gives a slower region a coarser limit than a faster one", func() {
			mats := map[particle.Kind]particle.Material{}
			s.Reset()
			s.UpdateDtLimits(ps, mats)
			fast := s.UpdateMaxDtInt()
			Expect(fast).To(BeNumerically(">=", int64(1)))

			// Removing the fast particle relaxes the global increment.
			slow := []particle.Particle{ps[1]}
			s.UpdateParticleGroups(slow)
			s.Reset()
			s.UpdateDtLimits(slow, mats)
			Expect(s.UpdateMaxDtInt()).To(BeNumerically(">", fast))
		})

		It("honors the material strength limit", func() {
			mats := map[particle.Kind]particle.Material{
				particle.ElasticPlastic: particle.Snow(),
			}
			still := []particle.Particle{newParticle(math3.V(8, 8, 8), math3.Vec3{})}
			s.UpdateParticleGroups(still)
			s.Reset()
			s.UpdateDtLimits(still, mats)
			// Snow sound speed is ~18.7 units/s; with base dt 1e-6 the limit
			// is far below the 2^16-ish ceiling.
			Expect(s.UpdateMaxDtInt()).To(BeNumerically("<", scheduler.LargestPOT(int64(1e-1/1e-6))))
		})
	})

	Describe("Expand", func() {
		It("marks due blocks updating and their neighbors as buffer", func() {
			s.ResetParticleStates(ps)
			s.SetTick(0) // everything divides zero: all occupied blocks due
			s.Expand(ps)
			Expect(ps[0].State).To(Equal(particle.Updating))
			Expect(ps[1].State).To(Equal(particle.Updating))
			Expect(len(s.ActiveGridNodes())).To(BeNumerically(">", 0))
		})

		It("leaves not-yet-due regions inactive", func() {
			mats := map[particle.Kind]particle.Material{}
			s.Reset()
			s.UpdateDtLimits(ps, mats)
			// The fast particle needs increment 1; the slow one is coarse.
			s.ResetParticleStates(ps)
			s.SetTick(1) // odd tick: only limit-1 blocks are due
			s.Expand(ps)
			Expect(ps[0].State).To(Equal(particle.Updating))
			Expect(ps[1].State).To(Equal(particle.Inactive))
		})
	})

	Describe("MarkAllUpdating", func() {
		It("activates every particle regardless of limits", func() {
			s.ResetParticleStates(ps)
			s.MarkAllUpdating(ps)
			for i := range ps {
				Expect(ps[i].State).To(Equal(particle.Updating))
			}
		})
	})

	Describe("EnforceSmoothness", func() {
		It("caps neighboring rate ratios at 2:1", func() {
			// Two adjacent occupied blocks with wildly different limits.
			pair := []particle.Particle{
				newParticle(math3.V(1, 1, 1), math3.V(1000, 0, 0)),  // block (0,0,0), tight
				newParticle(math3.V(5, 1, 1), math3.V(0.001, 0, 0)), // block (1,0,0), coarse
			}
			s.UpdateParticleGroups(pair)
			s.Reset()
			s.UpdateDtLimits(pair, nil)
			s.EnforceSmoothness(1)

			tight := s.BlockOf(pair[0].Pos)
			coarse := s.BlockOf(pair[1].Pos)
			Expect(s.BlockLimit(coarse)).To(BeNumerically("<=", 2*s.BlockLimit(tight)))
			Expect(s.BlockLimit(coarse)).To(BeNumerically(">=", s.BlockLimit(tight)))
		})

		It("reports updated blocks whose limit fell below the used increment", func() {
			pair := []particle.Particle{
				newParticle(math3.V(1, 1, 1), math3.V(1000, 0, 0)),
				newParticle(math3.V(5, 1, 1), math3.V(0.001, 0, 0)),
			}
			s.UpdateParticleGroups(pair)
			s.Reset()
			s.UpdateDtLimits(pair, nil)
			s.ResetParticleStates(pair)
			s.SetTick(0)
			s.Expand(pair)

			violated := s.EnforceSmoothness(1 << 20)
			Expect(violated).NotTo(BeEmpty())
		})
	})
})
