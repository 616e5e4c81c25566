// Package metrics collects scalar diagnostics over a running simulation.
// Metrics are observed once per frame and report a single value, so they plug
// directly into the live view and the CSV export.
package metrics

import (
	"math"

	"github.com/mawry/graupel/internal/mpm"
	"github.com/mawry/graupel/internal/particle"
)

type Metric interface {
	Name() string
	Observe(s *mpm.Simulation)
	Value() float64
	Reset()
}

// KineticEnergy reports the most recent total kinetic energy.
type KineticEnergy struct {
	value float64
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (k *KineticEnergy) Name() string { return "kinetic_energy" }

func (k *KineticEnergy) Observe(s *mpm.Simulation) { k.value = s.KineticEnergy() }

func (k *KineticEnergy) Value() float64 { return k.value }

func (k *KineticEnergy) Reset() { k.value = 0 }

// MassDrift tracks the worst relative deviation of total mass from the first
// observation. Transfers conserve mass, so anything above float noise points
// at a bookkeeping bug.
type MassDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift { return &MassDrift{} }

func (m *MassDrift) Name() string { return "mass_drift" }

func (m *MassDrift) Observe(s *mpm.Simulation) {
	mass := s.TotalMass()
	if m.samples == 0 {
		m.initial = mass
	}
	m.samples++
	if m.initial > 0 {
		drift := math.Abs(mass-m.initial) / m.initial
		if drift > m.maxDrift {
			m.maxDrift = drift
		}
	}
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// MomentumNorm reports the magnitude of total particle momentum.
type MomentumNorm struct {
	value float64
}

func NewMomentumNorm() *MomentumNorm { return &MomentumNorm{} }

func (m *MomentumNorm) Name() string { return "momentum" }

func (m *MomentumNorm) Observe(s *mpm.Simulation) { m.value = s.Momentum().Norm() }

func (m *MomentumNorm) Value() float64 { return m.value }

func (m *MomentumNorm) Reset() { m.value = 0 }

// ActiveFraction reports the share of particles integrated in the last
// substep. Synchronous runs sit at 1; the asynchronous scheduler's payoff
// shows up as values well below that.
type ActiveFraction struct {
	value float64
}

func NewActiveFraction() *ActiveFraction { return &ActiveFraction{} }

func (a *ActiveFraction) Name() string { return "active_fraction" }

func (a *ActiveFraction) Observe(s *mpm.Simulation) {
	ps := s.Particles()
	if len(ps) == 0 {
		a.value = 0
		return
	}
	active := 0
	for i := range ps {
		if ps[i].State == particle.Updating {
			active++
		}
	}
	a.value = float64(active) / float64(len(ps))
}

func (a *ActiveFraction) Value() float64 { return a.value }

func (a *ActiveFraction) Reset() { a.value = 0 }

// MaxSpeed reports the fastest particle, the quantity the CFL limit watches.
type MaxSpeed struct {
	value float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{} }

func (m *MaxSpeed) Name() string { return "max_speed" }

func (m *MaxSpeed) Observe(s *mpm.Simulation) {
	max := 0.0
	ps := s.Particles()
	for i := range ps {
		if v := ps[i].Vel.Norm(); v > max {
			max = v
		}
	}
	m.value = max
}

func (m *MaxSpeed) Value() float64 { return m.value }

func (m *MaxSpeed) Reset() { m.value = 0 }

// Standard is the default metric set attached to every run.
func Standard() []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewMassDrift(),
		NewMomentumNorm(),
		NewActiveFraction(),
		NewMaxSpeed(),
	}
}
