package mpm

import "errors"

var (
	// ErrNonFinite means a particle picked up NaN or Inf state, usually from a
	// time step far beyond the stability limit.
	ErrNonFinite = errors.New("mpm: non-finite particle state")

	// ErrNoParticles is returned when a simulation is run before seeding.
	ErrNoParticles = errors.New("mpm: simulation has no particles")

	// ErrBadParams is returned for parameter combinations New cannot accept.
	ErrBadParams = errors.New("mpm: invalid simulation parameters")
)
