// Package randx provides the injectable random-variate source used by every
// stochastic component of the simulator. Nothing in the engine draws from
// ambient global randomness; a Source is threaded through as a dependency so
// that runs are reproducible from (config, seed) alone.
package randx

import (
	"math"
	"math/rand"
)

// Source supplies the two primitives the stochastic models need.
type Source interface {
	// Float64 returns a uniform variate in [0, 1).
	Float64() float64

	// NormFloat64 returns a standard normal variate.
	NormFloat64() float64
}

// seeded is a deterministic Source built on math/rand with Box-Muller
// normal variates layered on the uniform primitive.
type seeded struct {
	u *rand.Rand

	// Box-Muller produces variates in pairs; the second is cached.
	spare    float64
	hasSpare bool
}

// NewSource creates a deterministic Source from a seed. Two Sources created
// with the same seed produce identical variate sequences.
func NewSource(seed int64) Source {
	return &seeded{u: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform variate in [0, 1).
func (s *seeded) Float64() float64 {
	return s.u.Float64()
}

// NormFloat64 returns a standard normal variate via Box-Muller.
func (s *seeded) NormFloat64() float64 {
	if s.hasSpare {
		s.hasSpare = false
		return s.spare
	}

	// u1 must be strictly positive for the log transform.
	u1 := s.u.Float64()
	for u1 == 0 {
		u1 = s.u.Float64()
	}
	u2 := s.u.Float64()

	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2

	s.spare = r * math.Sin(theta)
	s.hasSpare = true
	return r * math.Cos(theta)
}
