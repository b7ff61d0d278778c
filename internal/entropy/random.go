// Package entropy provides seedable random streams for the simulator.
// Every consumer receives an explicit Source; there is no package-level stream.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// Source is a reproducible pseudo-random stream.
type Source struct {
	seed int64
	rng  *mrand.Rand
}

// New creates a Source from seed. A zero seed is replaced with one read from
// crypto/rand; Seed reports the value actually used so the run can be replayed.
func New(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
		slog.Debug("entropy seed drawn from crypto/rand", "seed", seed)
	}
	return &Source{seed: seed, rng: mrand.New(mrand.NewSource(seed))}
}

// Seed returns the seed this Source was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Float returns a value in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// Uint64 returns the next 64 random bits.
func (s *Source) Uint64() uint64 {
	return s.rng.Uint64()
}

// Intn returns a value in [0, n). It panics if n <= 0, like math/rand.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Shuffle permutes n elements using swap (Fisher-Yates).
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Derive returns a child stream seeded from the next value of s. Children are
// independent of how much randomness their siblings consume.
func (s *Source) Derive() *Source {
	seed := int64(s.rng.Uint64() >> 1)
	if seed == 0 {
		seed = 1
	}
	return &Source{seed: seed, rng: mrand.New(mrand.NewSource(seed))}
}

// CryptoSeed returns a non-zero seed read from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to a fixed seed.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		return 1
	}
	return seed
}
