// Package random provides the seedable generator shared by one generation run.
package random

import (
	"math/rand"
	"time"
)

// Rand is the subset of *rand.Rand the generators draw from.
// Implementations are not required to be safe for concurrent use.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// New returns a deterministic generator for the given seed
func New(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// NewFromTime returns a generator seeded from the wall clock
func NewFromTime() Rand {
	return New(time.Now().UnixNano())
}

// IntRange draws a uniform integer in [lo, hi]
func IntRange(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}
