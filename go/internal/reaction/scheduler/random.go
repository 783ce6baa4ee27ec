package scheduler

import (
	"math/rand/v2"
	"time"
)

// Rand is the randomness provider for delays
type Rand interface {
	// Int64N returns a value in [0, n)
	Int64N(n int64) int64
}

// NewRand constructs a Rand with its own seed so no global state is shared
func NewRand() Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// FixedRand always returns the same offset, clamped into [0, n)
type FixedRand int64

func (f FixedRand) Int64N(n int64) int64 {
	v := int64(f)
	switch {
	case v < 0:
		return 0
	case v >= n:
		return n - 1
	default:
		return v
	}
}
