package sim

import "math/rand"

// Random is the source of every randomized decision in the simulation.
// *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// NewRandom returns a math/rand source seeded with seed.
func NewRandom(seed int64) Random {
	return rand.New(rand.NewSource(seed))
}

// pick returns a uniformly chosen element. items must not be empty.
func pick[T any](rng Random, items []T) T {
	return items[rng.Intn(len(items))]
}
