package vehicle

import "math/rand"

// Noise produces bounded random perturbations for simulated sensor
// readings. Production code uses a seeded rand source; tests inject NoNoise
// so every tick is reproducible.
type Noise interface {
	// Uniform returns a value uniformly distributed in [min, max).
	Uniform(min, max float64) float64
}

type randNoise struct {
	r *rand.Rand
}

// NewRandomNoise returns a Noise backed by math/rand with the given seed.
func NewRandomNoise(seed int64) Noise {
	return &randNoise{r: rand.New(rand.NewSource(seed))}
}

func (n *randNoise) Uniform(min, max float64) float64 {
	return min + n.r.Float64()*(max-min)
}

type zeroNoise struct{}

// NoNoise returns a Noise whose Uniform always yields the midpoint of the
// requested range, removing all randomness from the simulation.
func NoNoise() Noise { return zeroNoise{} }

func (zeroNoise) Uniform(min, max float64) float64 {
	return (min + max) / 2
}
