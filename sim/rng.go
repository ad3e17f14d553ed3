package sim

import (
	"math/rand"
	"time"
)

// rng is a seeded pseudorandom source offering the two samplers the engine
// needs: exponential (for "exp" service-time stations) and uniform (for
// everything else, and for failure timing).
// Wrapping math/rand.Rand rather than the package-level functions keeps two
// Simulators from sharing hidden global state, so that one engine's draws
// never perturb another's.
type rng struct {
	r *rand.Rand
}

// newRNG seeds from seed when non-nil, otherwise draws entropy from the wall
// clock.
func newRNG(seed *uint64) *rng {
	var source rand.Source
	if seed != nil {
		source = rand.NewSource(int64(*seed))
	} else {
		source = rand.NewSource(time.Now().UnixNano())
	}
	return &rng{r: rand.New(source)}
}

// exponential draws from an Exponential distribution with rate lambda.
func (g *rng) exponential(lambda float64) float64 {
	return g.r.ExpFloat64() / lambda
}

// uniform draws from [0, hi).
func (g *rng) uniform(hi float64) float64 {
	return g.r.Float64() * hi
}

// float64 draws a uniform sample in [0, 1), used for Bernoulli trials such
// as the per-service failure check.
func (g *rng) float64() float64 {
	return g.r.Float64()
}
