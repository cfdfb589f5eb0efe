package eventgen

import (
	"math"
	"math/rand"
)

// Poisson draws a non-negative integer from a Poisson distribution with the
// given mean, using Knuth's algorithm: multiply uniform draws until the
// product drops below e^-lambda, counting iterations.
//
// Reproducibility tests depend on this exact draw sequence. Do not replace it
// with a library sampler.
func Poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}

	threshold := math.Exp(-lambda)
	count := 0
	product := 1.0

	for {
		product *= rng.Float64()
		if product <= threshold {
			return count
		}
		count++
	}
}

// Normal draws from a normal distribution with the given mean and standard
// deviation using the Box-Muller transform.
func Normal(rng *rand.Rand, mean, stddev float64) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()

	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	return mean + stddev*z
}

// PartySize draws a party size from a shifted exponential distribution that
// favors small parties, clamped to [1, max].
func PartySize(rng *rand.Rand, avg float64, max int) int {
	scale := avg - 1
	if scale < 0 {
		scale = 0
	}

	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}

	size := 1 + int(-math.Log(u)*scale)
	if size > max {
		size = max
	}

	return size
}
