package eventgen

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Random draws", func() {
	It("should draw zero from a zero-mean Poisson", func() {
		rng := rand.New(rand.NewSource(1))

		Expect(Poisson(rng, 0)).To(Equal(0))
		Expect(Poisson(rng, -3)).To(Equal(0))
	})

	It("should draw Poisson counts near the mean", func() {
		rng := rand.New(rand.NewSource(1))

		total := 0
		draws := 10000
		for i := 0; i < draws; i++ {
			total += Poisson(rng, 6)
		}

		mean := float64(total) / float64(draws)
		Expect(mean).To(BeNumerically("~", 6, 0.3))
	})

	It("should draw normal values near the mean", func() {
		rng := rand.New(rand.NewSource(1))

		total := 0.0
		draws := 10000
		for i := 0; i < draws; i++ {
			total += Normal(rng, 45, 15)
		}

		Expect(total / float64(draws)).To(BeNumerically("~", 45, 1))
	})

	It("should repeat the same draw sequence for the same seed", func() {
		rngA := rand.New(rand.NewSource(99))
		rngB := rand.New(rand.NewSource(99))

		for i := 0; i < 100; i++ {
			Expect(Poisson(rngA, 4)).To(Equal(Poisson(rngB, 4)))
			Expect(Normal(rngA, 45, 15)).To(Equal(Normal(rngB, 45, 15)))
			Expect(PartySize(rngA, 2.5, 8)).To(Equal(PartySize(rngB, 2.5, 8)))
		}
	})

	It("should keep party sizes within bounds", func() {
		rng := rand.New(rand.NewSource(1))

		for i := 0; i < 1000; i++ {
			size := PartySize(rng, 2.5, 8)
			Expect(size).To(BeNumerically(">=", 1))
			Expect(size).To(BeNumerically("<=", 8))
		}
	})

	It("should favor small parties", func() {
		rng := rand.New(rand.NewSource(1))

		small := 0
		draws := 1000
		for i := 0; i < draws; i++ {
			if PartySize(rng, 2.5, 8) <= 2 {
				small++
			}
		}

		Expect(small).To(BeNumerically(">", draws/2))
	})
})
