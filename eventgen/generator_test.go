package eventgen

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Generator", func() {
	var (
		start time.Time
		end   time.Time
	)

	BeforeEach(func() {
		start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	})

	It("should return events sorted by scheduled time", func() {
		gen := NewGenerator(42, 20)

		events, err := gen.Generate(start, end, nil)

		Expect(err).ToNot(HaveOccurred())
		Expect(events).ToNot(BeEmpty())
		for i := 1; i < len(events); i++ {
			Expect(events[i].Time.Before(events[i-1].Time)).To(BeFalse())
		}
	})

	It("should keep events inside the window", func() {
		gen := NewGenerator(42, 20)

		events, err := gen.Generate(start, end, nil)

		Expect(err).ToNot(HaveOccurred())
		for _, evt := range events {
			Expect(evt.Time.Before(start)).To(BeFalse())

			switch evt.Kind {
			case KindGuestLeft, KindTableNeedsCleaning:
				Expect(evt.Time.Before(end)).To(BeTrue())
			}
		}
	})

	It("should generate nothing when all hourly rates are zero", func() {
		pattern := DefaultPattern()
		pattern.HourlyRates = [24]float64{}
		gen := NewGenerator(42, 20)

		events, err := gen.Generate(start, end, &pattern)

		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("should be reproducible for a fixed seed", func() {
		events1, err1 := NewGenerator(7, 12).Generate(start, end, nil)
		events2, err2 := NewGenerator(7, 12).Generate(start, end, nil)

		Expect(err1).ToNot(HaveOccurred())
		Expect(err2).ToNot(HaveOccurred())
		Expect(events1).To(Equal(events2))
	})

	It("should differ across seeds", func() {
		events1, _ := NewGenerator(7, 12).Generate(start, end, nil)
		events2, _ := NewGenerator(8, 12).Generate(start, end, nil)

		Expect(events1).ToNot(Equal(events2))
	})

	It("should emit the full lifecycle for each guest", func() {
		gen := NewGenerator(42, 20)

		events, _ := gen.Generate(start, end, nil)

		byGuest := map[int]map[Kind]int{}
		for _, evt := range events {
			if evt.GuestID == 0 {
				continue
			}
			if byGuest[evt.GuestID] == nil {
				byGuest[evt.GuestID] = map[Kind]int{}
			}
			byGuest[evt.GuestID][evt.Kind]++
		}

		Expect(byGuest).ToNot(BeEmpty())
		for _, kinds := range byGuest {
			Expect(kinds[KindGuestArrived]).To(Equal(1))
			Expect(kinds[KindGuestSeated]).To(Equal(1))
			Expect(kinds[KindGuestRequestedCheck]).To(Equal(1))
		}
	})

	It("should clamp party sizes to the configured maximum", func() {
		pattern := DefaultPattern()
		pattern.MaxPartySize = 4
		gen := NewGenerator(42, 20)

		events, _ := gen.Generate(start, end, &pattern)

		for _, evt := range events {
			if evt.Kind != KindGuestArrived {
				continue
			}
			Expect(evt.PartySize).To(BeNumerically(">=", 1))
			Expect(evt.PartySize).To(BeNumerically("<=", 4))
		}
	})

	It("should use food priority High and drink priority Normal", func() {
		gen := NewGenerator(42, 20)

		events, _ := gen.Generate(start, end, nil)

		for _, evt := range events {
			switch evt.Kind {
			case KindFoodReady:
				Expect(evt.Priority).To(Equal(PriorityHigh))
			case KindDrinkReady:
				Expect(evt.Priority).To(Equal(PriorityNormal))
			}
		}
	})

	It("should reject an inverted window", func() {
		gen := NewGenerator(42, 20)

		_, err := gen.Generate(end, start, nil)

		Expect(err).To(HaveOccurred())
	})

	It("should reject an out-of-range probability", func() {
		pattern := DefaultPattern()
		pattern.HelpProbability = 1.5
		gen := NewGenerator(42, 20)

		_, err := gen.Generate(start, end, &pattern)

		Expect(err).To(HaveOccurred())
	})
})
