package eventgen

import "fmt"

// A DemandPattern configures how guest demand is distributed over a day and
// a week, and the shape of each visit.
type DemandPattern struct {
	// HourlyRates holds the expected arrival count per hour of day, 0-23.
	HourlyRates [24]float64

	// DayMultipliers scales the hourly rates per day of week, Sunday first.
	DayMultipliers [7]float64

	AvgMealMinutes    float64
	StdDevMealMinutes float64

	HelpProbability float64

	AvgPartySize float64
	MaxPartySize int

	FoodProbability  float64
	DrinkProbability float64

	AvgFoodPrepMinutes  float64
	AvgDrinkPrepMinutes float64
}

// DefaultPattern returns a demand pattern with lunch and dinner peaks and a
// busier weekend.
func DefaultPattern() DemandPattern {
	return DemandPattern{
		HourlyRates: [24]float64{
			0, 0, 0, 0, 0, 0, // 00-05, closed
			0.5, 1, 2, 3, 4, 8, // 06-11, breakfast into lunch
			12, 10, 5, 3, 3, 6, // 12-17, lunch peak and afternoon
			10, 12, 8, 4, 2, 0.5, // 18-23, dinner peak winding down
		},
		DayMultipliers:      [7]float64{1.2, 0.8, 0.8, 0.9, 1.0, 1.3, 1.5},
		AvgMealMinutes:      45,
		StdDevMealMinutes:   15,
		HelpProbability:     0.15,
		AvgPartySize:        2.5,
		MaxPartySize:        8,
		FoodProbability:     0.9,
		DrinkProbability:    0.7,
		AvgFoodPrepMinutes:  15,
		AvgDrinkPrepMinutes: 5,
	}
}

// Validate checks that all probabilities are in [0,1] and all rates and
// durations are non-negative.
func (p DemandPattern) Validate() error {
	for h, r := range p.HourlyRates {
		if r < 0 {
			return fmt.Errorf("hourly rate for hour %d is negative", h)
		}
	}

	for d, m := range p.DayMultipliers {
		if m < 0 {
			return fmt.Errorf("day multiplier for day %d is negative", d)
		}
	}

	probs := map[string]float64{
		"help":  p.HelpProbability,
		"food":  p.FoodProbability,
		"drink": p.DrinkProbability,
	}
	for name, prob := range probs {
		if prob < 0 || prob > 1 {
			return fmt.Errorf("%s probability %f is not in [0,1]", name, prob)
		}
	}

	if p.AvgMealMinutes <= 0 {
		return fmt.Errorf("average meal duration must be positive")
	}

	if p.StdDevMealMinutes < 0 {
		return fmt.Errorf("meal duration std dev must be non-negative")
	}

	if p.MaxPartySize < 1 {
		return fmt.Errorf("max party size must be at least 1")
	}

	if p.AvgPartySize < 1 {
		return fmt.Errorf("average party size must be at least 1")
	}

	if p.AvgFoodPrepMinutes < 0 || p.AvgDrinkPrepMinutes < 0 {
		return fmt.Errorf("prep durations must be non-negative")
	}

	return nil
}
