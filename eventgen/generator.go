package eventgen

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Meal durations are clamped to this range, in minutes.
const (
	minMealMinutes = 15
	maxMealMinutes = 120
)

// A Generator produces the complete, time-ordered event list for a run.
// It is seeded, so the same seed and configuration always yield the same
// timeline.
type Generator struct {
	rng        *rand.Rand
	tableCount int
}

// NewGenerator creates a Generator with the given seed. Generated events
// cycle through table ids 1 to tableCount.
func NewGenerator(seed int64, tableCount int) *Generator {
	if tableCount < 1 {
		tableCount = 1
	}

	return &Generator{
		rng:        rand.New(rand.NewSource(seed)),
		tableCount: tableCount,
	}
}

// Generate walks the window hour by hour, draws a Poisson arrival count for
// each hour from the demand pattern, and expands every arrival into the full
// guest lifecycle: seating, food and drink ready times, an optional help
// request, the check request, departure, and table cleaning. The returned
// events are sorted by scheduled time.
//
// Departure and cleaning events that fall past the window end are suppressed;
// every other event is at or after the window start.
func (g *Generator) Generate(
	start, end time.Time,
	pattern *DemandPattern,
) ([]ScheduledEvent, error) {
	if !end.After(start) {
		return nil, errors.New("window end must be after window start")
	}

	p := DefaultPattern()
	if pattern != nil {
		p = *pattern
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	var events []ScheduledEvent
	guestID := 0

	for hour := start.Truncate(time.Hour); hour.Before(end); hour = hour.Add(time.Hour) {
		rate := p.HourlyRates[hour.Hour()] *
			p.DayMultipliers[int(hour.Weekday())]

		arrivals := Poisson(g.rng, rate)
		for i := 0; i < arrivals; i++ {
			arrival := hour.Add(time.Duration(g.rng.Intn(60)) * time.Minute)
			if arrival.Before(start) || !arrival.Before(end) {
				continue
			}

			guestID++
			tableID := (guestID-1)%g.tableCount + 1
			events = g.appendGuestVisit(events, p, arrival, end, guestID, tableID)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	// Ids are assigned after sorting so they are sequential in time order
	// and identical across runs with the same seed.
	for i := range events {
		events[i].ID = fmt.Sprintf("evt-%06d", i+1)
	}

	return events, nil
}

func (g *Generator) appendGuestVisit(
	events []ScheduledEvent,
	p DemandPattern,
	arrival, end time.Time,
	guestID, tableID int,
) []ScheduledEvent {
	partySize := PartySize(g.rng, p.AvgPartySize, p.MaxPartySize)

	seated := arrival.Add(time.Duration(1+g.rng.Intn(5)) * time.Minute)

	mealMinutes := Normal(g.rng, p.AvgMealMinutes, p.StdDevMealMinutes)
	if mealMinutes < minMealMinutes {
		mealMinutes = minMealMinutes
	}
	if mealMinutes > maxMealMinutes {
		mealMinutes = maxMealMinutes
	}
	departure := seated.Add(minutes(mealMinutes))

	events = append(events, ScheduledEvent{
		Time:      arrival,
		Kind:      KindGuestArrived,
		TableID:   tableID,
		GuestID:   guestID,
		PartySize: partySize,
		Priority:  PriorityNormal,
		Note:      fmt.Sprintf("party of %d", partySize),
	})

	events = append(events, ScheduledEvent{
		Time:     seated,
		Kind:     KindGuestSeated,
		TableID:  tableID,
		GuestID:  guestID,
		Priority: PriorityNormal,
	})

	if g.rng.Float64() < p.FoodProbability {
		prep := minutes(p.AvgFoodPrepMinutes * (0.5 + g.rng.Float64()))
		events = append(events, ScheduledEvent{
			Time:     seated.Add(prep),
			Kind:     KindFoodReady,
			TableID:  tableID,
			GuestID:  guestID,
			Priority: PriorityHigh,
		})
	}

	if g.rng.Float64() < p.DrinkProbability {
		prep := minutes(p.AvgDrinkPrepMinutes * (0.5 + g.rng.Float64()))
		events = append(events, ScheduledEvent{
			Time:     seated.Add(prep),
			Kind:     KindDrinkReady,
			TableID:  tableID,
			GuestID:  guestID,
			Priority: PriorityNormal,
		})
	}

	if g.rng.Float64() < p.HelpProbability {
		// Strictly between seating and departure.
		frac := 0.1 + 0.8*g.rng.Float64()
		offset := time.Duration(frac * float64(departure.Sub(seated)))
		events = append(events, ScheduledEvent{
			Time:     seated.Add(offset),
			Kind:     KindGuestNeedsHelp,
			TableID:  tableID,
			GuestID:  guestID,
			Priority: PriorityHigh,
		})
	}

	check := departure.Add(-time.Duration(5+g.rng.Intn(6)) * time.Minute)
	events = append(events, ScheduledEvent{
		Time:     check,
		Kind:     KindGuestRequestedCheck,
		TableID:  tableID,
		GuestID:  guestID,
		Priority: PriorityNormal,
	})

	if departure.Before(end) {
		events = append(events, ScheduledEvent{
			Time:     departure,
			Kind:     KindGuestLeft,
			TableID:  tableID,
			GuestID:  guestID,
			Priority: PriorityNormal,
		})

		cleaning := departure.Add(time.Minute)
		if cleaning.Before(end) {
			events = append(events, ScheduledEvent{
				Time:     cleaning,
				Kind:     KindTableNeedsCleaning,
				TableID:  tableID,
				Priority: PriorityNormal,
			})
		}
	}

	return events
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
