// Package eventgen produces the scheduled-event timeline that drives a
// simulation run. The full list for the whole run is generated up front and
// sorted by time, so the engine's hot loop is a simple forward scan.
package eventgen

import "time"

// Kind identifies what a scheduled event represents.
type Kind int

// The kinds of events a restaurant day is made of.
const (
	KindGuestArrived Kind = iota
	KindGuestSeated
	KindFoodReady
	KindDrinkReady
	KindGuestNeedsHelp
	KindGuestRequestedCheck
	KindGuestLeft
	KindTableNeedsCleaning
)

var kindNames = map[Kind]string{
	KindGuestArrived:        "GuestArrived",
	KindGuestSeated:         "GuestSeated",
	KindFoodReady:           "FoodReady",
	KindDrinkReady:          "DrinkReady",
	KindGuestNeedsHelp:      "GuestNeedsHelp",
	KindGuestRequestedCheck: "GuestRequestedCheck",
	KindGuestLeft:           "GuestLeft",
	KindTableNeedsCleaning:  "TableNeedsCleaning",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Priority ranks events and the tasks they spawn.
type Priority int

// Priority levels, low to high.
const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityLow:    "Low",
	PriorityNormal: "Normal",
	PriorityHigh:   "High",
}

func (p Priority) String() string {
	return priorityNames[p]
}

// A ScheduledEvent is an immutable, time-stamped fact pre-generated for the
// whole run. It is created once by the Generator and never mutated.
type ScheduledEvent struct {
	ID        string
	Time      time.Time
	Kind      Kind
	TableID   int
	GuestID   int
	PartySize int
	Priority  Priority
	Note      string
}
