package metrics

import "time"

// hourlyBucket holds the raw counters recorded within one virtual hour.
type hourlyBucket struct {
	EventsProcessed int
	PartiesArrived  int
	GuestsArrived   int
	GuestsSeated    int
	GuestsDeparted  int
	TasksCreated    int
	TasksCompleted  int
	TasksFailed     int
	Alerts          int
}

// robotTracker accumulates cumulative per-robot counters. Utilization is
// derived from the busy/total sample ratio.
type robotTracker struct {
	tasksCompleted  int
	tasksFailed     int
	taskDurationSum time.Duration
	busySamples     int
	totalSamples    int
	batterySum      float64
}

// tableTracker accumulates per-table counters. One turnover is a paired
// occupy/vacate cycle.
type tableTracker struct {
	guestsServed  int
	turnovers     int
	occupiedFor   time.Duration
	occupiedSince time.Time
	occupied      bool
}
