package engine

import (
	"errors"
	"time"

	"github.com/dinebot/dinesim/eventgen"
)

// defaultBroadcastInterval is how often progress is published when the
// config does not say otherwise. Real time, not virtual.
const defaultBroadcastInterval = time.Second

// A Config describes one simulation run. It is created by the caller at
// start time and read-only for the run's duration.
type Config struct {
	// ID identifies the run. Assigned automatically when empty.
	ID string

	// Start and End bound the simulated window.
	Start time.Time
	End   time.Time

	// Acceleration converts real elapsed seconds into virtual elapsed
	// seconds. Clamped up to vclock.MinAcceleration.
	Acceleration float64

	RobotCount int
	TableCount int

	// TableCapacity is the seat count given to every table. Defaults to 4.
	TableCapacity int

	// Pattern drives event generation. Nil selects the default pattern.
	Pattern *eventgen.DemandPattern

	// Seed makes a run reproducible. Zero selects a time-derived seed.
	Seed int64

	// BroadcastInterval is the real-time cadence of progress publishing.
	BroadcastInterval time.Duration
}

func (c Config) validate() error {
	if !c.End.After(c.Start) {
		return errors.New("simulation end must be after start")
	}

	if c.RobotCount < 1 {
		return errors.New("robot count must be at least 1")
	}

	if c.TableCount < 1 {
		return errors.New("table count must be at least 1")
	}

	if c.Pattern != nil {
		if err := c.Pattern.Validate(); err != nil {
			return err
		}
	}

	return nil
}
