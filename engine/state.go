package engine

// State is the lifecycle state of the simulation engine.
type State int

// Engine lifecycle: NotStarted -> Initializing -> Running <-> Paused ->
// Completed | Failed | Cancelled.
const (
	StateNotStarted State = iota
	StateInitializing
	StateRunning
	StatePaused
	StateCompleted
	StateFailed
	StateCancelled
)

var stateNames = map[State]string{
	StateNotStarted:   "NotStarted",
	StateInitializing: "Initializing",
	StateRunning:      "Running",
	StatePaused:       "Paused",
	StateCompleted:    "Completed",
	StateFailed:       "Failed",
	StateCancelled:    "Cancelled",
}

func (s State) String() string {
	return stateNames[s]
}
