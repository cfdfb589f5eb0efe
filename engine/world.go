package engine

import (
	"time"

	"github.com/dinebot/dinesim/eventgen"
)

// RobotStatus is the state of a simulated robot.
type RobotStatus int

// Robot states.
const (
	RobotIdle RobotStatus = iota
	RobotNavigating
	RobotCharging
)

var robotStatusNames = map[RobotStatus]string{
	RobotIdle:       "Idle",
	RobotNavigating: "Navigating",
	RobotCharging:   "Charging",
}

func (s RobotStatus) String() string {
	return robotStatusNames[s]
}

// TableStatus is the state of a simulated table.
type TableStatus int

// Table states.
const (
	TableAvailable TableStatus = iota
	TableOccupied
	TableNeedsService
	TableCleaning
)

var tableStatusNames = map[TableStatus]string{
	TableAvailable:    "Available",
	TableOccupied:     "Occupied",
	TableNeedsService: "NeedsService",
	TableCleaning:     "Cleaning",
}

func (s TableStatus) String() string {
	return tableStatusNames[s]
}

// GuestStatus is the state of a simulated guest party.
type GuestStatus int

// Guest states.
const (
	GuestWaiting GuestStatus = iota
	GuestSeated
	GuestDeparted
)

// TaskType identifies what a robot task is for.
type TaskType int

// Task types.
const (
	TaskGreeting TaskType = iota
	TaskDelivery
	TaskService
	TaskCleaning
)

var taskTypeNames = map[TaskType]string{
	TaskGreeting: "greeting",
	TaskDelivery: "delivery",
	TaskService:  "service",
	TaskCleaning: "cleaning",
}

func (t TaskType) String() string {
	return taskTypeNames[t]
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus int

// Task states.
const (
	TaskPending TaskStatus = iota
	TaskAssigned
	TaskCompleted
	TaskFailed
)

var taskStatusNames = map[TaskStatus]string{
	TaskPending:   "Pending",
	TaskAssigned:  "Assigned",
	TaskCompleted: "Completed",
	TaskFailed:    "Failed",
}

func (s TaskStatus) String() string {
	return taskStatusNames[s]
}

// A SimulatedRobot exists only for the duration of a run. The engine loop is
// its sole writer.
type SimulatedRobot struct {
	ID      int         `json:"id"`
	Status  RobotStatus `json:"status"`
	Battery float64     `json:"battery"`
	TaskID  int         `json:"task_id"`
}

// A SimulatedTable exists only for the duration of a run.
type SimulatedTable struct {
	ID       int         `json:"id"`
	Status   TableStatus `json:"status"`
	Capacity int         `json:"capacity"`
	GuestID  int         `json:"guest_id"`
}

// A SimulatedGuest is a party created when its arrival event is applied.
type SimulatedGuest struct {
	ID        int         `json:"id"`
	PartySize int         `json:"party_size"`
	Status    GuestStatus `json:"status"`
	ArrivedAt time.Time   `json:"arrived_at"`
	TableID   int         `json:"table_id"`
}

// A SimulatedTask is a unit of robot work spawned by event application.
type SimulatedTask struct {
	ID            int               `json:"id"`
	Type          TaskType          `json:"type"`
	Status        TaskStatus        `json:"status"`
	Priority      eventgen.Priority `json:"priority"`
	TableID       int               `json:"table_id"`
	RobotID       int               `json:"robot_id"`
	CreatedAt     time.Time         `json:"created_at"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   time.Time         `json:"completed_at"`
	EstCompletion time.Time         `json:"est_completion"`
}
