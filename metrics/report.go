package metrics

import "time"

// ProgressCounters is the metrics portion of a progress snapshot.
type ProgressCounters struct {
	EventsProcessed int     `json:"events_processed"`
	PartiesArrived  int     `json:"parties_arrived"`
	GuestsArrived   int     `json:"guests_arrived"`
	GuestsSeated    int     `json:"guests_seated"`
	GuestsDeparted  int     `json:"guests_departed"`
	ActiveGuests    int     `json:"active_guests"`
	TasksCreated    int     `json:"tasks_created"`
	TasksCompleted  int     `json:"tasks_completed"`
	TasksFailed     int     `json:"tasks_failed"`
	SuccessRate     float64 `json:"success_rate"`
	Alerts          int     `json:"alerts"`
}

// ReportSummary is the fleet-level roll-up of a whole run.
type ReportSummary struct {
	TotalGuests            int       `json:"total_guests"`
	TotalParties           int       `json:"total_parties"`
	AvgPartySize           float64   `json:"avg_party_size"`
	TotalTasks             int       `json:"total_tasks"`
	TasksCompleted         int       `json:"tasks_completed"`
	TasksFailed            int       `json:"tasks_failed"`
	SuccessRate            float64   `json:"success_rate"`
	AvgTaskDurationSeconds float64   `json:"avg_task_duration_seconds"`
	TotalTurnovers         int       `json:"total_turnovers"`
	AvgOccupancyMinutes    float64   `json:"avg_occupancy_minutes"`
	PeakConcurrentGuests   int       `json:"peak_concurrent_guests"`
	PeakGuestsAt           time.Time `json:"peak_guests_at"`
	PeakOpenTasks          int       `json:"peak_open_tasks"`
	PeakOpenTasksAt        time.Time `json:"peak_open_tasks_at"`
}

// DailyMetrics is one calendar day of the run, folded from its hourly
// buckets.
type DailyMetrics struct {
	Date           string `json:"date"`
	PartiesArrived int    `json:"parties_arrived"`
	GuestsArrived  int    `json:"guests_arrived"`
	GuestsSeated   int    `json:"guests_seated"`
	GuestsDeparted int    `json:"guests_departed"`
	TasksCreated   int    `json:"tasks_created"`
	TasksCompleted int    `json:"tasks_completed"`
	TasksFailed    int    `json:"tasks_failed"`
	Alerts         int    `json:"alerts"`
	BusiestHour    int    `json:"busiest_hour"`
}

// RobotReport is the per-robot section of the final report.
type RobotReport struct {
	ID                     int     `json:"id"`
	TasksCompleted         int     `json:"tasks_completed"`
	TasksFailed            int     `json:"tasks_failed"`
	AvgTaskDurationSeconds float64 `json:"avg_task_duration_seconds"`
	UtilizationPercent     float64 `json:"utilization_percent"`
	AvgBatteryPercent      float64 `json:"avg_battery_percent"`
}

// TableReport is the per-table section of the final report.
type TableReport struct {
	ID                  int     `json:"id"`
	GuestsServed        int     `json:"guests_served"`
	Turnovers           int     `json:"turnovers"`
	OccupiedMinutes     float64 `json:"occupied_minutes"`
	AvgOccupancyMinutes float64 `json:"avg_occupancy_minutes"`
}

// A SimulationReport is the final, complete summary produced once a run
// reaches its end time.
type SimulationReport struct {
	SimulationID string         `json:"simulation_id"`
	GeneratedAt  time.Time      `json:"generated_at"`
	VirtualEnd   time.Time      `json:"virtual_end"`
	RealDuration time.Duration  `json:"real_duration"`
	Acceleration float64        `json:"acceleration"`
	Summary      ReportSummary  `json:"summary"`
	Daily        []DailyMetrics `json:"daily"`
	Robots       []RobotReport  `json:"robots"`
	Tables       []TableReport  `json:"tables"`
	Alerts       map[string]int `json:"alerts"`
}
