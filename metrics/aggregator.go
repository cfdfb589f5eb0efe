// Package metrics aggregates raw simulation facts into hourly buckets,
// per-robot and per-table trackers, progress snapshots, and the final report.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// An Aggregator is the thread-safe recorder the engine loop writes into.
// Record calls may run concurrently with Snapshot calls from query paths.
// Buckets and trackers are created lazily on first reference and finalized
// only when the report is generated.
type Aggregator struct {
	mu sync.Mutex

	eventsProcessed int

	partiesArrived int
	guestsArrived  int
	guestsSeated   int
	guestsDeparted int

	tasksCreated    int
	tasksCompleted  int
	tasksFailed     int
	taskDurationSum time.Duration

	alerts map[string]int

	buckets map[time.Time]*hourlyBucket
	robots  map[int]*robotTracker
	tables  map[int]*tableTracker

	// Peaks are tracked incrementally as arrivals and creations occur, so
	// report generation stays O(buckets) rather than O(history).
	currentGuests   int
	peakGuests      int
	peakGuestsAt    time.Time
	openTasks       int
	peakOpenTasks   int
	peakOpenTasksAt time.Time

	reportGenerated bool
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.resetLocked()
	return a
}

// Reset clears all recorded facts, allowing a new run to start clean.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetLocked()
}

func (a *Aggregator) resetLocked() {
	a.eventsProcessed = 0
	a.partiesArrived = 0
	a.guestsArrived = 0
	a.guestsSeated = 0
	a.guestsDeparted = 0
	a.tasksCreated = 0
	a.tasksCompleted = 0
	a.tasksFailed = 0
	a.taskDurationSum = 0
	a.alerts = make(map[string]int)
	a.buckets = make(map[time.Time]*hourlyBucket)
	a.robots = make(map[int]*robotTracker)
	a.tables = make(map[int]*tableTracker)
	a.currentGuests = 0
	a.peakGuests = 0
	a.peakGuestsAt = time.Time{}
	a.openTasks = 0
	a.peakOpenTasks = 0
	a.peakOpenTasksAt = time.Time{}
	a.reportGenerated = false
}

// RecordEventProcessed counts one scheduled event applied to the world.
func (a *Aggregator) RecordEventProcessed(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.eventsProcessed++
	a.bucketLocked(t).EventsProcessed++
}

// RecordGuestArrival counts one arriving party of the given size.
func (a *Aggregator) RecordGuestArrival(t time.Time, partySize int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.partiesArrived++
	a.guestsArrived += partySize

	b := a.bucketLocked(t)
	b.PartiesArrived++
	b.GuestsArrived += partySize

	a.currentGuests += partySize
	if a.currentGuests > a.peakGuests {
		a.peakGuests = a.currentGuests
		a.peakGuestsAt = t
	}
}

// RecordGuestSeated opens occupancy tracking for the table.
func (a *Aggregator) RecordGuestSeated(t time.Time, tableID, partySize int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.guestsSeated++
	a.bucketLocked(t).GuestsSeated++

	tracker := a.tableLocked(tableID)
	tracker.guestsServed += partySize
	tracker.occupied = true
	tracker.occupiedSince = t
}

// RecordGuestDeparture closes occupancy tracking for the table and counts one
// turnover.
func (a *Aggregator) RecordGuestDeparture(t time.Time, tableID, partySize int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.guestsDeparted++
	a.bucketLocked(t).GuestsDeparted++

	tracker := a.tableLocked(tableID)
	if tracker.occupied {
		tracker.occupiedFor += t.Sub(tracker.occupiedSince)
		tracker.occupied = false
		tracker.turnovers++
	}

	a.currentGuests -= partySize
	if a.currentGuests < 0 {
		a.currentGuests = 0
	}
}

// RecordTaskCreated counts a newly created task.
func (a *Aggregator) RecordTaskCreated(t time.Time, taskType string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tasksCreated++
	a.bucketLocked(t).TasksCreated++

	a.openTasks++
	if a.openTasks > a.peakOpenTasks {
		a.peakOpenTasks = a.openTasks
		a.peakOpenTasksAt = t
	}
}

// RecordTaskCompleted counts a completed task and its duration against the
// robot that carried it out.
func (a *Aggregator) RecordTaskCompleted(
	t time.Time,
	robotID int,
	taskType string,
	duration time.Duration,
) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tasksCompleted++
	a.taskDurationSum += duration
	a.bucketLocked(t).TasksCompleted++

	tracker := a.robotLocked(robotID)
	tracker.tasksCompleted++
	tracker.taskDurationSum += duration

	a.openTasks--
	if a.openTasks < 0 {
		a.openTasks = 0
	}
}

// RecordTaskFailed counts a failed task.
func (a *Aggregator) RecordTaskFailed(t time.Time, robotID int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tasksFailed++
	a.bucketLocked(t).TasksFailed++

	if robotID > 0 {
		a.robotLocked(robotID).tasksFailed++
	}

	a.openTasks--
	if a.openTasks < 0 {
		a.openTasks = 0
	}
}

// RecordRobotSample adds one busy/idle and battery observation for a robot.
// Utilization is the ratio of busy samples to total samples.
func (a *Aggregator) RecordRobotSample(robotID int, battery float64, busy bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tracker := a.robotLocked(robotID)
	tracker.totalSamples++
	tracker.batterySum += battery
	if busy {
		tracker.busySamples++
	}
}

// RecordAlert counts an alert of the given kind.
func (a *Aggregator) RecordAlert(t time.Time, kind string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.alerts[kind]++
	a.bucketLocked(t).Alerts++
}

// Snapshot returns the current counters. Safe to call concurrently with
// Record calls.
func (a *Aggregator) Snapshot() ProgressCounters {
	a.mu.Lock()
	defer a.mu.Unlock()

	alertTotal := 0
	for _, n := range a.alerts {
		alertTotal += n
	}

	return ProgressCounters{
		EventsProcessed: a.eventsProcessed,
		PartiesArrived:  a.partiesArrived,
		GuestsArrived:   a.guestsArrived,
		GuestsSeated:    a.guestsSeated,
		GuestsDeparted:  a.guestsDeparted,
		ActiveGuests:    a.currentGuests,
		TasksCreated:    a.tasksCreated,
		TasksCompleted:  a.tasksCompleted,
		TasksFailed:     a.tasksFailed,
		SuccessRate:     successRate(a.tasksCompleted, a.tasksFailed),
		Alerts:          alertTotal,
	}
}

// GenerateReport folds all buckets and trackers into the final report. It
// must be called at most once per run; call Reset before reusing the
// aggregator.
func (a *Aggregator) GenerateReport(
	endTime time.Time,
	realDuration time.Duration,
	accelFactor float64,
) *SimulationReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reportGenerated {
		panic("report already generated, call Reset before generating again")
	}
	a.reportGenerated = true

	report := &SimulationReport{
		GeneratedAt:  time.Now(),
		VirtualEnd:   endTime,
		RealDuration: realDuration,
		Acceleration: accelFactor,
		Summary:      a.summaryLocked(),
		Daily:        a.dailyLocked(),
		Robots:       a.robotReportsLocked(),
		Tables:       a.tableReportsLocked(),
		Alerts:       make(map[string]int, len(a.alerts)),
	}

	for kind, n := range a.alerts {
		report.Alerts[kind] = n
	}

	return report
}

func (a *Aggregator) summaryLocked() ReportSummary {
	s := ReportSummary{
		TotalGuests:          a.guestsArrived,
		TotalParties:         a.partiesArrived,
		TotalTasks:           a.tasksCreated,
		TasksCompleted:       a.tasksCompleted,
		TasksFailed:          a.tasksFailed,
		SuccessRate:          successRate(a.tasksCompleted, a.tasksFailed),
		PeakConcurrentGuests: a.peakGuests,
		PeakGuestsAt:         a.peakGuestsAt,
		PeakOpenTasks:        a.peakOpenTasks,
		PeakOpenTasksAt:      a.peakOpenTasksAt,
	}

	if a.tasksCompleted > 0 {
		avg := a.taskDurationSum / time.Duration(a.tasksCompleted)
		s.AvgTaskDurationSeconds = avg.Seconds()
	}

	if a.partiesArrived > 0 {
		s.AvgPartySize = float64(a.guestsArrived) / float64(a.partiesArrived)
	}

	var turnovers int
	var occupied time.Duration
	for _, tracker := range a.tables {
		turnovers += tracker.turnovers
		occupied += tracker.occupiedFor
	}
	s.TotalTurnovers = turnovers
	if turnovers > 0 {
		s.AvgOccupancyMinutes = occupied.Minutes() / float64(turnovers)
	}

	return s
}

func (a *Aggregator) dailyLocked() []DailyMetrics {
	byDate := map[string]*DailyMetrics{}
	busiest := map[string]int{}

	hours := make([]time.Time, 0, len(a.buckets))
	for hour := range a.buckets {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		return hours[i].Before(hours[j])
	})

	// Chronological order makes BusiestHour deterministic: the earliest
	// hour wins a tie.
	for _, hour := range hours {
		b := a.buckets[hour]
		date := hour.Format("2006-01-02")

		d := byDate[date]
		if d == nil {
			d = &DailyMetrics{Date: date}
			byDate[date] = d
		}

		d.PartiesArrived += b.PartiesArrived
		d.GuestsArrived += b.GuestsArrived
		d.GuestsSeated += b.GuestsSeated
		d.GuestsDeparted += b.GuestsDeparted
		d.TasksCreated += b.TasksCreated
		d.TasksCompleted += b.TasksCompleted
		d.TasksFailed += b.TasksFailed
		d.Alerts += b.Alerts

		if b.GuestsArrived > busiest[date] {
			busiest[date] = b.GuestsArrived
			d.BusiestHour = hour.Hour()
		}
	}

	daily := make([]DailyMetrics, 0, len(byDate))
	for _, d := range byDate {
		daily = append(daily, *d)
	}

	sort.Slice(daily, func(i, j int) bool {
		return daily[i].Date < daily[j].Date
	})

	return daily
}

func (a *Aggregator) robotReportsLocked() []RobotReport {
	reports := make([]RobotReport, 0, len(a.robots))

	for id, tracker := range a.robots {
		r := RobotReport{
			ID:             id,
			TasksCompleted: tracker.tasksCompleted,
			TasksFailed:    tracker.tasksFailed,
		}

		if tracker.tasksCompleted > 0 {
			avg := tracker.taskDurationSum /
				time.Duration(tracker.tasksCompleted)
			r.AvgTaskDurationSeconds = avg.Seconds()
		}

		if tracker.totalSamples > 0 {
			r.UtilizationPercent = 100 * float64(tracker.busySamples) /
				float64(tracker.totalSamples)
			r.AvgBatteryPercent = tracker.batterySum /
				float64(tracker.totalSamples)
		}

		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ID < reports[j].ID
	})

	return reports
}

func (a *Aggregator) tableReportsLocked() []TableReport {
	reports := make([]TableReport, 0, len(a.tables))

	for id, tracker := range a.tables {
		r := TableReport{
			ID:              id,
			GuestsServed:    tracker.guestsServed,
			Turnovers:       tracker.turnovers,
			OccupiedMinutes: tracker.occupiedFor.Minutes(),
		}

		if tracker.turnovers > 0 {
			r.AvgOccupancyMinutes = r.OccupiedMinutes /
				float64(tracker.turnovers)
		}

		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ID < reports[j].ID
	})

	return reports
}

func (a *Aggregator) bucketLocked(t time.Time) *hourlyBucket {
	hour := t.Truncate(time.Hour)

	b, ok := a.buckets[hour]
	if !ok {
		b = &hourlyBucket{}
		a.buckets[hour] = b
	}

	return b
}

func (a *Aggregator) robotLocked(id int) *robotTracker {
	tracker, ok := a.robots[id]
	if !ok {
		tracker = &robotTracker{}
		a.robots[id] = tracker
	}

	return tracker
}

func (a *Aggregator) tableLocked(id int) *tableTracker {
	tracker, ok := a.tables[id]
	if !ok {
		tracker = &tableTracker{}
		a.tables[id] = tracker
	}

	return tracker
}

// successRate defaults to 100 when no task has finished yet.
func successRate(completed, failed int) float64 {
	total := completed + failed
	if total == 0 {
		return 100
	}

	return 100 * float64(completed) / float64(total)
}
