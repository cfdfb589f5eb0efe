// Package engine runs the event-driven world-state loop: it consumes the
// pre-generated timeline, advances robot/table/guest/task state, and emits
// throttled progress snapshots.
package engine

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/dinebot/dinesim/eventgen"
	"github.com/dinebot/dinesim/hooking"
	"github.com/dinebot/dinesim/metrics"
	"github.com/dinebot/dinesim/vclock"
)

// HookPosEventApplied is triggered after a scheduled event has been applied
// to the world. The hook context Item is the eventgen.ScheduledEvent.
var HookPosEventApplied = &hooking.HookPos{Name: "EventApplied"}

// The loop yields this long between iterations so it does not spin the CPU
// even though wall time moves far faster than virtual time. A short fixed
// poll is intentional: sleeping until the next event's due time would require
// inverting the acceleration function.
const pollInterval = 10 * time.Millisecond

const (
	batteryDrainPerTick  = 0.05
	batteryChargePerTick = 0.5
	lowBatteryThreshold  = 20.0

	minTaskSeconds = 10
	maxTaskSeconds = 60
)

// ErrAlreadyRunning is returned when a start request arrives while a run is
// active.
var ErrAlreadyRunning = errors.New("a simulation is already active")

// An Engine orchestrates one simulation run at a time. The background loop
// is the sole writer of world-model state; GetProgress and GetReport may be
// called concurrently from any goroutine.
type Engine struct {
	hooking.HookableBase

	clock  *vclock.VirtualClock
	agg    *metrics.Aggregator
	sink   ProgressSink
	logger *log.Logger

	mu     sync.Mutex
	state  State
	cfg    Config
	report *metrics.SimulationReport

	events    []eventgen.ScheduledEvent
	nextEvent int

	robots  map[int]*SimulatedRobot
	tables  map[int]*SimulatedTable
	guests  map[int]*SimulatedGuest
	tasks   map[int]*SimulatedTask
	pending []int
	taskSeq int
	rng     *rand.Rand

	startedReal   time.Time
	lastBroadcast time.Time
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// New creates an Engine wired to its collaborators. A nil sink discards
// payloads and a nil logger writes to stderr.
func New(
	clock *vclock.VirtualClock,
	agg *metrics.Aggregator,
	sink ProgressSink,
	logger *log.Logger,
) *Engine {
	if sink == nil {
		sink = NopSink{}
	}

	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	return &Engine{
		clock:  clock,
		agg:    agg,
		sink:   sink,
		logger: logger,
		state:  StateNotStarted,
	}
}

// Clock returns the virtual clock driving this engine.
func (e *Engine) Clock() *vclock.VirtualClock {
	return e.clock
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// StartSimulation generates the full event timeline, resets the world, starts
// the clock, and launches the background loop. It fails fast when a run is
// already active, leaving that run untouched.
func (e *Engine) StartSimulation(cfg Config) (string, error) {
	e.mu.Lock()
	if e.state == StateInitializing || e.state == StateRunning ||
		e.state == StatePaused {
		e.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	e.state = StateInitializing
	e.mu.Unlock()

	if err := cfg.validate(); err != nil {
		e.setState(StateNotStarted)
		return "", err
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	gen := eventgen.NewGenerator(cfg.Seed, cfg.TableCount)
	events, err := gen.Generate(cfg.Start, cfg.End, cfg.Pattern)
	if err != nil {
		e.setState(StateNotStarted)
		return "", err
	}

	if cfg.ID == "" {
		cfg.ID = xid.New().String()
	}

	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = defaultBroadcastInterval
	}

	e.mu.Lock()
	e.cfg = cfg
	e.events = events
	e.nextEvent = 0
	e.report = nil
	e.resetWorldLocked()
	e.agg.Reset()
	e.startedReal = time.Now()
	e.lastBroadcast = time.Time{}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.state = StateRunning
	e.mu.Unlock()

	e.clock.Start(cfg.Start, cfg.End, cfg.Acceleration)

	go e.run()

	return cfg.ID, nil
}

func (e *Engine) resetWorldLocked() {
	e.robots = make(map[int]*SimulatedRobot, e.cfg.RobotCount)
	for i := 1; i <= e.cfg.RobotCount; i++ {
		e.robots[i] = &SimulatedRobot{ID: i, Status: RobotIdle, Battery: 100}
	}

	capacity := e.cfg.TableCapacity
	if capacity <= 0 {
		capacity = 4
	}

	e.tables = make(map[int]*SimulatedTable, e.cfg.TableCount)
	for i := 1; i <= e.cfg.TableCount; i++ {
		e.tables[i] = &SimulatedTable{
			ID:       i,
			Status:   TableAvailable,
			Capacity: capacity,
		}
	}

	e.guests = make(map[int]*SimulatedGuest)
	e.tasks = make(map[int]*SimulatedTask)
	e.pending = nil
	e.taskSeq = 0
	e.rng = rand.New(rand.NewSource(e.cfg.Seed + 1))
}

// PauseSimulation pauses a running simulation. The loop observes the paused
// clock within one iteration.
func (e *Engine) PauseSimulation() error {
	e.mu.Lock()
	if e.state != StateRunning {
		defer e.mu.Unlock()
		return fmt.Errorf("cannot pause from state %s", e.state)
	}
	e.state = StatePaused
	e.mu.Unlock()

	// Clock calls run outside the engine lock so clock hooks may query the
	// engine freely.
	e.clock.Pause()

	return nil
}

// ResumeSimulation resumes a paused simulation.
func (e *Engine) ResumeSimulation() error {
	e.mu.Lock()
	if e.state != StatePaused {
		defer e.mu.Unlock()
		return fmt.Errorf("cannot resume from state %s", e.state)
	}
	e.state = StateRunning
	e.mu.Unlock()

	e.clock.Resume()

	return nil
}

// StopSimulation cancels the loop and waits for it to exit. A cancelled run
// leaves world state and metrics consistent as of the last applied event.
func (e *Engine) StopSimulation() error {
	e.mu.Lock()

	if e.state != StateRunning && e.state != StatePaused {
		e.mu.Unlock()
		return fmt.Errorf("cannot stop from state %s", e.state)
	}

	stop := e.stopCh
	done := e.doneCh
	e.mu.Unlock()

	e.clock.Resume()
	close(stop)
	<-done

	return nil
}

// Wait blocks until the loop of the current run exits. It returns
// immediately when no run was started.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.doneCh
	e.mu.Unlock()

	if done == nil {
		return
	}

	<-done
}

// run is the background loop. It drains due events, updates robots, and
// publishes progress until the clock reaches the end time or the run is
// cancelled.
func (e *Engine) run() {
	defer close(e.doneCh)

	for {
		select {
		case <-e.stopCh:
			e.clock.Stop()
			e.setState(StateCancelled)
			return
		default:
		}

		if e.clock.IsPaused() {
			time.Sleep(pollInterval)
			continue
		}

		now := e.clock.Now()

		if err := e.step(now); err != nil {
			// The aggregator keeps its last consistent snapshot; only
			// the run state changes.
			e.logger.Printf("simulation failed: %v", err)
			e.clock.Stop()
			e.setState(StateFailed)
			return
		}

		if !now.Before(e.endTime()) {
			e.finalize()
			return
		}

		e.maybeBroadcast()

		time.Sleep(pollInterval)
	}
}

// step applies all due events and runs the per-tick robot update. Panics are
// converted to errors so a loop-time fault cannot corrupt recorded metrics.
func (e *Engine) step(now time.Time) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while advancing world: %v", r)
		}
	}()

	for e.nextEvent < len(e.events) &&
		!e.events[e.nextEvent].Time.After(now) {
		evt := e.events[e.nextEvent]
		e.nextEvent++

		e.applyEvent(evt)
		e.agg.RecordEventProcessed(evt.Time)

		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosEventApplied,
			Item:   evt,
		})
	}

	e.updateRobots(now)

	return nil
}

func (e *Engine) applyEvent(evt eventgen.ScheduledEvent) {
	switch evt.Kind {
	case eventgen.KindGuestArrived:
		partySize := evt.PartySize
		if partySize < 1 {
			partySize = 1
		}
		e.guests[evt.GuestID] = &SimulatedGuest{
			ID:        evt.GuestID,
			PartySize: partySize,
			Status:    GuestWaiting,
			ArrivedAt: evt.Time,
			TableID:   evt.TableID,
		}
		e.agg.RecordGuestArrival(evt.Time, partySize)
		e.createTask(TaskGreeting, eventgen.PriorityNormal, 0, evt.Time)

	case eventgen.KindGuestSeated:
		partySize := 1
		if g := e.guests[evt.GuestID]; g != nil {
			g.Status = GuestSeated
			g.TableID = evt.TableID
			partySize = g.PartySize
		}
		if t := e.tables[evt.TableID]; t != nil {
			t.Status = TableOccupied
			t.GuestID = evt.GuestID
		}
		e.agg.RecordGuestSeated(evt.Time, evt.TableID, partySize)

	case eventgen.KindFoodReady:
		e.createTask(TaskDelivery, eventgen.PriorityHigh, evt.TableID, evt.Time)

	case eventgen.KindDrinkReady:
		e.createTask(TaskDelivery, eventgen.PriorityNormal, evt.TableID, evt.Time)

	case eventgen.KindGuestNeedsHelp:
		e.createTask(TaskService, eventgen.PriorityHigh, evt.TableID, evt.Time)
		e.agg.RecordAlert(evt.Time, "guest_needs_help")

	case eventgen.KindGuestRequestedCheck:
		e.createTask(TaskDelivery, eventgen.PriorityNormal, evt.TableID, evt.Time)

	case eventgen.KindGuestLeft:
		partySize := 1
		if g := e.guests[evt.GuestID]; g != nil {
			g.Status = GuestDeparted
			partySize = g.PartySize
		}
		if t := e.tables[evt.TableID]; t != nil {
			t.Status = TableNeedsService
			t.GuestID = 0
		}
		e.agg.RecordGuestDeparture(evt.Time, evt.TableID, partySize)

	case eventgen.KindTableNeedsCleaning:
		if t := e.tables[evt.TableID]; t != nil {
			t.Status = TableCleaning
		}
		e.createTask(TaskCleaning, eventgen.PriorityNormal, evt.TableID, evt.Time)
	}
}

// createTask registers a new task and attempts immediate assignment. Tasks
// that cannot be assigned stay pending and are retried whenever a robot
// frees up.
func (e *Engine) createTask(
	taskType TaskType,
	priority eventgen.Priority,
	tableID int,
	now time.Time,
) *SimulatedTask {
	e.taskSeq++
	task := &SimulatedTask{
		ID:        e.taskSeq,
		Type:      taskType,
		Status:    TaskPending,
		Priority:  priority,
		TableID:   tableID,
		CreatedAt: now,
	}
	e.tasks[task.ID] = task

	e.agg.RecordTaskCreated(now, taskType.String())

	if !e.tryAssign(task, now) {
		e.pending = append(e.pending, task.ID)
	}

	return task
}

// tryAssign picks the idle robot with battery above the low threshold that
// has the highest battery. This deliberately stays simpler than a production
// dispatcher; it models throughput, not live assignment.
func (e *Engine) tryAssign(task *SimulatedTask, now time.Time) bool {
	var best *SimulatedRobot

	for i := 1; i <= e.cfg.RobotCount; i++ {
		r := e.robots[i]
		if r.Status != RobotIdle || r.Battery <= lowBatteryThreshold {
			continue
		}
		if best == nil || r.Battery > best.Battery {
			best = r
		}
	}

	if best == nil {
		return false
	}

	seconds := minTaskSeconds + e.rng.Intn(maxTaskSeconds-minTaskSeconds+1)
	task.Status = TaskAssigned
	task.RobotID = best.ID
	task.StartedAt = now
	task.EstCompletion = now.Add(time.Duration(seconds) * time.Second)

	best.Status = RobotNavigating
	best.TaskID = task.ID

	return true
}

// updateRobots runs the per-tick battery and task-completion pass. Robots
// are visited in id order so runs with the same seed stay deterministic.
func (e *Engine) updateRobots(now time.Time) {
	for i := 1; i <= e.cfg.RobotCount; i++ {
		r := e.robots[i]

		switch r.Status {
		case RobotNavigating:
			r.Battery -= batteryDrainPerTick
			if r.Battery < 0 {
				r.Battery = 0
			}

			task := e.tasks[r.TaskID]
			if task != nil && !task.EstCompletion.After(now) {
				task.Status = TaskCompleted
				task.CompletedAt = now
				e.agg.RecordTaskCompleted(
					now, r.ID, task.Type.String(), now.Sub(task.CreatedAt))

				r.Status = RobotIdle
				r.TaskID = 0
				e.assignOldestPending(r, now)
			}

		case RobotCharging:
			r.Battery += batteryChargePerTick
			if r.Battery >= 100 {
				r.Battery = 100
				r.Status = RobotIdle
				e.assignOldestPending(r, now)
			}

		case RobotIdle:
			// Same comparison as the assignment paths, so a robot sitting
			// exactly at the threshold charges instead of idling forever.
			if r.Battery <= lowBatteryThreshold {
				r.Status = RobotCharging
			} else {
				e.assignOldestPending(r, now)
			}
		}

		e.agg.RecordRobotSample(r.ID, r.Battery, r.Status == RobotNavigating)
	}
}

// assignOldestPending hands the oldest still-pending task to the given robot.
func (e *Engine) assignOldestPending(r *SimulatedRobot, now time.Time) {
	if r.Status != RobotIdle || r.Battery <= lowBatteryThreshold {
		return
	}

	for len(e.pending) > 0 {
		task := e.tasks[e.pending[0]]
		e.pending = e.pending[1:]

		if task == nil || task.Status != TaskPending {
			continue
		}

		seconds := minTaskSeconds +
			e.rng.Intn(maxTaskSeconds-minTaskSeconds+1)
		task.Status = TaskAssigned
		task.RobotID = r.ID
		task.StartedAt = now
		task.EstCompletion = now.Add(time.Duration(seconds) * time.Second)

		r.Status = RobotNavigating
		r.TaskID = task.ID

		return
	}
}

func (e *Engine) finalize() {
	e.mu.Lock()
	realDuration := time.Since(e.startedReal)
	report := e.agg.GenerateReport(
		e.cfg.End, realDuration, e.clock.Acceleration())
	report.SimulationID = e.cfg.ID
	e.report = report
	e.state = StateCompleted
	e.mu.Unlock()

	e.clock.Stop()

	e.publishProgress(e.GetProgress())
	e.publishCompleted(report)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) endTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg.End
}

func (e *Engine) maybeBroadcast() {
	e.mu.Lock()
	interval := e.cfg.BroadcastInterval
	due := time.Since(e.lastBroadcast) >= interval
	if due {
		e.lastBroadcast = time.Now()
	}
	e.mu.Unlock()

	if !due {
		return
	}

	e.publishProgress(e.GetProgress())
}

// publishProgress is best-effort: a panicking sink is logged, never fatal.
func (e *Engine) publishProgress(p Progress) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("progress publish failed: %v", r)
		}
	}()

	e.sink.PublishProgress(p)
}

func (e *Engine) publishCompleted(r *metrics.SimulationReport) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Printf("completion publish failed: %v", rec)
		}
	}()

	e.sink.PublishCompleted(r)
}

// GetProgress is safe to call from any state and returns the best available
// snapshot, zeroed before a run starts.
func (e *Engine) GetProgress() Progress {
	e.mu.Lock()
	state := e.state
	id := e.cfg.ID
	totalEvents := len(e.events)
	started := e.startedReal
	e.mu.Unlock()

	p := Progress{
		SimulationID:    id,
		State:           state.String(),
		VirtualTime:     e.clock.Now(),
		PercentComplete: e.clock.Progress() * 100,
		TotalEvents:     totalEvents,
		Counters:        e.agg.Snapshot(),
		Timestamp:       time.Now(),
	}

	if !started.IsZero() && state != StateNotStarted {
		elapsed := time.Since(started)
		p.RealElapsed = formatDuration(elapsed)

		if p.PercentComplete > 0 && state == StateRunning {
			remaining := time.Duration(float64(elapsed) *
				(100 - p.PercentComplete) / p.PercentComplete)
			p.RealRemaining = formatDuration(remaining)
		}
	}

	return p
}

// GetReport returns the final report, or nil while no run has completed.
func (e *Engine) GetReport() *metrics.SimulationReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.report
}

// WorldSnapshot is a copy of the world for external inspection.
type WorldSnapshot struct {
	Robots       []SimulatedRobot `json:"robots"`
	Tables       []SimulatedTable `json:"tables"`
	ActiveGuests int              `json:"active_guests"`
	OpenTasks    int              `json:"open_tasks"`
	PendingTasks int              `json:"pending_tasks"`
}

// World copies the current world state. The loop's single-writer discipline
// means external readers always get a copy, never live references.
func (e *Engine) World() WorldSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := WorldSnapshot{
		Robots: make([]SimulatedRobot, 0, len(e.robots)),
		Tables: make([]SimulatedTable, 0, len(e.tables)),
	}

	for i := 1; i <= e.cfg.RobotCount; i++ {
		if r := e.robots[i]; r != nil {
			snapshot.Robots = append(snapshot.Robots, *r)
		}
	}

	for i := 1; i <= e.cfg.TableCount; i++ {
		if t := e.tables[i]; t != nil {
			snapshot.Tables = append(snapshot.Tables, *t)
		}
	}

	for _, g := range e.guests {
		if g.Status != GuestDeparted {
			snapshot.ActiveGuests++
		}
	}

	for _, task := range e.tasks {
		if task.Status == TaskPending || task.Status == TaskAssigned {
			snapshot.OpenTasks++
		}
		if task.Status == TaskPending {
			snapshot.PendingTasks++
		}
	}

	return snapshot
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	return d.Round(time.Second).String()
}
