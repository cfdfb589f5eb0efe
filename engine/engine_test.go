package engine

import (
	"io"
	"log"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dinebot/dinesim/eventgen"
	"github.com/dinebot/dinesim/hooking"
	"github.com/dinebot/dinesim/metrics"
	"github.com/dinebot/dinesim/vclock"
)

type explodingHook struct{}

func (explodingHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos == HookPosEventApplied {
		panic("hook exploded")
	}
}

type panickySink struct {
	completed chan *metrics.SimulationReport
}

func (s *panickySink) PublishProgress(Progress) {
	panic("sink exploded")
}

func (s *panickySink) PublishCompleted(r *metrics.SimulationReport) {
	s.completed <- r
}

// newScenarioEngine builds an engine with a hand-crafted timeline, driven by
// calling step directly instead of the background loop.
func newScenarioEngine(
	t0 time.Time,
	cfg Config,
	events []eventgen.ScheduledEvent,
) *Engine {
	clock := vclock.New().
		WithTimeSource(func() time.Time { return t0 })
	clock.Start(cfg.Start, cfg.End, cfg.Acceleration)

	e := New(clock, metrics.NewAggregator(), nil, log.New(io.Discard, "", 0))
	e.cfg = cfg
	e.resetWorldLocked()
	e.events = events
	e.state = StateRunning
	e.startedReal = time.Now()

	return e
}

var _ = Describe("Engine scenario", func() {
	var (
		t0  time.Time
		cfg Config
	)

	BeforeEach(func() {
		t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		cfg = Config{
			ID:           "test-run",
			Start:        t0,
			End:          t0.Add(2 * time.Hour),
			Acceleration: 60,
			RobotCount:   1,
			TableCount:   1,
			Seed:         1,
		}
	})

	It("should run one guest visit through greeting and delivery", func() {
		events := []eventgen.ScheduledEvent{
			{ID: "evt-1", Time: t0.Add(10 * time.Minute),
				Kind: eventgen.KindGuestArrived, GuestID: 1, TableID: 1,
				PartySize: 2},
			{ID: "evt-2", Time: t0.Add(12 * time.Minute),
				Kind: eventgen.KindGuestSeated, GuestID: 1, TableID: 1},
			{ID: "evt-3", Time: t0.Add(30 * time.Minute),
				Kind: eventgen.KindFoodReady, GuestID: 1, TableID: 1,
				Priority: eventgen.PriorityHigh},
			{ID: "evt-4", Time: t0.Add(40 * time.Minute),
				Kind: eventgen.KindGuestLeft, GuestID: 1, TableID: 1},
		}
		e := newScenarioEngine(t0, cfg, events)

		// Arrival creates the greeting task and assigns it right away.
		Expect(e.step(t0.Add(10 * time.Minute))).To(Succeed())
		Expect(e.robots[1].Status).To(Equal(RobotNavigating))
		Expect(e.tasks[1].Type).To(Equal(TaskGreeting))
		Expect(e.tasks[1].Status).To(Equal(TaskAssigned))

		// Seating frees the greeting task (est completion <= 60s).
		Expect(e.step(t0.Add(12 * time.Minute))).To(Succeed())
		Expect(e.tasks[1].Status).To(Equal(TaskCompleted))
		Expect(e.robots[1].Status).To(Equal(RobotIdle))
		Expect(e.tables[1].Status).To(Equal(TableOccupied))
		Expect(e.guests[1].Status).To(Equal(GuestSeated))

		// Food ready spawns a delivery task, assigned to the idle robot.
		Expect(e.step(t0.Add(30 * time.Minute))).To(Succeed())
		Expect(e.tasks[2].Type).To(Equal(TaskDelivery))
		Expect(e.tasks[2].Status).To(Equal(TaskAssigned))
		Expect(e.tasks[2].Priority).To(Equal(eventgen.PriorityHigh))

		Expect(e.step(t0.Add(32 * time.Minute))).To(Succeed())
		Expect(e.tasks[2].Status).To(Equal(TaskCompleted))

		Expect(e.step(t0.Add(40 * time.Minute))).To(Succeed())
		Expect(e.guests[1].Status).To(Equal(GuestDeparted))
		Expect(e.tables[1].Status).To(Equal(TableNeedsService))

		e.finalize()

		report := e.GetReport()
		Expect(report).ToNot(BeNil())
		Expect(report.SimulationID).To(Equal("test-run"))
		Expect(report.Summary.TotalTasks).To(Equal(2))
		Expect(report.Summary.TasksCompleted).To(Equal(2))
		Expect(report.Summary.TasksFailed).To(Equal(0))
		Expect(report.Summary.SuccessRate).To(Equal(100.0))
		Expect(report.Tables).To(HaveLen(1))
		Expect(report.Tables[0].Turnovers).To(Equal(1))
		Expect(report.Tables[0].OccupiedMinutes).
			To(BeNumerically("~", 28, 1e-9))
	})

	It("should hold unassignable tasks pending until a robot frees up", func() {
		events := []eventgen.ScheduledEvent{
			{ID: "evt-1", Time: t0.Add(time.Minute),
				Kind: eventgen.KindFoodReady, TableID: 1,
				Priority: eventgen.PriorityHigh},
			{ID: "evt-2", Time: t0.Add(time.Minute),
				Kind: eventgen.KindDrinkReady, TableID: 1},
		}
		e := newScenarioEngine(t0, cfg, events)

		Expect(e.step(t0.Add(time.Minute))).To(Succeed())

		// One robot: the first task is assigned, the second stays pending.
		Expect(e.tasks[1].Status).To(Equal(TaskAssigned))
		Expect(e.tasks[2].Status).To(Equal(TaskPending))
		Expect(e.pending).To(HaveLen(1))

		// Once the first task completes, the pending one is picked up.
		Expect(e.step(t0.Add(2 * time.Minute))).To(Succeed())
		Expect(e.tasks[1].Status).To(Equal(TaskCompleted))
		Expect(e.tasks[2].Status).To(Equal(TaskAssigned))
		Expect(e.pending).To(BeEmpty())
	})

	It("should send a low-battery robot to charge and back", func() {
		e := newScenarioEngine(t0, cfg, nil)
		e.robots[1].Battery = 10

		Expect(e.step(t0.Add(time.Minute))).To(Succeed())
		Expect(e.robots[1].Status).To(Equal(RobotCharging))

		for i := 0; i < 200; i++ {
			Expect(e.step(t0.Add(time.Minute))).To(Succeed())
		}

		Expect(e.robots[1].Status).To(Equal(RobotIdle))
		Expect(e.robots[1].Battery).To(Equal(100.0))
	})

	It("should charge a robot sitting exactly at the battery threshold", func() {
		e := newScenarioEngine(t0, cfg, nil)
		e.robots[1].Battery = lowBatteryThreshold

		Expect(e.step(t0.Add(time.Minute))).To(Succeed())

		Expect(e.robots[1].Status).To(Equal(RobotCharging))
	})

	It("should record a help request as an alert", func() {
		events := []eventgen.ScheduledEvent{
			{ID: "evt-1", Time: t0.Add(time.Minute),
				Kind: eventgen.KindGuestNeedsHelp, GuestID: 1, TableID: 1,
				Priority: eventgen.PriorityHigh},
		}
		e := newScenarioEngine(t0, cfg, events)

		Expect(e.step(t0.Add(time.Minute))).To(Succeed())

		Expect(e.agg.Snapshot().Alerts).To(Equal(1))
		Expect(e.tasks[1].Type).To(Equal(TaskService))
		Expect(e.tasks[1].Priority).To(Equal(eventgen.PriorityHigh))
	})
})

var _ = Describe("Engine lifecycle", func() {
	var t0 time.Time

	BeforeEach(func() {
		t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	})

	newEngine := func(sink ProgressSink) *Engine {
		return New(
			vclock.New(), metrics.NewAggregator(), sink,
			log.New(io.Discard, "", 0))
	}

	It("should report zeroed progress before a run starts", func() {
		e := newEngine(nil)

		p := e.GetProgress()

		Expect(p.State).To(Equal("NotStarted"))
		Expect(p.Counters.SuccessRate).To(Equal(100.0))
		Expect(p.TotalEvents).To(Equal(0))
		Expect(e.GetReport()).To(BeNil())
	})

	It("should run a tiny accelerated window to completion", func() {
		sink := NewChannelSink(16)
		e := newEngine(sink)

		id, err := e.StartSimulation(Config{
			Start:        t0,
			End:          t0.Add(2 * time.Hour),
			Acceleration: 1e6,
			RobotCount:   3,
			TableCount:   5,
			Seed:         42,
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(id).ToNot(BeEmpty())

		Eventually(e.State, "5s", "10ms").Should(Equal(StateCompleted))

		report := e.GetReport()
		Expect(report).ToNot(BeNil())
		Expect(report.SimulationID).To(Equal(id))
		Expect(report.Summary.TotalTasks).To(BeNumerically(">", 0))

		Eventually(sink.Completed()).Should(Receive())
	})

	It("should reject a second start while one run is active", func() {
		e := newEngine(nil)

		cfg := Config{
			Start:        t0,
			End:          t0.Add(24 * time.Hour),
			Acceleration: 0.1,
			RobotCount:   1,
			TableCount:   1,
			Seed:         42,
		}

		id, err := e.StartSimulation(cfg)
		Expect(err).ToNot(HaveOccurred())

		_, err = e.StartSimulation(cfg)
		Expect(err).To(MatchError(ErrAlreadyRunning))

		Expect(e.State()).To(Equal(StateRunning))
		Expect(e.GetProgress().SimulationID).To(Equal(id))

		Expect(e.StopSimulation()).To(Succeed())
		Expect(e.State()).To(Equal(StateCancelled))
	})

	It("should pause and resume only from the matching states", func() {
		e := newEngine(nil)

		Expect(e.PauseSimulation()).ToNot(Succeed())
		Expect(e.ResumeSimulation()).ToNot(Succeed())

		_, err := e.StartSimulation(Config{
			Start:        t0,
			End:          t0.Add(24 * time.Hour),
			Acceleration: 0.1,
			RobotCount:   1,
			TableCount:   1,
			Seed:         42,
		})
		Expect(err).ToNot(HaveOccurred())

		Expect(e.PauseSimulation()).To(Succeed())
		Expect(e.State()).To(Equal(StatePaused))
		Expect(e.PauseSimulation()).ToNot(Succeed())

		Expect(e.ResumeSimulation()).To(Succeed())
		Expect(e.State()).To(Equal(StateRunning))

		Expect(e.StopSimulation()).To(Succeed())
	})

	It("should reject an invalid config without changing state", func() {
		e := newEngine(nil)

		_, err := e.StartSimulation(Config{
			Start:        t0,
			End:          t0.Add(-time.Hour),
			RobotCount:   1,
			TableCount:   1,
			Acceleration: 60,
		})

		Expect(err).To(HaveOccurred())
		Expect(e.State()).To(Equal(StateNotStarted))
	})

	It("should fail the run on a loop fault, keeping recorded metrics", func() {
		e := newEngine(nil)
		e.AcceptHook(explodingHook{})

		_, err := e.StartSimulation(Config{
			Start:        t0,
			End:          t0.Add(time.Hour),
			Acceleration: 1e6,
			RobotCount:   2,
			TableCount:   3,
			Seed:         42,
		})
		Expect(err).ToNot(HaveOccurred())

		Eventually(e.State, "5s", "10ms").Should(Equal(StateFailed))

		// The event applied before the fault stays recorded; no report is
		// generated for a failed run.
		p := e.GetProgress()
		Expect(p.State).To(Equal("Failed"))
		Expect(p.Counters.EventsProcessed).To(BeNumerically(">=", 1))
		Expect(e.GetReport()).To(BeNil())
	})

	It("should survive a panicking progress sink", func() {
		sink := &panickySink{
			completed: make(chan *metrics.SimulationReport, 1),
		}
		e := newEngine(sink)

		_, err := e.StartSimulation(Config{
			Start:             t0,
			End:               t0.Add(time.Hour),
			Acceleration:      1e6,
			RobotCount:        2,
			TableCount:        3,
			Seed:              42,
			BroadcastInterval: time.Millisecond,
		})
		Expect(err).ToNot(HaveOccurred())

		Eventually(e.State, "5s", "10ms").Should(Equal(StateCompleted))
		Eventually(sink.completed).Should(Receive())
	})
})
