package vclock

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dinebot/dinesim/hooking"
)

type countingHook struct {
	count     int
	snapshots []Snapshot
}

func (h *countingHook) Func(ctx hooking.HookCtx) {
	h.count++
	h.snapshots = append(h.snapshots, ctx.Item.(Snapshot))
}

var _ = Describe("VirtualClock", func() {
	var (
		real  time.Time
		clock *VirtualClock
		t0    time.Time
		t1    time.Time
	)

	advanceReal := func(d time.Duration) {
		real = real.Add(d)
	}

	BeforeEach(func() {
		real = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
		t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		t1 = t0.Add(12 * time.Hour)
		clock = New().WithTimeSource(func() time.Time { return real })
	})

	It("should advance virtual time by acceleration times real time", func() {
		clock.Start(t0, t1, 60)

		advanceReal(60 * time.Second)

		Expect(clock.Now()).To(Equal(t0.Add(time.Hour)))
		Expect(clock.Progress()).To(BeNumerically("~", 1.0/12.0, 1e-9))
	})

	It("should clamp virtual time to the end time", func() {
		clock.Start(t0, t0.Add(time.Hour), 3600)

		advanceReal(10 * time.Second)

		Expect(clock.Now()).To(Equal(t0.Add(time.Hour)))
		Expect(clock.Progress()).To(Equal(1.0))
	})

	It("should be monotonically non-decreasing", func() {
		clock.Start(t0, t1, 120)

		prev := clock.Now()
		for i := 0; i < 100; i++ {
			advanceReal(37 * time.Millisecond)
			now := clock.Now()
			Expect(now.Before(prev)).To(BeFalse())
			prev = now
		}
	})

	It("should not move virtual time across a pause-resume pair", func() {
		clock.Start(t0, t1, 60)
		advanceReal(30 * time.Second)

		before := clock.Now()
		clock.Pause()
		advanceReal(5 * time.Minute)
		Expect(clock.Now()).To(Equal(before))

		clock.Resume()
		Expect(clock.Now()).To(Equal(before))

		advanceReal(time.Second)
		Expect(clock.Now()).To(Equal(before.Add(time.Minute)))
	})

	It("should treat repeated Pause and Resume as no-ops", func() {
		clock.Start(t0, t1, 60)
		advanceReal(10 * time.Second)

		clock.Pause()
		before := clock.Now()
		clock.Pause()
		Expect(clock.Now()).To(Equal(before))

		clock.Resume()
		clock.Resume()
		Expect(clock.Now()).To(Equal(before))
	})

	It("should keep virtual time continuous when acceleration changes", func() {
		clock.Start(t0, t1, 60)
		advanceReal(30 * time.Second)

		before := clock.Now()
		clock.SetAcceleration(600)
		Expect(clock.Now()).To(Equal(before))

		advanceReal(time.Second)
		Expect(clock.Now()).To(Equal(before.Add(10 * time.Minute)))
	})

	It("should clamp the acceleration factor at the minimum", func() {
		clock.Start(t0, t1, 0.001)

		Expect(clock.Acceleration()).To(Equal(MinAcceleration))

		clock.SetAcceleration(0)
		Expect(clock.Acceleration()).To(Equal(MinAcceleration))
	})

	It("should advance by a caller-given duration", func() {
		clock.Start(t0, t1, 1)

		clock.AdvanceBy(3 * time.Hour)

		Expect(clock.Now()).To(Equal(t0.Add(3 * time.Hour)))
		Expect(clock.Running()).To(BeTrue())
	})

	It("should auto-stop when AdvanceBy reaches the end", func() {
		clock.Start(t0, t1, 1)

		clock.AdvanceBy(13 * time.Hour)

		Expect(clock.Now()).To(Equal(t1))
		Expect(clock.Running()).To(BeFalse())
	})

	It("should freeze virtual time on Stop", func() {
		clock.Start(t0, t1, 60)
		advanceReal(10 * time.Second)

		clock.Stop()
		frozen := clock.Now()

		advanceReal(time.Hour)
		Expect(clock.Now()).To(Equal(frozen))
	})

	It("should throttle time-changed notifications", func() {
		hook := &countingHook{}
		clock.AcceptHook(hook)

		clock.Start(t0, t1, 60)
		clock.Pause()
		clock.Resume()

		Expect(hook.count).To(Equal(1))

		advanceReal(200 * time.Millisecond)
		clock.Pause()
		Expect(hook.count).To(Equal(2))
		Expect(hook.snapshots[1].Paused).To(BeTrue())
	})
})
