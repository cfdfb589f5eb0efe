// Package vclock provides the accelerated virtual clock that drives a
// simulation run. Virtual time is computed lazily from a real-time anchor
// rather than incremented tick by tick, so it does not accumulate rounding
// error and stays correct even when nobody polls it.
package vclock

import (
	"sync"
	"time"

	"github.com/dinebot/dinesim/hooking"
)

// MinAcceleration is the lowest acceleration factor the clock accepts.
// Factors below it are clamped up to avoid zero-rate pathologies.
const MinAcceleration = 0.1

// notifyInterval throttles time-changed hook invocations to at most 10/s.
const notifyInterval = 100 * time.Millisecond

// HookPosTimeChanged is triggered after a call that changes the clock state.
// The hook context Item is a Snapshot.
var HookPosTimeChanged = &hooking.HookPos{Name: "TimeChanged"}

// A Snapshot is a point-in-time copy of the clock state.
type Snapshot struct {
	Now          time.Time
	Acceleration float64
	Running      bool
	Paused       bool
}

// A VirtualClock owns the simulated "now". While running and not paused,
// virtual time advances by acceleration times the real time elapsed since the
// last anchor point. Pause, Resume, SetAcceleration, and AdvanceBy all
// re-anchor so that virtual time never jumps backward or forward.
type VirtualClock struct {
	hooking.HookableBase

	mu      sync.RWMutex
	realNow func() time.Time

	start  time.Time
	end    time.Time
	hasEnd bool
	accel  float64

	running bool
	paused  bool

	base   time.Time // virtual time at the last anchor point
	anchor time.Time // real time at the last anchor point

	lastNotify time.Time
}

// New creates a VirtualClock that reads the wall clock through time.Now.
func New() *VirtualClock {
	return &VirtualClock{
		realNow: time.Now,
		accel:   1.0,
	}
}

// WithTimeSource replaces the real-time reading function. Tests use it to
// drive the clock deterministically.
func (c *VirtualClock) WithTimeSource(f func() time.Time) *VirtualClock {
	c.realNow = f
	return c
}

// Start resets all clock state and begins running from the given virtual
// start time. A zero end time means the clock runs unbounded.
func (c *VirtualClock) Start(start, end time.Time, accel float64) {
	c.mu.Lock()

	c.start = start
	c.end = end
	c.hasEnd = !end.IsZero()
	c.accel = clampAccel(accel)
	c.base = start
	c.anchor = c.realNow()
	c.running = true
	c.paused = false

	c.notifyAndUnlock()
}

// Now returns the current virtual instant, clamped to the end time if one is
// configured.
func (c *VirtualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.nowLocked()
}

func (c *VirtualClock) nowLocked() time.Time {
	t := c.base

	if c.running && !c.paused {
		elapsed := c.realNow().Sub(c.anchor)
		t = c.base.Add(time.Duration(float64(elapsed) * c.accel))
	}

	if c.hasEnd && t.After(c.end) {
		t = c.end
	}

	return t
}

// Pause freezes virtual time. Pausing an already-paused or stopped clock is a
// no-op.
func (c *VirtualClock) Pause() {
	c.mu.Lock()

	if !c.running || c.paused {
		c.mu.Unlock()
		return
	}

	// Capture virtual time before suspending, so Resume continues from the
	// exact instant the pause took effect.
	c.base = c.nowLocked()
	c.paused = true

	c.notifyAndUnlock()
}

// Resume continues a paused clock without losing elapsed virtual time.
// Resuming a clock that is not paused is a no-op.
func (c *VirtualClock) Resume() {
	c.mu.Lock()

	if !c.running || !c.paused {
		c.mu.Unlock()
		return
	}

	c.anchor = c.realNow()
	c.paused = false

	c.notifyAndUnlock()
}

// SetAcceleration changes the acceleration factor, taking effect immediately.
// The clock re-anchors first so virtual time is continuous across the change.
func (c *VirtualClock) SetAcceleration(factor float64) {
	c.mu.Lock()

	c.base = c.nowLocked()
	c.anchor = c.realNow()
	c.accel = clampAccel(factor)

	c.notifyAndUnlock()
}

// AdvanceBy forcibly moves virtual time forward by d. It is the alternate,
// caller-driven mode used by tick-based loops. If the new time reaches the
// configured end, the clock stops.
func (c *VirtualClock) AdvanceBy(d time.Duration) {
	c.mu.Lock()

	c.base = c.nowLocked().Add(d)
	c.anchor = c.realNow()

	if c.hasEnd && !c.base.Before(c.end) {
		c.base = c.end
		c.running = false
	}

	c.notifyAndUnlock()
}

// Stop freezes virtual time at its last computed value.
func (c *VirtualClock) Stop() {
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()
		return
	}

	c.base = c.nowLocked()
	c.running = false

	c.notifyAndUnlock()
}

// Progress returns the fraction of the configured window that has elapsed,
// in [0, 1]. It returns 0 when no end time is configured.
func (c *VirtualClock) Progress() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasEnd {
		return 0
	}

	window := c.end.Sub(c.start)
	if window <= 0 {
		return 1
	}

	frac := float64(c.nowLocked().Sub(c.start)) / float64(window)
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}

	return frac
}

// Running returns true if the clock has been started and not yet stopped.
func (c *VirtualClock) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.running
}

// IsPaused returns true if the clock is paused.
func (c *VirtualClock) IsPaused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.paused
}

// Acceleration returns the current acceleration factor.
func (c *VirtualClock) Acceleration() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accel
}

// StartTime returns the virtual start time of the current run.
func (c *VirtualClock) StartTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.start
}

// EndTime returns the configured virtual end time, which is zero when the
// clock runs unbounded.
func (c *VirtualClock) EndTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.end
}

// notifyAndUnlock releases the clock lock and then, unless throttled, invokes
// the time-changed hooks. Hooks run without the lock held so they may read
// the clock freely.
func (c *VirtualClock) notifyAndUnlock() {
	real := c.realNow()
	due := real.Sub(c.lastNotify) >= notifyInterval
	if due {
		c.lastNotify = real
	}

	snapshot := Snapshot{
		Now:          c.nowLocked(),
		Acceleration: c.accel,
		Running:      c.running,
		Paused:       c.paused,
	}

	c.mu.Unlock()

	if !due {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTimeChanged,
		Item:   snapshot,
	})
}

func clampAccel(factor float64) float64 {
	if factor < MinAcceleration {
		return MinAcceleration
	}

	return factor
}
