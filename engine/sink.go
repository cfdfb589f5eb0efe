package engine

import (
	"time"

	"github.com/dinebot/dinesim/metrics"
)

// Progress is a point-in-time, read-only projection of a run, suitable for
// external display. It is computed on demand and never persisted.
type Progress struct {
	SimulationID    string                   `json:"simulation_id"`
	State           string                   `json:"state"`
	VirtualTime     time.Time                `json:"virtual_time"`
	PercentComplete float64                  `json:"percent_complete"`
	RealElapsed     string                   `json:"real_elapsed"`
	RealRemaining   string                   `json:"real_remaining"`
	TotalEvents     int                      `json:"total_events"`
	Counters        metrics.ProgressCounters `json:"counters"`
	Timestamp       time.Time                `json:"timestamp"`
}

// A ProgressSink receives outward-bound payloads from the engine. Publishing
/// is best-effort: the engine logs and swallows sink panics, and a slow sink
// must not block the loop.
type ProgressSink interface {
	PublishProgress(p Progress)
	PublishCompleted(r *metrics.SimulationReport)
}

// NopSink discards everything.
type NopSink struct{}

// PublishProgress discards the payload.
func (NopSink) PublishProgress(Progress) {}

// PublishCompleted discards the payload.
func (NopSink) PublishCompleted(*metrics.SimulationReport) {}

// A ChannelSink delivers payloads on buffered channels, dropping payloads
// when a channel is full so the engine loop never blocks.
type ChannelSink struct {
	progress  chan Progress
	completed chan *metrics.SimulationReport
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{
		progress:  make(chan Progress, buffer),
		completed: make(chan *metrics.SimulationReport, buffer),
	}
}

// Progress returns the channel carrying progress updates.
func (s *ChannelSink) Progress() <-chan Progress {
	return s.progress
}

// Completed returns the channel carrying the final report of each run.
func (s *ChannelSink) Completed() <-chan *metrics.SimulationReport {
	return s.completed
}

// PublishProgress sends without blocking, dropping the payload if the
// channel is full.
func (s *ChannelSink) PublishProgress(p Progress) {
	select {
	case s.progress <- p:
	default:
	}
}

// PublishCompleted sends without blocking, dropping the payload if the
// channel is full.
func (s *ChannelSink) PublishCompleted(r *metrics.SimulationReport) {
	select {
	case s.completed <- r:
	default:
	}
}

// MultiSink fans every payload out to all member sinks.
type MultiSink []ProgressSink

// PublishProgress forwards to every member sink.
func (m MultiSink) PublishProgress(p Progress) {
	for _, s := range m {
		s.PublishProgress(p)
	}
}

// PublishCompleted forwards to every member sink.
func (m MultiSink) PublishCompleted(r *metrics.SimulationReport) {
	for _, s := range m {
		s.PublishCompleted(r)
	}
}
