// Package simulation assembles the clock, engine, aggregator, monitor, and
// recorder into one runnable unit.
package simulation

import (
	"github.com/dinebot/dinesim/datarecording"
	"github.com/dinebot/dinesim/engine"
	"github.com/dinebot/dinesim/metrics"
	"github.com/dinebot/dinesim/monitoring"
	"github.com/dinebot/dinesim/vclock"
)

// A Simulation provides the services required to run a simulation.
type Simulation struct {
	id string

	clock      *vclock.VirtualClock
	aggregator *metrics.Aggregator
	engine     *engine.Engine

	monitor       *monitoring.Monitor
	dataRecorder  datarecording.DataRecorder
	execRecorder  *datarecording.ExecRecorder
	traceRecorder *datarecording.TraceRecorder
}

// ID returns the id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() *engine.Engine {
	return s.engine
}

// GetClock returns the virtual clock used in the simulation.
func (s *Simulation) GetClock() *vclock.VirtualClock {
	return s.clock
}

// GetAggregator returns the metrics aggregator used in the simulation.
func (s *Simulation) GetAggregator() *metrics.Aggregator {
	return s.aggregator
}

// GetMonitor returns the monitor used in the simulation. Nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetDataRecorder returns the data recorder used in the simulation. Nil
// when tracing is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Run starts the engine with the given configuration and blocks until the
// run leaves the running states.
func (s *Simulation) Run(cfg engine.Config) (*metrics.SimulationReport, error) {
	if _, err := s.engine.StartSimulation(cfg); err != nil {
		return nil, err
	}

	s.engine.Wait()

	return s.engine.GetReport(), nil
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	if s.execRecorder != nil {
		s.execRecorder.End()
	}

	if s.dataRecorder != nil {
		s.dataRecorder.Close()
	}
}
