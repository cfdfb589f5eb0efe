package simulation

import (
	"log"
	"os"

	"github.com/rs/xid"

	"github.com/dinebot/dinesim/datarecording"
	"github.com/dinebot/dinesim/engine"
	"github.com/dinebot/dinesim/metrics"
	"github.com/dinebot/dinesim/monitoring"
	"github.com/dinebot/dinesim/vclock"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	traceOn        bool
	outputFileName string
	sinks          []engine.ProgressSink
	logger         *log.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithTrace enables event trace recording into a SQLite database.
func (b Builder) WithTrace() Builder {
	b.traceOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithSink adds a progress sink to the simulation's engine.
func (b Builder) WithSink(s engine.ProgressSink) Builder {
	b.sinks = append(b.sinks, s)
	return b
}

// WithLogger sets the logger of the simulation's engine.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.traceOn && b.outputFileName != "" {
		panic("output file name cannot be set when tracing is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{}
	s.id = xid.New().String()

	s.clock = vclock.New()
	s.aggregator = metrics.NewAggregator()

	sinks := make(engine.MultiSink, 0, len(b.sinks)+1)
	sinks = append(sinks, b.sinks...)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		sinks = append(sinks, s.monitor)
	}

	logger := b.logger
	if logger == nil {
		logger = log.New(os.Stderr, "dinesim ", log.LstdFlags)
	}

	s.engine = engine.New(s.clock, s.aggregator, sinks, logger)

	if b.monitorOn {
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	if b.traceOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "dinesim_" + s.id
		}

		s.dataRecorder = datarecording.NewDataRecorder(outputPath)

		s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
		s.execRecorder.Start()

		s.traceRecorder = datarecording.NewTraceRecorder(s.dataRecorder)
		s.engine.AcceptHook(s.traceRecorder)
	}

	return s
}
