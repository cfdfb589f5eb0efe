package simulation

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dinebot/dinesim/engine"
)

var _ = Describe("Simulation", func() {
	var simulation *Simulation

	BeforeEach(func() {
		simulation = MakeBuilder().WithoutMonitoring().Build()
	})

	AfterEach(func() {
		simulation.Terminate()
	})

	It("should wire the engine to the shared clock and aggregator", func() {
		Expect(simulation.GetEngine()).NotTo(BeNil())
		Expect(simulation.GetEngine().Clock()).
			To(BeIdenticalTo(simulation.GetClock()))
		Expect(simulation.GetAggregator()).NotTo(BeNil())
		Expect(simulation.GetMonitor()).To(BeNil())
		Expect(simulation.GetDataRecorder()).To(BeNil())
	})

	It("should run a short window to completion", func() {
		start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

		report, err := simulation.Run(engine.Config{
			Start:        start,
			End:          start.Add(time.Hour),
			Acceleration: 1e6,
			RobotCount:   2,
			TableCount:   4,
			Seed:         42,
		})

		Expect(err).To(BeNil())
		Expect(report).NotTo(BeNil())
		Expect(report.SimulationID).NotTo(BeEmpty())
		Expect(report.VirtualEnd).To(Equal(start.Add(time.Hour)))
		Expect(simulation.GetEngine().State()).
			To(Equal(engine.StateCompleted))
	})

	Context("Builder with tracing", func() {
		It("should create a data recorder", func() {
			output := filepath.Join(GinkgoT().TempDir(), "trace")

			tracedSim := MakeBuilder().
				WithoutMonitoring().
				WithTrace().
				WithOutputFileName(output).
				Build()
			defer tracedSim.Terminate()

			Expect(tracedSim.GetDataRecorder()).NotTo(BeNil())
			Expect(tracedSim.GetDataRecorder().ListTables()).
				To(ContainElements("exec_info", "event_trace"))
		})
	})

	Context("Builder validation", func() {
		It("should reject a monitor port without monitoring", func() {
			Expect(func() {
				MakeBuilder().
					WithoutMonitoring().
					WithMonitorPort(8080).
					Build()
			}).To(Panic())
		})

		It("should reject an output file without tracing", func() {
			Expect(func() {
				MakeBuilder().
					WithoutMonitoring().
					WithOutputFileName("out").
					Build()
			}).To(Panic())
		})
	})
})
