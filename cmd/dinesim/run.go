package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dinebot/dinesim/engine"
	"github.com/dinebot/dinesim/simulation"
)

var runFlags struct {
	days        int
	accel       float64
	robots      int
	tables      int
	seed        int64
	monitorPort int
	noMonitor   bool
	trace       bool
	output      string
	open        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and print the final report as JSON.",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().IntVar(&runFlags.days, "days", 30,
		"number of simulated days")
	runCmd.Flags().Float64Var(&runFlags.accel, "accel", 720,
		"virtual seconds per real second")
	runCmd.Flags().IntVar(&runFlags.robots, "robots", 4,
		"number of robots in the fleet")
	runCmd.Flags().IntVar(&runFlags.tables, "tables", 20,
		"number of tables in the restaurant")
	runCmd.Flags().Int64Var(&runFlags.seed, "seed", 0,
		"random seed, 0 selects a time-derived seed")
	runCmd.Flags().IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"monitoring server port, 0 selects a random port")
	runCmd.Flags().BoolVar(&runFlags.noMonitor, "no-monitor", false,
		"disable the monitoring server")
	runCmd.Flags().BoolVar(&runFlags.trace, "trace", false,
		"record an event trace into a SQLite database")
	runCmd.Flags().StringVar(&runFlags.output, "output", "",
		"trace database file name, without the .sqlite3 suffix")
	runCmd.Flags().BoolVar(&runFlags.open, "open", false,
		"open the monitoring URL in the browser")

	rootCmd.AddCommand(runCmd)
}

func runSimulation(_ *cobra.Command, _ []string) error {
	// A .env file can carry flag defaults such as DINESIM_SEED for repeated
	// local runs. Missing files are fine.
	_ = godotenv.Load()

	s := buildSimulation()
	defer s.Terminate()

	if runFlags.open && s.GetMonitor() != nil {
		s.GetMonitor().OpenInBrowser()
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, runFlags.days)

	report, err := s.Run(engine.Config{
		Start:        start,
		End:          end,
		Acceleration: runFlags.accel,
		RobotCount:   runFlags.robots,
		TableCount:   runFlags.tables,
		Seed:         seedFromEnv(),
	})
	if err != nil {
		return err
	}

	if report == nil {
		return fmt.Errorf("run ended in state %s without a report",
			s.GetEngine().State())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}

func buildSimulation() *simulation.Simulation {
	b := simulation.MakeBuilder()

	if runFlags.noMonitor {
		b = b.WithoutMonitoring()
	} else if runFlags.monitorPort > 0 {
		b = b.WithMonitorPort(runFlags.monitorPort)
	}

	if runFlags.trace {
		b = b.WithTrace()
		if runFlags.output != "" {
			b = b.WithOutputFileName(runFlags.output)
		}
	}

	return b.Build()
}

func seedFromEnv() int64 {
	if runFlags.seed != 0 {
		return runFlags.seed
	}

	var seed int64
	if v := os.Getenv("DINESIM_SEED"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &seed); err != nil {
			fmt.Fprintf(os.Stderr, "ignoring bad DINESIM_SEED %q\n", v)
			return 0
		}
	}

	return seed
}
