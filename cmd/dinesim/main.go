// The dinesim command runs a restaurant robot fleet simulation from the
// command line.
package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "dinesim",
	Short: "Time-accelerated restaurant robot fleet simulation.",
	Long: `dinesim simulates weeks of restaurant operation in minutes of ` +
		`real time. Guests arrive following configurable demand patterns, ` +
		`and a robot fleet greets, serves, and cleans up after them.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
