package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// An interrupt cancels ctx; networks stop before their next unit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbnn",
		Short: "Biomolecular perceptrons and layered networks",
		Long: `dbnn simulates biochemical reaction networks used as perceptrons.

Each unit integrates the titration model
  dz1/dt = u - gamma*z1*z2 - phi*z1
  dz2/dt = v - gamma*z1*z2 - phi*z2
from given initial concentrations and fires when the final z1 reaches its
threshold. Units are stacked into layers whose binary outputs become the
initial concentrations of the next layer.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory (run history lives in <root>/.dbnn)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (default from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSolveCmd(),
		newSteadyCmd(),
		newForwardCmd(),
		newClassifyCmd(),
		newSweepCmd(),
		newHistoryCmd(),
		newConfigCmd(),
	)

	return rootCmd
}
