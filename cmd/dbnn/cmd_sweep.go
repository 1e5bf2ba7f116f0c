package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/dbnn/internal/perceptron"
	"github.com/nvandessel/dbnn/internal/sweep"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Map a unit's dose-response over one parameter",
		Long: `Evaluate one unit over an evenly spaced grid of a rate constant or of the
initial z1 concentration and report where its decision switches.

Examples:
  dbnn sweep --param u --from 0 --to 10 --steps 11 --threshold 1.5
  dbnn sweep --param z1 --from 0 --to 5 --steps 51 --u 0 --v 0 --gamma 0 --phi 0.1 --threshold 1`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	}
	addUnitFlags(cmd)
	addSolverFlags(cmd)
	cmd.Flags().String("param", "u", "Swept parameter: u, v, gamma, phi, z1")
	cmd.Flags().Float64("from", 0, "First grid value")
	cmd.Flags().Float64("to", 10, "Last grid value")
	cmd.Flags().Int("steps", 11, "Number of grid values")
	cmd.Flags().Float64("z1", 0, "Initial z1 concentration (ignored when sweeping z1)")
	cmd.Flags().Float64("z2", 0, "Initial z2 concentration")
	cmd.Flags().Int("workers", 1, "Grid points evaluated concurrently")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	name, _ := cmd.Flags().GetString("param")
	from, _ := cmd.Flags().GetFloat64("from")
	to, _ := cmd.Flags().GetFloat64("to")
	steps, _ := cmd.Flags().GetInt("steps")

	param, err := sweep.ParseParam(name)
	if err != nil {
		return err
	}
	values, err := sweep.Values(from, to, steps)
	if err != nil {
		return err
	}

	base := unitParams(cmd)
	if _, err := perceptron.New(base); err != nil {
		return err
	}

	opts := sweep.DefaultOptions()
	opts.Span, opts.Solver = solverSettings(cmd)
	opts.Z10, _ = cmd.Flags().GetFloat64("z1")
	opts.Z20, _ = cmd.Flags().GetFloat64("z2")
	opts.Workers, _ = cmd.Flags().GetInt("workers")

	res, err := sweep.Run(cmd.Context(), base, param, values, opts)
	if err != nil {
		return err
	}
	at, switched := res.Transition()

	w := cmd.OutOrStdout()
	if jsonOut {
		result := map[string]any{
			"param":    res.Param,
			"points":   res.Points,
			"monotone": res.Monotone(),
		}
		if switched {
			result["transition"] = at
		}
		return json.NewEncoder(w).Encode(result)
	}

	fmt.Fprintf(w, "%-12s %-14s %-14s %s\n", string(param), "final z1", "final z2", "output")
	for _, p := range res.Points {
		fmt.Fprintf(w, "%-12.6g %-14.8g %-14.8g %d\n", p.Value, p.FinalZ1, p.FinalZ2, p.Output)
	}
	fmt.Fprintln(w)
	if switched {
		fmt.Fprintf(w, "decision switches at %s = %g\n", param, at)
	} else {
		fmt.Fprintln(w, "decision does not switch over the grid")
	}
	if !res.Monotone() {
		fmt.Fprintln(w, "warning: decision switches more than once")
	}
	return nil
}
