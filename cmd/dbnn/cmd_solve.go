package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nvandessel/dbnn/internal/constants"
	"github.com/nvandessel/dbnn/internal/export"
	"github.com/nvandessel/dbnn/internal/logging"
	"github.com/nvandessel/dbnn/internal/ode"
	"github.com/nvandessel/dbnn/internal/perceptron"
	"github.com/nvandessel/dbnn/internal/reaction"
	"github.com/spf13/cobra"
)

// addUnitFlags registers the rate constant and threshold flags of one unit.
func addUnitFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("u", 5, "Production rate of z1")
	cmd.Flags().Float64("v", 3, "Production rate of z2")
	cmd.Flags().Float64("gamma", 2, "Titration rate")
	cmd.Flags().Float64("phi", 0.5, "Degradation rate")
	cmd.Flags().Float64("threshold", constants.DefaultThreshold, "Decision threshold on final z1")
}

func unitParams(cmd *cobra.Command) perceptron.Params {
	u, _ := cmd.Flags().GetFloat64("u")
	v, _ := cmd.Flags().GetFloat64("v")
	gamma, _ := cmd.Flags().GetFloat64("gamma")
	phi, _ := cmd.Flags().GetFloat64("phi")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	return perceptron.Params{
		Params:    reaction.Params{U: u, V: v, Gamma: gamma, Phi: phi},
		Threshold: threshold,
	}
}

// addSolverFlags registers the integration interval and tolerance flags.
func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("t-start", constants.DefaultTStart, "Start of the integration interval")
	cmd.Flags().Float64("t-end", constants.DefaultTEnd, "End of the integration interval")
	cmd.Flags().Float64("rel-tol", constants.DefaultRelTol, "Relative error tolerance")
	cmd.Flags().Float64("abs-tol", constants.DefaultAbsTol, "Absolute error tolerance")
}

func solverSettings(cmd *cobra.Command) (perceptron.TimeSpan, ode.Options) {
	start, _ := cmd.Flags().GetFloat64("t-start")
	end, _ := cmd.Flags().GetFloat64("t-end")
	opts := ode.DefaultOptions()
	opts.RelTol, _ = cmd.Flags().GetFloat64("rel-tol")
	opts.AbsTol, _ = cmd.Flags().GetFloat64("abs-tol")
	return perceptron.TimeSpan{Start: start, End: end}, opts
}

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Integrate one perceptron and print its trajectory",
		Long: `Integrate a single unit from (z1, z2) and print the concentrations at
evenly spaced times, followed by the unit's decision.

Examples:
  dbnn solve --u 5 --v 3 --gamma 2 --phi 0.5 --t-end 1
  dbnn solve --threshold 1.5 --format csv --out trajectory.csv
  dbnn solve --format arrow --out trajectory.arrow`,
		Args: cobra.NoArgs,
		RunE: runSolve,
	}
	addUnitFlags(cmd)
	addSolverFlags(cmd)
	cmd.Flags().Float64("z1", 0, "Initial z1 concentration")
	cmd.Flags().Float64("z2", 0, "Initial z2 concentration")
	cmd.Flags().Int("samples", constants.DefaultSamples, "Number of output times")
	cmd.Flags().String("format", "table", "Output format: table, csv, json, arrow")
	cmd.Flags().String("out", "", "Write to file instead of stdout")
	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	samples, _ := cmd.Flags().GetInt("samples")
	z10, _ := cmd.Flags().GetFloat64("z1")
	z20, _ := cmd.Flags().GetFloat64("z2")

	if samples < 2 {
		return fmt.Errorf("--samples must be at least 2, got %d", samples)
	}
	if jsonOut && format == "table" {
		format = string(export.FormatJSON)
	}

	p, err := perceptron.New(unitParams(cmd))
	if err != nil {
		return err
	}
	span, opts := solverSettings(cmd)
	p = p.WithSolverOptions(opts)

	logger := newLogger(cmd, logLevel(cmd, "info"))
	tr, err := p.Solve(z10, z20, span, span.Grid(samples))
	if err != nil {
		return err
	}
	logger.Log(cmd.Context(), logging.LevelTrace, "unit integrated", "unit", p.String(),
		"accepted", tr.Stats.Accepted, "rejected", tr.Stats.Rejected,
		"evaluations", tr.Stats.Evaluations)

	w := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	series := export.NewSeries(p, z10, z20, span, tr)
	if format == "table" {
		writeTable(w, series)
	} else {
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		if err := export.Write(w, f, series); err != nil {
			return err
		}
	}

	if outPath != "" {
		if jsonOut {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"path":   outPath,
				"format": format,
				"output": series.Output(),
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Trajectory written to %s\n", outPath)
	}
	return nil
}

func writeTable(w io.Writer, s export.Series) {
	z1, z2 := s.Trajectory.Z1(), s.Trajectory.Z2()
	fmt.Fprintf(w, "%-12s %-14s %-14s\n", "t", "z1", "z2")
	for i, t := range s.Trajectory.T {
		fmt.Fprintf(w, "%-12.6g %-14.8g %-14.8g\n", t, z1[i], z2[i])
	}
	final, _ := s.Trajectory.Final()
	fmt.Fprintf(w, "\nfinal z1 = %g, threshold = %g, output = %d\n", final, s.Unit.Threshold(), s.Output())
}
