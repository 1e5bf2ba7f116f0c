package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/dbnn/internal/network"
	"github.com/nvandessel/dbnn/internal/store"
	"github.com/spf13/cobra"
)

func newForwardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forward INPUT1 INPUT2",
		Short: "Propagate two input concentrations through a network",
		Long: `Run a forward pass and print the final layer's binary outputs.

Examples:
  dbnn forward --preset two-layer 1.0 1.5
  dbnn forward --config net.yaml --trace 3 0
  dbnn forward --preset biosensor --record -- 2.5 0.4`,
		Args: cobra.ExactArgs(2),
		RunE: runForward,
	}
	addNetworkFlags(cmd)
	cmd.Flags().Bool("trace", false, "Show every layer's carrier and unit decisions")
	cmd.Flags().Bool("record", false, "Record the run in the history")
	return cmd
}

func runForward(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	showTrace, _ := cmd.Flags().GetBool("trace")
	record, _ := cmd.Flags().GetBool("record")

	inputs, err := parseInputs(args)
	if err != nil {
		return err
	}
	cfg, err := loadNetworkConfig(cmd)
	if err != nil {
		return err
	}
	n, closer, err := buildNetwork(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	tr, err := n.Trace(cmd.Context(), inputs)
	if err != nil {
		return fmt.Errorf("forward pass failed: %w", err)
	}
	out := tr.Output()

	var run *store.Run
	if record {
		r := store.NewRun(cfg.Hash(), network.Carrier{inputs[0], inputs[1]}, out, nil)
		if err := recordRun(cmd, &r); err != nil {
			return err
		}
		run = &r
	}

	w := cmd.OutOrStdout()
	if jsonOut {
		result := map[string]any{"outputs": out}
		if showTrace {
			result["trace"] = tr
		}
		if run != nil {
			result["run_id"] = run.ID.String()
		}
		return json.NewEncoder(w).Encode(result)
	}

	if showTrace {
		for i, c := range tr.Carriers {
			fmt.Fprintf(w, "layer %d  carrier (%g, %g)\n", i, c[0], c[1])
			for j, d := range tr.Decisions[i] {
				label := cfg.Layers[i][j].Name
				if label == "" {
					label = fmt.Sprintf("unit %d", j)
				}
				fmt.Fprintf(w, "  %-12s z1=%-12.6g z2=%-12.6g -> %d\n", label, d.FinalZ1, d.FinalZ2, d.Output)
			}
		}
	}
	fmt.Fprintf(w, "outputs: %s\n", formatOutputs(out))
	if run != nil {
		fmt.Fprintf(w, "recorded run %s\n", run.ID)
	}
	return nil
}

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify INPUT1 INPUT2",
		Short: "Classify a sample with a biosensor network",
		Long: `Run a forward pass and reduce the final layer to a single decision:
positive (1) when any final unit fires, negative (0) otherwise.

Examples:
  dbnn classify --preset biosensor 2.1 0.3
  dbnn classify --config sensor.yaml --record 0.4 0.1`,
		Args: cobra.ExactArgs(2),
		RunE: runClassify,
	}
	addNetworkFlags(cmd)
	cmd.Flags().Bool("record", false, "Record the run in the history")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	record, _ := cmd.Flags().GetBool("record")

	inputs, err := parseInputs(args)
	if err != nil {
		return err
	}
	cfg, err := loadNetworkConfig(cmd)
	if err != nil {
		return err
	}
	n, closer, err := buildNetwork(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	c, err := n.Classify(cmd.Context(), inputs)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	decision, out := c.Decision, c.Outputs

	var run *store.Run
	if record {
		r := store.NewRun(cfg.Hash(), network.Carrier{inputs[0], inputs[1]}, out, &decision)
		if err := recordRun(cmd, &r); err != nil {
			return err
		}
		run = &r
	}

	w := cmd.OutOrStdout()
	if jsonOut {
		result := map[string]any{"decision": decision, "outputs": out}
		if run != nil {
			result["run_id"] = run.ID.String()
		}
		return json.NewEncoder(w).Encode(result)
	}

	verdict := "negative"
	if decision == 1 {
		verdict = "positive"
	}
	fmt.Fprintf(w, "%s (%d)  outputs: %s\n", verdict, decision, formatOutputs(out))
	if run != nil {
		fmt.Fprintf(w, "recorded run %s\n", run.ID)
	}
	return nil
}

func recordRun(cmd *cobra.Command, run *store.Run) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Record(cmd.Context(), run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}
