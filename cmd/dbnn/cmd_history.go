package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nvandessel/dbnn/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded runs",
		Long: `List runs recorded with forward --record or classify --record, most
recent first, or show a single run by ID.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		run, err := s.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if jsonOut {
			return json.NewEncoder(w).Encode(run)
		}
		printRun(cmd, *run)
		return nil
	}

	runs, err := s.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOut {
		if runs == nil {
			runs = []store.Run{}
		}
		return json.NewEncoder(w).Encode(map[string]any{"runs": runs, "count": len(runs)})
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		printRun(cmd, r)
	}
	return nil
}

func printRun(cmd *cobra.Command, r store.Run) {
	decision := "-"
	if r.Decision != nil {
		decision = fmt.Sprint(*r.Decision)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  network=%s  inputs=(%g, %g)  outputs=[%s]  decision=%s\n",
		r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ID, r.Network,
		r.Inputs[0], r.Inputs[1], formatOutputs(r.Outputs), decision)
}
