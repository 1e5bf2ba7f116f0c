package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/dbnn/internal/perceptron"
	"github.com/spf13/cobra"
)

func newSteadyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steady",
		Short: "Print the analytic steady state of one unit",
		Long: `Compute the fixed point the unit's concentrations converge to and the
decision a long enough integration settles on.

Examples:
  dbnn steady --u 5 --v 3 --gamma 2 --phi 0.5 --threshold 1.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			p, err := perceptron.New(unitParams(cmd))
			if err != nil {
				return err
			}
			z1, z2, ok := p.Params().SteadyState()
			output := 0
			if ok {
				output = p.Activation(z1)
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]any{"exists": ok}
				if ok {
					result["z1"] = z1
					result["z2"] = z2
					result["output"] = output
				}
				return json.NewEncoder(w).Encode(result)
			}

			if !ok {
				fmt.Fprintf(w, "no stable steady state for %s\n", p.Params().Params)
				return nil
			}
			fmt.Fprintf(w, "z1* = %g\nz2* = %g\noutput = %d\n", z1, z2, output)
			return nil
		},
	}
	addUnitFlags(cmd)
	return cmd
}
