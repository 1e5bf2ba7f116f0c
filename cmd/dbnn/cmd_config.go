package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/dbnn/internal/config"
	"github.com/nvandessel/dbnn/internal/presets"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate network configurations",
		Long: `Inspect and validate network configurations.

Global defaults are read from ~/.dbnn/config.yaml; DBNN_* environment
variables override them.

Examples:
  dbnn config validate net.yaml   # Check a network file
  dbnn config show --preset biosensor
  dbnn config presets`,
	}

	cmd.AddCommand(
		newConfigValidateCmd(),
		newConfigShowCmd(),
		newConfigPresetsCmd(),
	)

	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a network configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.LoadFromFile(args[0])
			if err == nil {
				err = cfg.Validate()
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]any{"path": args[0], "valid": err == nil}
				if err != nil {
					result["error"] = err.Error()
				} else {
					result["hash"] = cfg.Hash()
					result["shape"] = layerShape(cfg)
				}
				if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
					return encErr
				}
				return err
			}

			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(w, "%s: valid (layers %v, hash %s)\n", args[0], layerShape(cfg), cfg.Hash())
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			path, _ := cmd.Flags().GetString("config")
			preset, _ := cmd.Flags().GetString("preset")
			var (
				cfg *config.Config
				err error
			)
			if path == "" && preset == "" {
				cfg, err = config.Load()
			} else {
				cfg, err = loadNetworkConfig(cmd)
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(cfg)
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	addNetworkFlags(cmd)
	return cmd
}

func newConfigPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in network presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			names := presets.Names()

			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(map[string]any{"presets": names})
			}
			for _, name := range names {
				cfg, err := presets.Load(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%-14s layers %v\n", name, layerShape(cfg))
			}
			return nil
		},
	}
}

func layerShape(cfg *config.Config) []int {
	shape := make([]int, len(cfg.Layers))
	for i, l := range cfg.Layers {
		shape[i] = len(l)
	}
	return shape
}
