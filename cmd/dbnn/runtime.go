package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/nvandessel/dbnn/internal/config"
	"github.com/nvandessel/dbnn/internal/logging"
	"github.com/nvandessel/dbnn/internal/network"
	"github.com/nvandessel/dbnn/internal/presets"
	"github.com/nvandessel/dbnn/internal/store"
	"github.com/spf13/cobra"
)

// addNetworkFlags registers the flags selecting a network definition.
func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Network configuration file (YAML)")
	cmd.Flags().String("preset", "", "Built-in network preset")
}

// loadNetworkConfig resolves --config or --preset into a configuration with
// environment overrides applied.
func loadNetworkConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	preset, _ := cmd.Flags().GetString("preset")

	var (
		cfg *config.Config
		err error
	)
	switch {
	case path != "" && preset != "":
		return nil, errors.New("--config and --preset are mutually exclusive")
	case path != "":
		cfg, err = config.LoadFromFile(path)
	case preset != "":
		cfg, err = presets.Load(preset)
	default:
		return nil, fmt.Errorf("a network is required: pass --config FILE or --preset NAME (presets: %v)", presets.Names())
	}
	if err != nil {
		return nil, err
	}

	config.ApplyEnvOverrides(cfg)
	return cfg, nil
}

// logLevel returns --log-level when set, else fallback.
func logLevel(cmd *cobra.Command, fallback string) string {
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		return lvl
	}
	return fallback
}

// newLogger creates the operational logger on the command's stderr.
func newLogger(cmd *cobra.Command, level string) *slog.Logger {
	return logging.NewLogger(level, cmd.ErrOrStderr())
}

// buildNetwork constructs the configured network with logging wired in.
// The returned closer releases the decision log.
func buildNetwork(cmd *cobra.Command, cfg *config.Config) (*network.Network, io.Closer, error) {
	root, _ := cmd.Flags().GetString("root")
	level := logLevel(cmd, cfg.Logging.Level)

	dl := logging.NewDecisionLogger(store.LocalPath(root), level)
	n, err := cfg.Build(newLogger(cmd, level), network.WithDecisionLogger(dl))
	if err != nil {
		dl.Close()
		return nil, nil, err
	}
	return n, closerFunc(dl.Close), nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// parseInputs parses the two positional input concentrations.
func parseInputs(args []string) ([]float64, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: expected 2 inputs, got %d", network.ErrDimensionMismatch, len(args))
	}
	inputs := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input %q: %w", a, err)
		}
		inputs[i] = v
	}
	return inputs, nil
}

// openStore opens the run history under --root.
func openStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	root, _ := cmd.Flags().GetString("root")
	s, err := store.NewSQLiteRunStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return s, nil
}

func formatOutputs(out []int) string {
	s := ""
	for i, o := range out {
		if i > 0 {
			s += " "
		}
		s += strconv.Itoa(o)
	}
	return s
}
