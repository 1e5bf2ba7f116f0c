// Package config provides configuration loading for dbnn.
// A configuration file describes one network (its layers and the rate
// constants and threshold of every unit) together with the solver and
// runtime settings used to evaluate it. Files are YAML; a few settings can
// be overridden from the environment.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/dbnn/internal/constants"
	"github.com/nvandessel/dbnn/internal/logging"
	"github.com/nvandessel/dbnn/internal/memo"
	"github.com/nvandessel/dbnn/internal/network"
	"github.com/nvandessel/dbnn/internal/ode"
	"github.com/nvandessel/dbnn/internal/perceptron"
	"gopkg.in/yaml.v3"
)

// Config contains all dbnn configuration settings.
type Config struct {
	// TimeSpan is the integration interval of every unit.
	TimeSpan ode.Span `json:"time_span" yaml:"time_span"`

	// Samples is the number of evenly spaced output times every unit is
	// integrated on. The decision is read at the last one, the span end.
	Samples int `json:"samples" yaml:"samples"`

	// Solver tunes the adaptive integrator.
	Solver ode.Options `json:"solver" yaml:"solver"`

	// Workers is the number of units of one layer evaluated concurrently.
	Workers int `json:"workers" yaml:"workers"`

	// CacheSize is the number of memoized unit decisions. 0 disables caching.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Layers lists the network's layers in evaluation order.
	Layers [][]UnitConfig `json:"layers" yaml:"layers"`
}

// LoggingConfig configures dbnn's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .dbnn/decisions.jsonl.
	// "trace" additionally logs the solver statistics of every unit.
	Level string `json:"level" yaml:"level"`
}

// UnitConfig describes one perceptron.
type UnitConfig struct {
	// Name is an optional label used in logs and reports.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	perceptron.Params `yaml:",inline"`
}

// Default returns a Config with sensible defaults and no layers.
func Default() *Config {
	return &Config{
		TimeSpan:  perceptron.DefaultTimeSpan,
		Samples:   constants.DefaultSamples,
		Solver:    ode.DefaultOptions(),
		Workers:   constants.DefaultWorkers,
		CacheSize: constants.DefaultCacheSize,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.dbnn/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".dbnn", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	ApplyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Settings
// absent from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return config, nil
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration describes a buildable network.
func (c *Config) Validate() error {
	if err := c.TimeSpan.Validate(); err != nil {
		return fmt.Errorf("time_span: %w", err)
	}
	if c.Samples < 2 {
		return fmt.Errorf("samples must be at least 2, got %d", c.Samples)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if len(c.Layers) == 0 {
		return fmt.Errorf("layers: %w: network has no layers", network.ErrEmptyLayer)
	}
	for i, layer := range c.Layers {
		if len(layer) == 0 {
			return fmt.Errorf("layers[%d]: %w: layer has no units", i, network.ErrEmptyLayer)
		}
		for j, u := range layer {
			if _, err := perceptron.New(u.Params); err != nil {
				return fmt.Errorf("layers[%d][%d]%s: %w", i, j, u.label(), err)
			}
		}
	}
	return nil
}

func (u UnitConfig) label() string {
	if u.Name == "" {
		return ""
	}
	return " (" + u.Name + ")"
}

// Perceptrons builds the units of every layer with the configured solver
// and sample grid.
func (c *Config) Perceptrons() ([]network.Layer, error) {
	layers := make([]network.Layer, len(c.Layers))
	for i, layer := range c.Layers {
		layers[i] = make(network.Layer, len(layer))
		for j, u := range layer {
			p, err := perceptron.New(u.Params)
			if err != nil {
				return nil, fmt.Errorf("layers[%d][%d]%s: %w", i, j, u.label(), err)
			}
			layers[i][j] = p.WithSolverOptions(c.Solver).WithSamples(c.Samples)
		}
	}
	return layers, nil
}

// Build validates the configuration and constructs the network it
// describes. Extra options are applied after the configured ones.
func (c *Config) Build(logger *slog.Logger, opts ...network.Option) (*network.Network, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	layers, err := c.Perceptrons()
	if err != nil {
		return nil, err
	}

	base := []network.Option{
		network.WithTimeSpan(c.TimeSpan),
		network.WithWorkers(c.Workers),
		network.WithLogger(logger),
	}
	if c.CacheSize > 0 {
		cache, err := memo.New(c.CacheSize)
		if err != nil {
			return nil, err
		}
		base = append(base, network.WithCache(cache))
	}

	return network.New(layers, append(base, opts...)...)
}

// Hash fingerprints the settings that determine the network's outputs:
// the time span, the sample grid, the solver and the layers. Runtime
// settings such as workers, caching and logging do not affect it.
func (c *Config) Hash() string {
	data, err := yaml.Marshal(struct {
		TimeSpan ode.Span       `yaml:"time_span"`
		Samples  int            `yaml:"samples"`
		Solver   ode.Options    `yaml:"solver"`
		Layers   [][]UnitConfig `yaml:"layers"`
	}{c.TimeSpan, c.Samples, c.Solver, c.Layers})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// ApplyEnvOverrides applies environment variable overrides to the config.
// Values that do not parse are ignored.
func ApplyEnvOverrides(config *Config) {
	if v := os.Getenv("DBNN_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("DBNN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Workers = n
		}
	}

	if v := os.Getenv("DBNN_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.CacheSize = n
		}
	}

	if v := os.Getenv("DBNN_T_END"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.TimeSpan.End = f
		}
	}

	if v := os.Getenv("DBNN_REL_TOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Solver.RelTol = f
		}
	}

	if v := os.Getenv("DBNN_ABS_TOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Solver.AbsTol = f
		}
	}
}
