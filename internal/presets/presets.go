// Package presets ships ready-made network configurations.
package presets

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/nvandessel/dbnn/internal/config"
)

//go:embed networks/*.yaml
var networks embed.FS

// ErrUnknownPreset is returned by Load for a name with no preset.
var ErrUnknownPreset = errors.New("unknown preset")

// Names returns the available preset names in sorted order.
func Names() []string {
	entries, err := networks.ReadDir("networks")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Source returns the raw YAML of a preset.
func Source(name string) ([]byte, error) {
	data, err := networks.ReadFile(path.Join("networks", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Load parses a preset over the default configuration.
func Load(name string) (*config.Config, error) {
	data, err := Source(name)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing preset %s: %w", name, err)
	}
	return cfg, nil
}
