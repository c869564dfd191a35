package chain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML representation of a chain configuration file.
type Manifest struct {
	Chains []Definition `yaml:"chains"`
}

// LoadOption modifies the manifest loading behavior.
type LoadOption func(*loadConfig)

type loadConfig struct {
	builtins bool
}

// WithBuiltins seeds the loaded registry with the compiled-in chain table.
// Manifest entries with matching keys override the built-in definition.
func WithBuiltins() LoadOption {
	return func(cfg *loadConfig) {
		cfg.builtins = true
	}
}

// Load reads the given manifest files in order and merges them into a single
// registry. Later files overwrite earlier definitions with the same key. The
// merged result is validated as a whole.
func Load(filePaths []string, opts ...LoadOption) (*Registry, error) {
	loadCfg := &loadConfig{}
	for _, opt := range opts {
		opt(loadCfg)
	}

	var defs []Definition
	if loadCfg.builtins {
		defs = BuiltinDefinitions()
	}

	for _, fp := range filePaths {
		data, err := os.ReadFile(fp)
		if err != nil {
			return nil, fmt.Errorf("failed to read chain manifest: %w", err)
		}

		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chain manifest %s: %w", fp, err)
		}

		defs = append(defs, m.Chains...)
	}

	reg, err := NewRegistry(defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to validate chain configuration: %w", err)
	}

	return reg, nil
}
