// Package config loads runtime settings from a YAML file with environment
// overrides. Chain definitions live in package chain; this covers the knobs
// a deployment tunes per installation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xenscan/chainrpc/chain"
	"github.com/xenscan/chainrpc/health"
)

// envPrefix namespaces environment overrides, e.g. CHAINRPC_DEFAULTCHAIN.
const envPrefix = "CHAINRPC"

// HealthSettings tunes the endpoint blacklist policy.
type HealthSettings struct {
	MaxFailures       int           `mapstructure:"maxFailures"`
	BlacklistDuration time.Duration `mapstructure:"blacklistDuration"`
}

// Settings is the validated runtime configuration.
type Settings struct {
	// DefaultChain is the chain selected when no preference is persisted.
	DefaultChain string `mapstructure:"defaultChain"`

	Health HealthSettings `mapstructure:"health"`

	// RateLimits maps service names ("rpc", "explorer", ...) to requests
	// per second, overriding the built-in defaults.
	RateLimits map[string]float64 `mapstructure:"rateLimits"`

	// Endpoints seeds per-chain custom RPC endpoint lists.
	Endpoints map[string][]string `mapstructure:"endpoints"`
}

// Default returns the settings used when no config file is present.
func Default() *Settings {
	return &Settings{
		DefaultChain: chain.DefaultChainKey,
		Health: HealthSettings{
			MaxFailures:       health.DefaultMaxFailures,
			BlacklistDuration: health.DefaultBlacklistDuration,
		},
		RateLimits: map[string]float64{},
		Endpoints:  map[string][]string{},
	}
}

// Load reads settings from the YAML file at path, layered over defaults and
// under CHAINRPC_* environment overrides. An empty path skips the file and
// loads defaults plus environment only.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("defaultChain", chain.DefaultChainKey)
	v.SetDefault("health.maxFailures", health.DefaultMaxFailures)
	v.SetDefault("health.blacklistDuration", health.DefaultBlacklistDuration)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that would misconfigure the health tracker.
func (s *Settings) Validate() error {
	if s.DefaultChain == "" {
		return fmt.Errorf("defaultChain is required")
	}
	if s.Health.MaxFailures < 1 {
		return fmt.Errorf("health.maxFailures must be at least 1, got %d", s.Health.MaxFailures)
	}
	if s.Health.BlacklistDuration <= 0 {
		return fmt.Errorf("health.blacklistDuration must be positive, got %s", s.Health.BlacklistDuration)
	}

	return nil
}
