package chain

import (
	"errors"
	"fmt"
	"time"
)

// Explorer holds the block explorer endpoints for a chain.
type Explorer struct {
	Name       string `yaml:"name"`
	BaseURL    string `yaml:"base_url"`
	APIURL     string `yaml:"api_url"`
	TxURL      string `yaml:"tx_url"`
	AddressURL string `yaml:"address_url"`
	BlockURL   string `yaml:"block_url"`
}

// URL composes an explorer link for the given kind ("tx", "address",
// "block"). Unknown kinds fall back to the explorer base URL.
func (e Explorer) URL(kind, value string) string {
	switch kind {
	case "tx":
		return e.TxURL + value
	case "address":
		return e.AddressURL + value
	case "block":
		return e.BlockURL + value
	default:
		return e.BaseURL
	}
}

// Constants holds the protocol parameters that differ per chain.
type Constants struct {
	// GenesisTimestamp is the unix time the token contract launched on this
	// chain. Reward amplification decays linearly from it.
	GenesisTimestamp int64  `yaml:"genesis_timestamp"`
	BaseAMP          int64  `yaml:"base_amp"`
	SaltBytes        string `yaml:"salt_bytes"`
	BatchSaltBytes   string `yaml:"batch_salt_bytes"`
}

// Definition is the immutable configuration of one supported chain. A
// Definition is loaded once at startup, either from the built-in table or
// from a YAML manifest, and never mutated afterwards.
type Definition struct {
	ID                uint64            `yaml:"id"`
	Key               string            `yaml:"key"`
	Name              string            `yaml:"name"`
	ShortName         string            `yaml:"short_name"`
	NativeCurrency    string            `yaml:"native_currency"`
	DefaultEndpoint   string            `yaml:"default_endpoint"`
	FallbackEndpoints []string          `yaml:"fallback_endpoints"`
	Contracts         map[string]string `yaml:"contracts"`
	Events            map[string]string `yaml:"events"`
	Explorer          Explorer          `yaml:"explorer"`
	Constants         Constants         `yaml:"constants"`
	Databases         map[string]string `yaml:"databases"`
}

// Validate ensures that all required fields of the definition are set.
func (d Definition) Validate() error {
	if d.ID == 0 {
		return errors.New("id is required")
	}
	if d.Key == "" {
		return errors.New("key is required")
	}
	if d.Name == "" {
		return errors.New("name is required")
	}
	if d.ShortName == "" {
		return errors.New("short name is required")
	}
	if d.DefaultEndpoint == "" {
		return fmt.Errorf("chain %s: default endpoint is required", d.Key)
	}
	if len(d.FallbackEndpoints) == 0 {
		return fmt.Errorf("chain %s: at least one fallback endpoint is required", d.Key)
	}
	if len(d.Contracts) == 0 {
		return fmt.Errorf("chain %s: contract addresses are required", d.Key)
	}
	if len(d.Databases) == 0 {
		return fmt.Errorf("chain %s: database namespaces are required", d.Key)
	}
	if d.Explorer.BaseURL == "" || d.Explorer.APIURL == "" {
		return fmt.Errorf("chain %s: explorer base and API URLs are required", d.Key)
	}
	if d.Constants.GenesisTimestamp == 0 {
		return fmt.Errorf("chain %s: genesis timestamp is required", d.Key)
	}

	return nil
}

// Endpoints returns the built-in endpoint list, default first.
func (d Definition) Endpoints() []string {
	out := make([]string, 0, len(d.FallbackEndpoints)+1)
	out = append(out, d.DefaultEndpoint)
	out = append(out, d.FallbackEndpoints...)

	return out
}

// ContractAddress looks up a contract address by its logical name.
func (d Definition) ContractAddress(name string) (string, bool) {
	addr, ok := d.Contracts[name]

	return addr, ok
}

// DatabaseName looks up a storage namespace by its logical dataset name.
func (d Definition) DatabaseName(dataset string) (string, bool) {
	name, ok := d.Databases[dataset]

	return name, ok
}

// DaysSinceGenesis returns the number of whole days elapsed since the token
// genesis on this chain.
func (d Definition) DaysSinceGenesis(now time.Time) int64 {
	elapsed := now.Unix() - d.Constants.GenesisTimestamp
	if elapsed < 0 {
		return 0
	}

	return elapsed / (24 * 60 * 60)
}

// CurrentAMP returns the reward amplification at the given time. AMP decays
// by one per day from BaseAMP and never goes below zero.
func (d Definition) CurrentAMP(now time.Time) int64 {
	amp := d.Constants.BaseAMP - d.DaysSinceGenesis(now)
	if amp < 0 {
		return 0
	}

	return amp
}
