package network

import (
	"fmt"
	"maps"
	"slices"

	"github.com/smartcontractkit/starknet-deployments-framework/internal/configfile"
)

// Manifest is the file representation of network configuration.
type Manifest struct {
	Networks []Network `yaml:"networks" toml:"networks"`
}

// Config is a collection of networks, addressable by name or chain selector.
type Config struct {
	networks map[uint64]Network
}

// NewConfig creates a new config from a slice of networks. Any duplicate chain selectors will
// be overwritten.
func NewConfig(networks []Network) *Config {
	nmap := make(map[uint64]Network, len(networks))
	for _, network := range networks {
		nmap[network.ChainSelector] = network
	}

	return &Config{networks: nmap}
}

// Load loads the networks of each file, YAML or TOML by extension, merges them and validates the
// result. Later files override networks of earlier files with the same chain selector.
func Load(filePaths ...string) (*Config, error) {
	cfg := NewConfig(nil)
	for _, path := range filePaths {
		var m Manifest
		if err := configfile.Decode(path, &m); err != nil {
			return nil, err
		}
		cfg.Merge(NewConfig(m.Networks))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that all networks are valid and that names are unique.
func (c *Config) Validate() error {
	names := make(map[string]uint64, len(c.networks))
	for _, network := range c.Networks() {
		if err := network.Validate(); err != nil {
			return fmt.Errorf("network %q (%d): %w", network.Name, network.ChainSelector, err)
		}
		if other, ok := names[network.Name]; ok {
			return fmt.Errorf("network name %q is used by chain selectors %d and %d",
				network.Name, other, network.ChainSelector)
		}
		names[network.Name] = network.ChainSelector
	}

	return nil
}

// Networks returns all networks sorted by chain selector.
func (c *Config) Networks() []Network {
	networks := make([]Network, 0, len(c.networks))
	for _, s := range c.ChainSelectors() {
		networks = append(networks, c.networks[s])
	}

	return networks
}

// ChainSelectors returns the sorted chain selectors of the config.
func (c *Config) ChainSelectors() []uint64 {
	return slices.Sorted(maps.Keys(c.networks))
}

// NetworkBySelector retrieves a network by its chain selector.
func (c *Config) NetworkBySelector(selector uint64) (Network, error) {
	network, ok := c.networks[selector]
	if !ok {
		return Network{}, fmt.Errorf("network with selector %d not found in configuration", selector)
	}

	return network, nil
}

// NetworkByName retrieves a network by its name.
func (c *Config) NetworkByName(name string) (Network, error) {
	for _, network := range c.networks {
		if network.Name == name {
			return network, nil
		}
	}

	return Network{}, fmt.Errorf("network %q not found in configuration", name)
}

// Merge merges another config into the current config, overwriting networks with the same chain
// selector.
func (c *Config) Merge(other *Config) {
	maps.Copy(c.networks, other.networks)
}
