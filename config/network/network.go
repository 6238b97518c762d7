package network

import (
	"errors"
	"fmt"
	"time"

	chain_selectors "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/provider"
	"github.com/smartcontractkit/starknet-deployments-framework/internal/configfile"
)

// Network is the configuration of one Starknet network: its endpoint pool and how writes are
// confirmed on it.
type Network struct {
	Name          string       `yaml:"name" toml:"name"`
	ChainSelector uint64       `yaml:"chain_selector" toml:"chain_selector"`
	RPCs          []RPC        `yaml:"rpcs" toml:"rpcs"`
	Confirmation  Confirmation `yaml:"confirmation" toml:"confirmation"`
	// StickyFallback keeps using the endpoint that answered after a fallback.
	StickyFallback bool `yaml:"sticky_fallback" toml:"sticky_fallback"`
}

// RPC is one endpoint of the pool. Endpoints are tried in the order they are listed.
type RPC struct {
	Name                string              `yaml:"name" toml:"name"`
	URL                 string              `yaml:"url" toml:"url"`
	Timeout             configfile.Duration `yaml:"timeout" toml:"timeout"`
	LargePayloadTimeout configfile.Duration `yaml:"large_payload_timeout" toml:"large_payload_timeout"`
}

// Confirmation configures the polling for terminal transaction statuses.
type Confirmation struct {
	PollInterval configfile.Duration `yaml:"poll_interval" toml:"poll_interval"`
	Timeout      configfile.Duration `yaml:"timeout" toml:"timeout"`
	// AcceptL1Only only accepts transactions once they are ACCEPTED_ON_L1.
	AcceptL1Only bool `yaml:"accept_l1_only" toml:"accept_l1_only"`
}

// ChainFamily returns the family of the network based on its chain selector.
func (n *Network) ChainFamily() (string, error) {
	return chain_selectors.GetSelectorFamily(n.ChainSelector)
}

// Validate validates the network configuration to ensure that all required fields are set and
// that the chain selector belongs to a Starknet chain.
func (n *Network) Validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}
	if n.ChainSelector == 0 {
		return errors.New("chain selector is required")
	}

	family, err := n.ChainFamily()
	if err != nil {
		return fmt.Errorf("unknown chain selector %d: %w", n.ChainSelector, err)
	}
	if family != chain_selectors.FamilyStarknet {
		return fmt.Errorf("chain selector %d belongs to family %q, want %q",
			n.ChainSelector, family, chain_selectors.FamilyStarknet)
	}

	if len(n.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}
	for i, rpc := range n.RPCs {
		if rpc.URL == "" {
			return fmt.Errorf("rpc %d: url is required", i)
		}
		for name, d := range map[string]time.Duration{
			"timeout":               rpc.Timeout.Duration,
			"large_payload_timeout": rpc.LargePayloadTimeout.Duration,
		} {
			if d < 0 {
				return fmt.Errorf("rpc %d: %s must not be negative", i, name)
			}
		}
	}
	if n.Confirmation.PollInterval.Duration < 0 || n.Confirmation.Timeout.Duration < 0 {
		return errors.New("confirmation durations must not be negative")
	}

	return nil
}

// ConfirmConfig returns the confirmation policy of the network. Unset durations are left to the
// MultiClient defaults.
func (n *Network) ConfirmConfig() starknet.ConfirmConfig {
	cfg := starknet.ConfirmConfig{
		PollInterval: n.Confirmation.PollInterval.Duration,
		Timeout:      n.Confirmation.Timeout.Duration,
	}
	if n.Confirmation.AcceptL1Only {
		cfg.Accepted = []starknet.TxStatus{starknet.TxStatusAcceptedOnL1}
	}

	return cfg
}

// ProviderConfig converts the network into the configuration of an RPCChainProvider.
func (n *Network) ProviderConfig() provider.RPCChainProviderConfig {
	rpcs := make([]provider.RPCConfig, 0, len(n.RPCs))
	for _, rpc := range n.RPCs {
		rpcs = append(rpcs, provider.RPCConfig{
			RPCEndpointConfig: provider.RPCEndpointConfig{
				Name: rpc.Name,
				URL:  rpc.URL,
			},
			Timeout:             rpc.Timeout.Duration,
			LargePayloadTimeout: rpc.LargePayloadTimeout.Duration,
		})
	}

	return provider.RPCChainProviderConfig{
		Name:           n.Name,
		RPCs:           rpcs,
		Confirm:        n.ConfirmConfig(),
		StickyFallback: n.StickyFallback,
	}
}
