package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	chain_selectors "github.com/smartcontractkit/chain-selectors"

	"github.com/smartcontractkit/starknet-deployments-framework/chain"
	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// RPCConfig configures one endpoint of the pool managed by the RPCChainProvider.
type RPCConfig struct {
	RPCEndpointConfig

	Timeout             time.Duration
	LargePayloadTimeout time.Duration
}

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: the network name used in logs and errors
	Name string
	// Required: at least one RPC, tried in the given order
	RPCs []RPCConfig
	// Optional: the account signing writes. Reads work without it.
	Signer *starknet.Signer
	// Optional: confirmation polling overrides
	Confirm starknet.ConfirmConfig
	// StickyFallback promotes the endpoint that answered after a fallback to the front of the pool.
	StickyFallback bool

	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.Name == "" {
		return errors.New("network name is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one rpc is required")
	}
	for i, rpc := range c.RPCs {
		if err := rpc.validate(); err != nil {
			return fmt.Errorf("rpc at index %d: %w", i, err)
		}
	}

	return nil
}

var _ chain.Provider = (*RPCChainProvider)(nil)

// RPCChainProvider provides a Starknet chain whose client talks to a pool of JSON-RPC nodes.
type RPCChainProvider struct {
	// Starknet chain selector, used to identify the chain.
	selector uint64

	config RPCChainProviderConfig

	// chain is set up by Initialize.
	chain *starknet.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider with the given selector and configuration.
func NewRPCChainProvider(selector uint64, config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize validates the configuration and builds the MultiClient over the configured RPCs.
// Calling it again returns the already initialized chain.
func (p *RPCChainProvider) Initialize(_ context.Context) (starknet.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil
	}

	if err := p.config.validate(); err != nil {
		return starknet.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	family, err := chain_selectors.GetSelectorFamily(p.selector)
	if err != nil {
		return starknet.Chain{}, fmt.Errorf("failed to get family for selector %d: %w", p.selector, err)
	}
	if family != chain_selectors.FamilyStarknet {
		return starknet.Chain{}, fmt.Errorf("selector %d belongs to family %q, not %q",
			p.selector, family, chain_selectors.FamilyStarknet)
	}

	pool := make([]starknet.PoolEndpoint, 0, len(p.config.RPCs))
	for i, rpc := range p.config.RPCs {
		ep, err := NewRPCEndpoint(rpc.RPCEndpointConfig)
		if err != nil {
			return starknet.Chain{}, fmt.Errorf("rpc at index %d: %w", i, err)
		}
		pool = append(pool, starknet.PoolEndpoint{
			Endpoint: ep,
			Config: starknet.EndpointConfig{
				Timeout:             rpc.Timeout,
				LargePayloadTimeout: rpc.LargePayloadTimeout,
			},
		})
	}

	lggr := p.config.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}

	opts := []starknet.MultiClientOption{starknet.WithConfirmConfig(p.config.Confirm)}
	if p.config.Signer != nil {
		opts = append(opts, starknet.WithSigner(*p.config.Signer))
	}
	if p.config.StickyFallback {
		opts = append(opts, starknet.WithStickyFallback())
	}

	client, err := starknet.NewMultiClient(lggr, p.config.Name, pool, opts...)
	if err != nil {
		return starknet.Chain{}, err
	}

	p.chain = &starknet.Chain{
		Selector: p.selector,
		Name:     p.config.Name,
		Client:   client,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "Starknet RPC Chain Provider"
}

// ChainSelector returns the chain selector of the Starknet chain managed by this provider.
func (p *RPCChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns the chain managed by this provider. You must call Initialize before using
// this method.
func (p *RPCChainProvider) BlockChain() starknet.Chain {
	return *p.chain
}
