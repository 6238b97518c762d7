// Package chainenv loads the Starknet chain a command runs against from the network file and the
// account configuration.
package chainenv

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/chain"
	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/provider"
	"github.com/smartcontractkit/starknet-deployments-framework/config/env"
	"github.com/smartcontractkit/starknet-deployments-framework/config/network"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/flags"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Options select the network and the account of a command.
type Options struct {
	// NetworksPath is the network file.
	NetworksPath string
	// Network is the name of the network in the file.
	Network string
	// SecretsPath is the account file. Env vars are used when empty.
	SecretsPath string
	// RequireSigner fails the load when no account is configured.
	RequireSigner bool
}

// OptionsFromFlags reads the flags registered by flags.Network.
func OptionsFromFlags(cmd *cobra.Command, requireSigner bool) Options {
	return Options{
		NetworksPath:  flags.MustString(cmd.Flags().GetString("networks")),
		Network:       flags.MustString(cmd.Flags().GetString("network")),
		SecretsPath:   flags.MustString(cmd.Flags().GetString("secrets")),
		RequireSigner: requireSigner,
	}
}

// LoaderFunc loads the chain described by opts.
type LoaderFunc func(ctx context.Context, lggr logger.Logger, opts Options) (starknet.Chain, error)

// Load builds a provider for every network of the file and initializes the selected one.
func Load(ctx context.Context, lggr logger.Logger, opts Options) (starknet.Chain, error) {
	cfg, err := network.Load(opts.NetworksPath)
	if err != nil {
		return starknet.Chain{}, fmt.Errorf("failed to load networks: %w", err)
	}
	selected, err := cfg.NetworkByName(opts.Network)
	if err != nil {
		return starknet.Chain{}, err
	}

	signer, account, err := loadAccount(opts)
	if err != nil {
		return starknet.Chain{}, err
	}

	providers := make([]chain.Provider, 0, len(cfg.Networks()))
	for _, n := range cfg.Networks() {
		pcfg := n.ProviderConfig()
		pcfg.Logger = lggr
		if n.Name == selected.Name {
			pcfg.Signer = signer
		}
		for i := range pcfg.RPCs {
			pcfg.RPCs[i].CairoVersion = account.CairoVersion
			pcfg.RPCs[i].FeeMultiplier = account.FeeMultiplier
		}
		providers = append(providers, provider.NewRPCChainProvider(n.ChainSelector, pcfg))
	}

	return chain.NewLazyChains(lggr, providers...).GetBySelector(ctx, selected.ChainSelector)
}

func loadAccount(opts Options) (*starknet.Signer, env.StarknetConfig, error) {
	var (
		cfg *env.Config
		err error
	)
	if opts.SecretsPath != "" {
		cfg, err = env.Load(opts.SecretsPath)
	} else {
		cfg, err = env.LoadEnv()
	}
	if err != nil {
		return nil, env.StarknetConfig{}, fmt.Errorf("failed to load account configuration: %w", err)
	}

	account := cfg.Onchain.Starknet
	signer, err := account.Signer()
	switch {
	case err == nil:
		return &signer, account, nil
	case errors.Is(err, env.ErrNoAccount) && !opts.RequireSigner:
		return nil, account, nil
	default:
		return nil, env.StarknetConfig{}, err
	}
}
