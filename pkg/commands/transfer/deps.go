// Package transfer provides the CLI command moving tokens with a balance check.
package transfer

import (
	"context"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	tokentransfer "github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/transfer"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Transferer is the subset of tokentransfer.Transferer the command uses.
type Transferer interface {
	Transfer(ctx context.Context, intent tokentransfer.Intent) (tokentransfer.Result, error)
}

var _ Transferer = (*tokentransfer.Transferer)(nil)

// TransfererFactoryFunc creates the Transferer submitting on chain.
type TransfererFactoryFunc func(lggr logger.Logger, chain starknet.Chain) Transferer

func defaultTransfererFactory(lggr logger.Logger, chain starknet.Chain) Transferer {
	return tokentransfer.New(lggr, chain.Client)
}

// Deps holds the injectable dependencies for the transfer command.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ChainLoader loads the chain selected by the network flags.
	// Default: chainenv.Load
	ChainLoader chainenv.LoaderFunc

	// TransfererFactory creates the Transferer.
	// Default: tokentransfer.New over the chain's client
	TransfererFactory TransfererFactoryFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ChainLoader == nil {
		d.ChainLoader = chainenv.Load
	}
	if d.TransfererFactory == nil {
		d.TransfererFactory = defaultTransfererFactory
	}
}
