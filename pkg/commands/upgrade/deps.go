// Package upgrade provides CLI commands driving the upgrade timelock of Starknet contracts.
package upgrade

import (
	"context"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	timelock "github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/upgrade"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Coordinator is the subset of timelock.Coordinator the commands use.
type Coordinator interface {
	StatusBatch(ctx context.Context, contracts []*felt.Felt) []timelock.Status
	ScheduleBatch(ctx context.Context, reqs []timelock.ScheduleRequest) []timelock.ScheduleResult
	Execute(ctx context.Context, contract *felt.Felt) (timelock.Result, error)
	Cancel(ctx context.Context, contract *felt.Felt) (timelock.Result, error)
	SetDelay(ctx context.Context, contract *felt.Felt, delaySeconds uint32) (timelock.Result, error)
}

var _ Coordinator = (*timelock.Coordinator)(nil)

// CoordinatorFactoryFunc creates the Coordinator driving contracts on chain.
type CoordinatorFactoryFunc func(lggr logger.Logger, chain starknet.Chain) Coordinator

func defaultCoordinatorFactory(lggr logger.Logger, chain starknet.Chain) Coordinator {
	return timelock.NewCoordinator(lggr, chain.Client)
}

// Deps holds the injectable dependencies for upgrade commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ChainLoader loads the chain selected by the network flags.
	// Default: chainenv.Load
	ChainLoader chainenv.LoaderFunc

	// CoordinatorFactory creates the Coordinator.
	// Default: timelock.NewCoordinator over the chain's client
	CoordinatorFactory CoordinatorFactoryFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ChainLoader == nil {
		d.ChainLoader = chainenv.Load
	}
	if d.CoordinatorFactory == nil {
		d.CoordinatorFactory = defaultCoordinatorFactory
	}
}
