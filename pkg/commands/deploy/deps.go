// Package deploy provides CLI commands running deployment plans.
package deploy

import (
	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/deployment"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
)

// ExecutorFactoryFunc returns the executor the orchestrator submits through on chain.
type ExecutorFactoryFunc func(chain starknet.Chain) deployment.Executor

func defaultExecutorFactory(chain starknet.Chain) deployment.Executor {
	return chain.Client
}

// Deps holds the injectable dependencies for deploy commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ChainLoader loads the chain selected by the network flags.
	// Default: chainenv.Load
	ChainLoader chainenv.LoaderFunc

	// ExecutorFactory returns the executor of the orchestrator.
	// Default: the chain's MultiClient
	ExecutorFactory ExecutorFactoryFunc

	// PlanLoader loads a plan file.
	// Default: deployment.LoadPlanFile
	PlanLoader func(path string) ([]deployment.StepSpec, error)
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ChainLoader == nil {
		d.ChainLoader = chainenv.Load
	}
	if d.ExecutorFactory == nil {
		d.ExecutorFactory = defaultExecutorFactory
	}
	if d.PlanLoader == nil {
		d.PlanLoader = deployment.LoadPlanFile
	}
}
