package chain

import (
	"context"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

// Provider is an interface for chain providers that can initialize a Starknet chain instance.
type Provider interface {
	Initialize(ctx context.Context) (starknet.Chain, error)
	Name() string
	ChainSelector() uint64
	BlockChain() starknet.Chain
}
