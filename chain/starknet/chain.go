package starknet

import (
	"fmt"
	"strconv"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// Chain represents a Starknet chain the framework operates on.
type Chain struct {
	Selector uint64
	// Name is the human readable network name, as configured.
	Name string
	// Client is the resilient executor for this chain.
	Client *MultiClient
}

// ChainSelector returns the chain selector of the chain.
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// String returns chain name and selector "<name> (<selector>)"
func (c Chain) String() string {
	return c.Name + " (" + strconv.FormatUint(c.Selector, 10) + ")"
}

// Family returns the family of the chain.
func (c Chain) Family() string {
	return chainsel.FamilyStarknet
}

// ChainDetails returns the registry details of selector. It fails when the selector is unknown or
// not a Starknet chain.
func ChainDetails(selector uint64) (chainsel.ChainDetails, error) {
	family, err := chainsel.GetSelectorFamily(selector)
	if err != nil {
		return chainsel.ChainDetails{}, err
	}
	if family != chainsel.FamilyStarknet {
		return chainsel.ChainDetails{}, fmt.Errorf("selector %d belongs to family %q, not %q",
			selector, family, chainsel.FamilyStarknet)
	}
	id, err := chainsel.GetChainIDFromSelector(selector)
	if err != nil {
		return chainsel.ChainDetails{}, err
	}

	return chainsel.GetChainDetailsByChainIDAndFamily(id, family)
}
