package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

var ErrChainNotFound = errors.New("chain not found")

// LazyChains holds a set of chain providers and initializes each chain the first time it is
// accessed. It is safe for concurrent use.
type LazyChains struct {
	mu        sync.Mutex
	loaded    map[uint64]starknet.Chain
	providers map[uint64]Provider
	lggr      logger.Logger
}

// NewLazyChains creates a LazyChains over the given providers. Providers are keyed by their
// chain selector; a later provider with the same selector replaces an earlier one.
func NewLazyChains(lggr logger.Logger, providers ...Provider) *LazyChains {
	byselector := make(map[uint64]Provider, len(providers))
	for _, p := range providers {
		byselector[p.ChainSelector()] = p
	}

	return &LazyChains{
		loaded:    make(map[uint64]starknet.Chain),
		providers: byselector,
		lggr:      lggr,
	}
}

// GetBySelector returns the chain for selector, initializing its provider if not already done.
func (l *LazyChains) GetBySelector(ctx context.Context, selector uint64) (starknet.Chain, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.loaded[selector]; ok {
		return c, nil
	}

	p, ok := l.providers[selector]
	if !ok {
		return starknet.Chain{}, fmt.Errorf("%w: selector %d", ErrChainNotFound, selector)
	}

	c, err := p.Initialize(ctx)
	if err != nil {
		return starknet.Chain{}, fmt.Errorf("failed to initialize %s for selector %d: %w", p.Name(), selector, err)
	}
	l.lggr.Debugw("Initialized chain", "chain", c.String())
	l.loaded[selector] = c

	return c, nil
}

// Exists checks if a chain with the given selector is available (not necessarily loaded).
func (l *LazyChains) Exists(selector uint64) bool {
	_, ok := l.providers[selector]
	return ok
}

// Selectors returns the selectors of all available chains in ascending order.
func (l *LazyChains) Selectors() []uint64 {
	selectors := make([]uint64, 0, len(l.providers))
	for s := range l.providers {
		selectors = append(selectors, s)
	}
	slices.Sort(selectors)

	return selectors
}
