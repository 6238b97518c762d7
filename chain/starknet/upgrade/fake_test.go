package upgrade

import (
	"context"
	"errors"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/jonboulle/clockwork"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

type contractState struct {
	pending   *felt.Felt
	readyTime uint64
	delay     uint32
}

// fakeChain emulates upgradeable contracts behind the Executor interface.
type fakeChain struct {
	clock clockwork.Clock
	// fourFields makes get_upgrade_info return the record carrying the chain time.
	fourFields bool

	mu        sync.Mutex
	contracts map[felt.Felt]*contractState
	declared  map[felt.Felt]bool
	writes    []starknet.Call
	readErr   error
	writeErr  error
}

func newFakeChain(clock clockwork.Clock) *fakeChain {
	return &fakeChain{
		clock:     clock,
		contracts: make(map[felt.Felt]*contractState),
		declared:  make(map[felt.Felt]bool),
	}
}

func (f *fakeChain) addContract(addr *felt.Felt, delay uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contracts[*addr] = &contractState{pending: new(felt.Felt), delay: delay}
}

func (f *fakeChain) declare(classHash *felt.Felt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared[*classHash] = true
}

func (f *fakeChain) state(addr *felt.Felt) contractState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return *f.contracts[*addr]
}

func (f *fakeChain) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.writes)
}

func (f *fakeChain) Read(_ context.Context, call starknet.Call) ([]*felt.Felt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return nil, f.readErr
	}
	c, ok := f.contracts[*call.ContractAddress]
	if !ok || call.Entrypoint != EntrypointGetUpgradeInfo {
		return nil, errors.New("contract not found")
	}

	delay := starknet.Uint64ToFelt(uint64(c.delay))
	if f.fourFields {
		now := starknet.Uint64ToFelt(uint64(f.clock.Now().Unix()))
		return []*felt.Felt{c.pending, starknet.Uint64ToFelt(c.readyTime), now, delay}, nil
	}

	return []*felt.Felt{c.pending, starknet.Uint64ToFelt(c.readyTime), delay}, nil
}

func (f *fakeChain) ClassDeclared(_ context.Context, classHash *felt.Felt) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.declared[*classHash], nil
}

func (f *fakeChain) WriteAndConfirm(_ context.Context, calls ...starknet.Call) (*starknet.PendingOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return nil, f.writeErr
	}

	call := calls[0]
	f.writes = append(f.writes, call)
	c := f.contracts[*call.ContractAddress]
	switch call.Entrypoint {
	case EntrypointScheduleUpgrade:
		c.pending = call.Calldata[0]
		c.readyTime = uint64(f.clock.Now().Unix()) + uint64(c.delay)
	case EntrypointExecuteUpgrade, EntrypointCancelUpgrade:
		c.pending = new(felt.Felt)
		c.readyTime = 0
	case EntrypointSetUpgradeDelay:
		d, _ := starknet.FeltToUint64(call.Calldata[0])
		c.delay = uint32(d)
	}

	return &starknet.PendingOperation{
		TxHash:     starknet.Uint64ToFelt(uint64(len(f.writes))),
		Target:     call.ContractAddress,
		Entrypoint: call.Entrypoint,
		Calldata:   call.Calldata,
		State:      starknet.OperationConfirmed,
	}, nil
}
