package deployment

import (
	"context"
	"errors"
	"sync"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

// fakeExecutor records submissions and answers like a healthy network unless told otherwise.
type fakeExecutor struct {
	mu       sync.Mutex
	declared map[felt.Felt]bool
	// declareNoop makes declarations confirm without the class becoming known.
	declareNoop bool
	// failDeploy fails deploys of the given class hashes.
	failDeploy map[felt.Felt]error
	// failInit fails calls to the given entrypoint as many times as the count says.
	failInit  map[string]int
	declares  []starknet.DeclareRequest
	writes    []starknet.Call
	txCounter uint64
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		declared:   make(map[felt.Felt]bool),
		failDeploy: make(map[felt.Felt]error),
		failInit:   make(map[string]int),
	}
}

func (f *fakeExecutor) ClassDeclared(_ context.Context, classHash *felt.Felt) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.declared[*classHash], nil
}

func (f *fakeExecutor) DeclareAndConfirm(
	_ context.Context, req starknet.DeclareRequest,
) (*starknet.PendingOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.declares = append(f.declares, req)
	if !f.declareNoop {
		f.declared[*req.ClassHash] = true
	}

	return f.confirmed(nil, "declare"), nil
}

func (f *fakeExecutor) WriteAndConfirm(
	_ context.Context, calls ...starknet.Call,
) (*starknet.PendingOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := calls[0]
	if starknet.FeltsEqual(call.ContractAddress, UDCAddress) {
		if err, ok := f.failDeploy[*call.Calldata[0]]; ok {
			return nil, err
		}
	} else if n := f.failInit[call.Entrypoint]; n > 0 {
		f.failInit[call.Entrypoint] = n - 1
		return nil, &starknet.RevertedError{TxHash: starknet.Uint64ToFelt(999), Status: starknet.TxStatusReverted}
	}
	f.writes = append(f.writes, call)

	return f.confirmed(call.ContractAddress, call.Entrypoint), nil
}

func (f *fakeExecutor) confirmed(target *felt.Felt, entrypoint string) *starknet.PendingOperation {
	f.txCounter++

	return &starknet.PendingOperation{
		TxHash:      starknet.Uint64ToFelt(f.txCounter),
		Target:      target,
		Entrypoint:  entrypoint,
		State:       starknet.OperationConfirmed,
		FinalStatus: starknet.TxStatusAcceptedOnL2,
	}
}

// deploys returns the UDC calls in submission order.
func (f *fakeExecutor) deploys() []starknet.Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []starknet.Call
	for _, w := range f.writes {
		if starknet.FeltsEqual(w.ContractAddress, UDCAddress) {
			out = append(out, w)
		}
	}

	return out
}

// calls returns the non deploy calls made to entrypoint.
func (f *fakeExecutor) calls(entrypoint string) []starknet.Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []starknet.Call
	for _, w := range f.writes {
		if w.Entrypoint == entrypoint {
			out = append(out, w)
		}
	}

	return out
}

var errDeployFailed = errors.New("deploy failed")

// counterSalt returns salts 1, 2, 3...
func counterSalt() func() *felt.Felt {
	var mu sync.Mutex
	var n uint64

	return func() *felt.Felt {
		mu.Lock()
		defer mu.Unlock()
		n++

		return starknet.Uint64ToFelt(n)
	}
}
