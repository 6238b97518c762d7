package starknet

import (
	"context"
	"sync"
	"time"

	"github.com/NethermindEth/juno/core/felt"
)

// fakeEndpoint is a scriptable Endpoint. Each hook defaults to a successful zero answer.
type fakeEndpoint struct {
	name string

	mu       sync.Mutex
	calls    int
	invokes  int
	declares int
	statuses int

	callFn    func(ctx context.Context, call Call) ([]*felt.Felt, error)
	invokeFn  func(ctx context.Context, calls []Call) (*felt.Felt, error)
	declareFn func(ctx context.Context, req DeclareRequest) (*felt.Felt, error)
	statusFn  func(ctx context.Context, n int) (TxStatusResult, error)
	classFn   func(ctx context.Context, classHash *felt.Felt) (bool, error)
}

func (f *fakeEndpoint) Name() string { return f.name }

func (f *fakeEndpoint) Call(ctx context.Context, call Call) ([]*felt.Felt, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.callFn == nil {
		return []*felt.Felt{}, nil
	}

	return f.callFn(ctx, call)
}

func (f *fakeEndpoint) Invoke(ctx context.Context, _ Signer, calls []Call) (*felt.Felt, error) {
	f.mu.Lock()
	f.invokes++
	f.mu.Unlock()
	if f.invokeFn == nil {
		return Uint64ToFelt(0xabc), nil
	}

	return f.invokeFn(ctx, calls)
}

func (f *fakeEndpoint) Declare(ctx context.Context, _ Signer, req DeclareRequest) (*felt.Felt, error) {
	f.mu.Lock()
	f.declares++
	f.mu.Unlock()
	if f.declareFn == nil {
		return Uint64ToFelt(0xdec), nil
	}

	return f.declareFn(ctx, req)
}

func (f *fakeEndpoint) TransactionStatus(ctx context.Context, _ *felt.Felt) (TxStatusResult, error) {
	f.mu.Lock()
	f.statuses++
	n := f.statuses
	f.mu.Unlock()
	if f.statusFn == nil {
		return TxStatusResult{Status: TxStatusAcceptedOnL2}, nil
	}

	return f.statusFn(ctx, n)
}

func (f *fakeEndpoint) ClassDeclared(ctx context.Context, classHash *felt.Felt) (bool, error) {
	if f.classFn == nil {
		return true, nil
	}

	return f.classFn(ctx, classHash)
}

func (f *fakeEndpoint) counts() (calls, invokes, declares, statuses int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls, f.invokes, f.declares, f.statuses
}

// hang blocks until ctx is done, simulating an endpoint that never answers.
func hang(ctx context.Context) error {
	<-ctx.Done()

	return ctx.Err()
}

func pool(cfg EndpointConfig, eps ...*fakeEndpoint) []PoolEndpoint {
	out := make([]PoolEndpoint, 0, len(eps))
	for _, ep := range eps {
		out = append(out, PoolEndpoint{Endpoint: ep, Config: cfg})
	}

	return out
}

var fastEndpoints = EndpointConfig{Timeout: 50 * time.Millisecond, LargePayloadTimeout: 200 * time.Millisecond}

var testSigner = Signer{Address: Uint64ToFelt(0x5151), PublicKey: "0x1", PrivateKey: nil}
