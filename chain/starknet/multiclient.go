package starknet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

const (
	// Default timeout for a single call against a single endpoint
	DefaultCallTimeout = 30 * time.Second
	// Default timeout for large payload operations (class declarations) against a single endpoint
	DefaultLargePayloadTimeout = 5 * time.Minute

	// Default confirmation polling configuration
	DefaultPollInterval   = 2 * time.Second
	DefaultConfirmTimeout = 5 * time.Minute
)

// EndpointConfig holds the per endpoint timeouts.
type EndpointConfig struct {
	Timeout             time.Duration
	LargePayloadTimeout time.Duration
}

func (c EndpointConfig) withDefaults() EndpointConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultCallTimeout
	}
	if c.LargePayloadTimeout <= 0 {
		c.LargePayloadTimeout = DefaultLargePayloadTimeout
	}

	return c
}

// PoolEndpoint is an Endpoint together with its configuration in the pool.
type PoolEndpoint struct {
	Endpoint
	Config EndpointConfig
}

// ConfirmConfig controls how AwaitConfirmation polls for a terminal status.
type ConfirmConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	// Accepted is the set of statuses considered a successful confirmation.
	Accepted []TxStatus
}

func defaultConfirmConfig() ConfirmConfig {
	return ConfirmConfig{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultConfirmTimeout,
		Accepted:     DefaultAcceptedStatuses,
	}
}

// MultiClient is the resilient executor: it submits reads and writes against an ordered pool of
// endpoints, falling over to the next endpoint on transient failures, and polls for confirmation
// of submitted writes.
//
// Each logical operation walks its own snapshot of the pool, so concurrent operations never share
// iteration state.
type MultiClient struct {
	chainName string
	lggr      logger.Logger
	signer    *Signer
	confirm   ConfirmConfig
	sticky    bool
	clock     clockwork.Clock

	mu        sync.RWMutex
	endpoints []PoolEndpoint
}

// MultiClientOption configures a MultiClient.
type MultiClientOption func(*MultiClient)

// WithSigner sets the account used to sign writes.
func WithSigner(s Signer) MultiClientOption {
	return func(mc *MultiClient) {
		mc.signer = &s
	}
}

// WithConfirmConfig overrides the confirmation polling defaults. Zero fields keep their default.
func WithConfirmConfig(c ConfirmConfig) MultiClientOption {
	return func(mc *MultiClient) {
		if c.PollInterval > 0 {
			mc.confirm.PollInterval = c.PollInterval
		}
		if c.Timeout > 0 {
			mc.confirm.Timeout = c.Timeout
		}
		if len(c.Accepted) > 0 {
			mc.confirm.Accepted = c.Accepted
		}
	}
}

// WithStickyFallback makes the endpoint that answered after a fallback the first one tried by
// subsequent operations. By default the configured order is always used.
func WithStickyFallback() MultiClientOption {
	return func(mc *MultiClient) {
		mc.sticky = true
	}
}

// WithClock sets the clock used for submission timestamps and poll scheduling.
func WithClock(c clockwork.Clock) MultiClientOption {
	return func(mc *MultiClient) {
		mc.clock = c
	}
}

// NewMultiClient creates a MultiClient over the given pool. Endpoints are tried in the given order.
func NewMultiClient(
	lggr logger.Logger, chainName string, pool []PoolEndpoint, opts ...MultiClientOption,
) (*MultiClient, error) {
	if len(pool) == 0 {
		return nil, errors.New("no endpoints provided, need at least one")
	}

	endpoints := make([]PoolEndpoint, 0, len(pool))
	for i, ep := range pool {
		if ep.Endpoint == nil {
			return nil, fmt.Errorf("endpoint at index %d is nil", i)
		}
		ep.Config = ep.Config.withDefaults()
		endpoints = append(endpoints, ep)
	}

	mc := &MultiClient{
		chainName: chainName,
		lggr:      lggr.Named("MultiClient"),
		confirm:   defaultConfirmConfig(),
		clock:     clockwork.NewRealClock(),
		endpoints: endpoints,
	}
	for _, opt := range opts {
		opt(mc)
	}

	return mc, nil
}

// ChainName returns the name of the chain this client talks to.
func (mc *MultiClient) ChainName() string { return mc.chainName }

// SignerAddress returns the address of the configured signer, or nil.
func (mc *MultiClient) SignerAddress() *felt.Felt {
	if mc.signer == nil {
		return nil
	}

	return mc.signer.Address
}

// Read executes a read-only call.
func (mc *MultiClient) Read(ctx context.Context, call Call) ([]*felt.Felt, error) {
	var result []*felt.Felt
	err := mc.retryWithBackups(ctx, "Read "+call.Entrypoint, false, func(ct context.Context, ep Endpoint) error {
		var err error
		result, err = ep.Call(ct, call)

		return err
	})

	return result, err
}

// ClassDeclared reports whether classHash is known to the network.
func (mc *MultiClient) ClassDeclared(ctx context.Context, classHash *felt.Felt) (bool, error) {
	var declared bool
	err := mc.retryWithBackups(ctx, "ClassDeclared", false, func(ct context.Context, ep Endpoint) error {
		var err error
		declared, err = ep.ClassDeclared(ct, classHash)

		return err
	})

	return declared, err
}

// Write signs and submits calls as one transaction. Submission is attempted on the next endpoint
// only while no endpoint has accepted it; an accepted write is never submitted again.
func (mc *MultiClient) Write(ctx context.Context, calls ...Call) (*PendingOperation, error) {
	if mc.signer == nil {
		return nil, ErrNoSigner
	}
	if len(calls) == 0 {
		return nil, errors.New("no calls to submit")
	}

	var (
		txHash   *felt.Felt
		accepted string
	)
	// An attempt that timed out may still have reached its node. The next endpoint signs with the
	// same account nonce, so at most one of the two transactions can be accepted.
	err := mc.retryWithBackups(ctx, "Write "+entrypoints(calls), false, func(ct context.Context, ep Endpoint) error {
		h, err := ep.Invoke(ct, *mc.signer, calls)
		if err != nil {
			return err
		}
		if h == nil {
			// the endpoint answered the submission, it may have accepted it
			return NewPermanentError(fmt.Errorf("%w: empty transaction hash", ErrMalformedResponse))
		}
		txHash, accepted = h, ep.Name()

		return nil
	})
	if err != nil {
		return nil, err
	}

	mc.lggr.Infow("Write submitted", "chain", mc.chainName, "txHash", txHash.String(),
		"entrypoints", entrypoints(calls), "endpoint", accepted)

	return &PendingOperation{
		TxHash:      txHash,
		Target:      calls[0].ContractAddress,
		Entrypoint:  entrypoints(calls),
		Calldata:    calls[0].Calldata,
		SubmittedAt: mc.clock.Now(),
		Endpoint:    accepted,
		State:       OperationSubmitted,
	}, nil
}

// Declare submits a class declaration. Each endpoint attempt uses the large payload timeout.
func (mc *MultiClient) Declare(ctx context.Context, req DeclareRequest) (*PendingOperation, error) {
	if mc.signer == nil {
		return nil, ErrNoSigner
	}

	var (
		txHash   *felt.Felt
		accepted string
	)
	err := mc.retryWithBackups(ctx, "Declare", true, func(ct context.Context, ep Endpoint) error {
		h, err := ep.Declare(ct, *mc.signer, req)
		if err != nil {
			return err
		}
		if h == nil {
			return NewPermanentError(fmt.Errorf("%w: empty transaction hash", ErrMalformedResponse))
		}
		txHash, accepted = h, ep.Name()

		return nil
	})
	if err != nil {
		return nil, err
	}

	mc.lggr.Infow("Declare submitted", "chain", mc.chainName, "txHash", txHash.String(),
		"classHash", req.ClassHash, "endpoint", accepted)

	return &PendingOperation{
		TxHash:      txHash,
		Target:      req.ClassHash,
		Entrypoint:  "declare",
		SubmittedAt: mc.clock.Now(),
		Endpoint:    accepted,
		State:       OperationSubmitted,
	}, nil
}

// TransactionStatus returns the current status of txHash.
func (mc *MultiClient) TransactionStatus(ctx context.Context, txHash *felt.Felt) (TxStatusResult, error) {
	var res TxStatusResult
	err := mc.retryWithBackups(ctx, "TransactionStatus", false, func(ct context.Context, ep Endpoint) error {
		var err error
		res, err = ep.TransactionStatus(ct, txHash)

		return err
	})

	return res, err
}

// errStillPending is returned by a poll that observed a non terminal status.
var errStillPending = errors.New("transaction still pending")

// AwaitConfirmation polls the status of op every pollInterval until it is in accepted, or a
// failure status is observed, or ctx / the configured confirmation timeout expires.
// A zero pollInterval or an empty accepted set falls back to the client's ConfirmConfig.
//
// Returns a *RevertedError for reverted or rejected operations and an *UnconfirmedError when the
// deadline passed first. op.State is updated accordingly.
func (mc *MultiClient) AwaitConfirmation(
	ctx context.Context, op *PendingOperation, pollInterval time.Duration, accepted []TxStatus,
) (TxStatus, error) {
	if op == nil || op.TxHash == nil {
		return TxStatusUnknown, errors.New("nothing to confirm: operation has no transaction hash")
	}
	if pollInterval <= 0 {
		pollInterval = mc.confirm.PollInterval
	}
	if len(accepted) == 0 {
		accepted = mc.confirm.Accepted
	}

	waitCtx, cancel := ensureTimeout(ctx, mc.confirm.Timeout)
	defer cancel()

	op.State = OperationAwaitingConfirmation
	start := mc.clock.Now()
	last := TxStatusUnknown
	var lastPollErr error

	mc.lggr.Debugw("Awaiting confirmation", "chain", mc.chainName, "txHash", op.TxHash.String(),
		"pollInterval", pollInterval, "accepted", accepted)

	status, err := retry.DoWithData(func() (TxStatus, error) {
		res, err := mc.TransactionStatus(waitCtx, op.TxHash)
		if err != nil {
			lastPollErr = err

			return TxStatusUnknown, err
		}
		lastPollErr = nil
		last = res.Status

		switch {
		case statusIn(res.Status, accepted):
			return res.Status, nil
		case res.Status.IsFailure():
			return res.Status, retry.Unrecoverable(&RevertedError{
				TxHash: op.TxHash, Status: res.Status, Reason: res.Reason,
			})
		default:
			return res.Status, errStillPending
		}
	},
		retry.Context(waitCtx),
		retry.Attempts(0),
		retry.Delay(pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.WithTimer(mc.clock),
	)

	op.FinalStatus = last
	op.ConfirmedAfter = mc.clock.Since(start)

	if err == nil {
		op.State = OperationConfirmed
		op.FinalStatus = status
		mc.lggr.Infow("Transaction confirmed", "chain", mc.chainName, "txHash", op.TxHash.String(),
			"status", status, "after", op.ConfirmedAfter)

		return status, nil
	}

	var reverted *RevertedError
	if errors.As(err, &reverted) {
		op.State = OperationReverted
		if reverted.Status == TxStatusRejected {
			op.State = OperationDropped
		}
		mc.lggr.Errorw("Transaction failed", "chain", mc.chainName, "txHash", op.TxHash.String(),
			"status", reverted.Status, "reason", reverted.Reason)

		return reverted.Status, reverted
	}

	cause := waitCtx.Err()
	if cause == nil {
		cause = err
	}
	if lastPollErr != nil {
		cause = errors.Join(cause, lastPollErr)
	}
	op.State = OperationUnconfirmed
	mc.lggr.Warnw("Transaction unconfirmed before deadline", "chain", mc.chainName,
		"txHash", op.TxHash.String(), "lastStatus", last, "error", cause)

	return last, &UnconfirmedError{TxHash: op.TxHash, LastStatus: last, Waited: op.ConfirmedAfter, Err: cause}
}

// WriteAndConfirm submits calls and waits for confirmation using the client's ConfirmConfig.
// The pending operation is returned even when confirmation fails, so callers can report it.
func (mc *MultiClient) WriteAndConfirm(ctx context.Context, calls ...Call) (*PendingOperation, error) {
	op, err := mc.Write(ctx, calls...)
	if err != nil {
		return nil, err
	}
	_, err = mc.AwaitConfirmation(ctx, op, 0, nil)

	return op, err
}

// DeclareAndConfirm submits a declaration and waits for confirmation.
func (mc *MultiClient) DeclareAndConfirm(ctx context.Context, req DeclareRequest) (*PendingOperation, error) {
	op, err := mc.Declare(ctx, req)
	if err != nil {
		return nil, err
	}
	_, err = mc.AwaitConfirmation(ctx, op, 0, nil)

	return op, err
}

// retryWithBackups runs op against each endpoint of a snapshot of the pool, in order, until one
// succeeds. Every endpoint is attempted at most once. Non transient errors stop the walk.
func (mc *MultiClient) retryWithBackups(
	ctx context.Context, opName string, largePayload bool, op func(context.Context, Endpoint) error,
) error {
	traceID := uuid.New()
	endpoints := mc.snapshot()

	var lastErr *RemoteError
	for i, ep := range endpoints {
		timeout := ep.Config.Timeout
		if largePayload {
			timeout = ep.Config.LargePayloadTimeout
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := op(callCtx, ep.Endpoint)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			if i > 0 {
				mc.lggr.Infof("traceID %q: chain %q: op: %q: endpoint %q (index %d): succeeded after %d failed endpoint(s)",
					traceID.String(), mc.chainName, opName, ep.Name(), i, i)
				mc.promote(ep)
			}

			return nil
		}

		if timedOut && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		lastErr = &RemoteError{Endpoint: ep.Name(), Index: i, Op: opName, Err: err}

		if ctx.Err() != nil {
			// the caller gave up, trying the next endpoint would fail the same way
			return lastErr
		}
		if !IsTransient(err) {
			mc.lggr.Warnf("traceID %q: chain %q: op: %q: endpoint %q (index %d): non-retryable error: %v",
				traceID.String(), mc.chainName, opName, ep.Name(), i, err)

			return lastErr
		}

		mc.lggr.Warnf("traceID %q: chain %q: op: %q: endpoint %q (index %d): failed, trying next endpoint: %v",
			traceID.String(), mc.chainName, opName, ep.Name(), i, err)
	}

	return errors.Join(lastErr, fmt.Errorf("all %d endpoints failed for chain %q", len(endpoints), mc.chainName))
}

// snapshot returns a copy of the current endpoint order.
func (mc *MultiClient) snapshot() []PoolEndpoint {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]PoolEndpoint(nil), mc.endpoints...)
}

// promote moves ep to the front of the pool when sticky fallback is enabled. The endpoints that
// were ahead of it keep their relative order behind it.
func (mc *MultiClient) promote(ep PoolEndpoint) {
	if !mc.sticky {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	idx := -1
	for i, e := range mc.endpoints {
		if e.Name() == ep.Name() {
			idx = i

			break
		}
	}
	if idx < 1 {
		return
	}

	reordered := make([]PoolEndpoint, 0, len(mc.endpoints))
	reordered = append(reordered, mc.endpoints[idx])
	reordered = append(reordered, mc.endpoints[idx+1:]...)
	reordered = append(reordered, mc.endpoints[:idx]...)
	mc.endpoints = reordered
}

// ensureTimeout checks if the parent context has a deadline.
// If it does, it returns a new cancelable context using the parent's deadline.
// If it doesn't, it creates a new context with the specified timeout.
func ensureTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := parent.Deadline(); hasDeadline {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, timeout)
}

func entrypoints(calls []Call) string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Entrypoint)
	}

	return strings.Join(names, ",")
}
