package upgrade

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/jonboulle/clockwork"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Entrypoints of the upgradeable contract interface.
const (
	EntrypointGetUpgradeInfo  = "get_upgrade_info"
	EntrypointScheduleUpgrade = "schedule_upgrade"
	EntrypointExecuteUpgrade  = "execute_upgrade"
	EntrypointCancelUpgrade   = "cancel_upgrade"
	EntrypointSetUpgradeDelay = "set_upgrade_delay"
)

// Executor is the subset of starknet.MultiClient the Coordinator depends on.
type Executor interface {
	Read(ctx context.Context, call starknet.Call) ([]*felt.Felt, error)
	ClassDeclared(ctx context.Context, classHash *felt.Felt) (bool, error)
	WriteAndConfirm(ctx context.Context, calls ...starknet.Call) (*starknet.PendingOperation, error)
}

var _ Executor = (*starknet.MultiClient)(nil)

// Result describes the outcome of a state changing Coordinator operation.
type Result struct {
	Contract   *felt.Felt
	Entrypoint string
	// Operation is nil when nothing was submitted.
	Operation *starknet.PendingOperation
	// NoOp is set when the requested state was already in place.
	NoOp bool
	// ReadyTime is the expected ready time of a scheduled upgrade, in unix seconds.
	ReadyTime uint64
}

// Coordinator drives the upgrade timelock protocol of upgradeable contracts. All preconditions
// are checked against a fresh read before anything is submitted, and transitions on the same
// contract are serialized.
type Coordinator struct {
	client Executor
	lggr   logger.Logger
	clock  clockwork.Clock

	mu    sync.Mutex
	locks map[felt.Felt]*sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock readiness is computed against when the chain does not report its time.
func WithClock(c clockwork.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// NewCoordinator creates a Coordinator submitting through client.
func NewCoordinator(lggr logger.Logger, client Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		client: client,
		lggr:   lggr.Named("UpgradeCoordinator"),
		clock:  clockwork.NewRealClock(),
		locks:  make(map[felt.Felt]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetStatus reads the upgrade record of contract.
func (c *Coordinator) GetStatus(ctx context.Context, contract *felt.Felt) (Info, error) {
	if contract == nil {
		return Info{}, ErrMissingContract
	}

	res, err := c.client.Read(ctx, starknet.Call{
		ContractAddress: contract,
		Entrypoint:      EntrypointGetUpgradeInfo,
	})
	if err != nil {
		return Info{}, fmt.Errorf("failed to read upgrade info of %s: %w", contract, err)
	}

	info, err := DecodeInfo(res)
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode upgrade info of %s: %w", contract, err)
	}

	return info, nil
}

// State returns the upgrade state of contract as of now.
func (c *Coordinator) State(ctx context.Context, contract *felt.Felt) (State, Info, error) {
	info, err := c.GetStatus(ctx, contract)
	if err != nil {
		return "", Info{}, err
	}

	return info.State(c.clock.Now()), info, nil
}

// Schedule schedules the upgrade of contract to classHash. The class must be declared and no
// other upgrade may be pending; a pending upgrade is never replaced.
func (c *Coordinator) Schedule(ctx context.Context, contract, classHash *felt.Felt) (Result, error) {
	if classHash == nil {
		return Result{}, errors.New("class hash is required")
	}
	unlock, err := c.lock(contract)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	lggr := c.lggr.With("contract", contract.String(), "classHash", classHash.String())

	declared, err := c.client.ClassDeclared(ctx, classHash)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check class %s: %w", classHash, err)
	}
	if !declared {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownClass, classHash)
	}

	info, err := c.GetStatus(ctx, contract)
	if err != nil {
		return Result{}, err
	}
	if info.Pending() {
		return Result{}, fmt.Errorf("%w: %s has pending class %s ready at %d",
			ErrUpgradeAlreadyPending, contract, info.PendingClassHash, info.ReadyTime)
	}

	readyTime := uint64(info.Now(c.clock.Now()).Unix()) + uint64(info.DelaySeconds) //nolint:gosec // unix time is positive

	lggr.Infow("Scheduling upgrade", "delaySeconds", info.DelaySeconds, "readyTime", readyTime)
	op, err := c.client.WriteAndConfirm(ctx, starknet.Call{
		ContractAddress: contract,
		Entrypoint:      EntrypointScheduleUpgrade,
		Calldata:        []*felt.Felt{classHash},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to schedule upgrade of %s: %w", contract, err)
	}
	lggr.Infow("Upgrade scheduled", "txHash", op.TxHash.String(), "readyTime", readyTime)

	return Result{
		Contract:   contract,
		Entrypoint: EntrypointScheduleUpgrade,
		Operation:  op,
		ReadyTime:  readyTime,
	}, nil
}

// Execute executes the pending upgrade of contract once its ready time has been reached.
func (c *Coordinator) Execute(ctx context.Context, contract *felt.Felt) (Result, error) {
	unlock, err := c.lock(contract)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	info, err := c.GetStatus(ctx, contract)
	if err != nil {
		return Result{}, err
	}

	now := c.clock.Now()
	switch info.State(now) {
	case StateIdle:
		return Result{}, fmt.Errorf("%w: %s", ErrNoPendingUpgrade, contract)
	case StateScheduled:
		return Result{}, &NotReadyError{
			Contract:  contract,
			ReadyAt:   info.ReadyAt(),
			Remaining: info.Remaining(now),
		}
	case StateReady:
	}

	c.lggr.Infow("Executing upgrade", "contract", contract.String(), "classHash", info.PendingClassHash.String())
	op, err := c.client.WriteAndConfirm(ctx, starknet.Call{
		ContractAddress: contract,
		Entrypoint:      EntrypointExecuteUpgrade,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to execute upgrade of %s: %w", contract, err)
	}
	c.lggr.Infow("Upgrade executed", "contract", contract.String(), "txHash", op.TxHash.String())

	return Result{Contract: contract, Entrypoint: EntrypointExecuteUpgrade, Operation: op}, nil
}

// Cancel cancels the pending upgrade of contract, whether or not it is ready.
func (c *Coordinator) Cancel(ctx context.Context, contract *felt.Felt) (Result, error) {
	unlock, err := c.lock(contract)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	info, err := c.GetStatus(ctx, contract)
	if err != nil {
		return Result{}, err
	}
	if !info.Pending() {
		return Result{}, fmt.Errorf("%w: %s", ErrNoPendingUpgrade, contract)
	}

	c.lggr.Infow("Cancelling upgrade", "contract", contract.String(), "classHash", info.PendingClassHash.String())
	op, err := c.client.WriteAndConfirm(ctx, starknet.Call{
		ContractAddress: contract,
		Entrypoint:      EntrypointCancelUpgrade,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to cancel upgrade of %s: %w", contract, err)
	}

	return Result{Contract: contract, Entrypoint: EntrypointCancelUpgrade, Operation: op}, nil
}

// SetDelay changes the upgrade delay of contract. It is only allowed while no upgrade is pending,
// and nothing is submitted when the delay is already delaySeconds.
func (c *Coordinator) SetDelay(ctx context.Context, contract *felt.Felt, delaySeconds uint32) (Result, error) {
	unlock, err := c.lock(contract)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	info, err := c.GetStatus(ctx, contract)
	if err != nil {
		return Result{}, err
	}
	if info.Pending() {
		return Result{}, fmt.Errorf("%w: %s has pending class %s",
			ErrCannotChangeDelayWhilePending, contract, info.PendingClassHash)
	}
	if info.DelaySeconds == delaySeconds {
		c.lggr.Infow("Upgrade delay unchanged, nothing to submit",
			"contract", contract.String(), "delaySeconds", delaySeconds)

		return Result{Contract: contract, Entrypoint: EntrypointSetUpgradeDelay, NoOp: true}, nil
	}

	c.lggr.Infow("Setting upgrade delay", "contract", contract.String(),
		"from", info.DelaySeconds, "to", delaySeconds)
	op, err := c.client.WriteAndConfirm(ctx, starknet.Call{
		ContractAddress: contract,
		Entrypoint:      EntrypointSetUpgradeDelay,
		Calldata:        []*felt.Felt{starknet.Uint64ToFelt(uint64(delaySeconds))},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to set upgrade delay of %s: %w", contract, err)
	}

	return Result{Contract: contract, Entrypoint: EntrypointSetUpgradeDelay, Operation: op}, nil
}

// lock serializes transitions on the same contract and returns the unlock function.
func (c *Coordinator) lock(contract *felt.Felt) (func(), error) {
	if contract == nil {
		return nil, ErrMissingContract
	}

	c.mu.Lock()
	m, ok := c.locks[*contract]
	if !ok {
		m = &sync.Mutex{}
		c.locks[*contract] = m
	}
	c.mu.Unlock()

	m.Lock()

	return m.Unlock, nil
}
