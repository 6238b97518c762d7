package upgrade

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	timelock "github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/upgrade"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// fakeCoordinator records the calls made by the commands.
type fakeCoordinator struct {
	statuses  []timelock.Status
	results   []timelock.ScheduleResult
	result    timelock.Result
	err       error
	scheduled []timelock.ScheduleRequest
	executed  []*felt.Felt
	cancelled []*felt.Felt
	delay     uint32
}

func (f *fakeCoordinator) StatusBatch(_ context.Context, contracts []*felt.Felt) []timelock.Status {
	return f.statuses
}

func (f *fakeCoordinator) ScheduleBatch(_ context.Context, reqs []timelock.ScheduleRequest) []timelock.ScheduleResult {
	f.scheduled = reqs
	return f.results
}

func (f *fakeCoordinator) Execute(_ context.Context, contract *felt.Felt) (timelock.Result, error) {
	f.executed = append(f.executed, contract)
	return f.result, f.err
}

func (f *fakeCoordinator) Cancel(_ context.Context, contract *felt.Felt) (timelock.Result, error) {
	f.cancelled = append(f.cancelled, contract)
	return f.result, f.err
}

func (f *fakeCoordinator) SetDelay(_ context.Context, _ *felt.Felt, delaySeconds uint32) (timelock.Result, error) {
	f.delay = delaySeconds
	return f.result, f.err
}

var networkArgs = []string{"--networks", "networks.yaml", "-n", "starknet-sepolia"}

// newTestCommand returns the upgrade command wired to fake and the options the chain was loaded
// with.
func newTestCommand(t *testing.T, fake *fakeCoordinator) (*cobra.Command, *bytes.Buffer, *chainenv.Options) {
	t.Helper()

	var loaded chainenv.Options
	cmd := NewCommand(Config{
		Logger: logger.Test(t),
		Deps: Deps{
			ChainLoader: func(_ context.Context, _ logger.Logger, opts chainenv.Options) (starknet.Chain, error) {
				loaded = opts
				return starknet.Chain{Name: "starknet-sepolia"}, nil
			},
			CoordinatorFactory: func(logger.Logger, starknet.Chain) Coordinator { return fake },
		},
	})

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)

	return cmd, out, &loaded
}

func confirmedResult(contract *felt.Felt, entrypoint string) timelock.Result {
	return timelock.Result{
		Contract:   contract,
		Entrypoint: entrypoint,
		Operation: &starknet.PendingOperation{
			TxHash:      starknet.MustParseFelt("0xbeef"),
			FinalStatus: starknet.TxStatusAcceptedOnL2,
		},
	}
}

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Config{Logger: logger.Nop()})

	assert.Equal(t, "upgrade", cmd.Use)
	require.NotNil(t, cmd.PersistentFlags().Lookup("network"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("networks"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"status", "schedule", "execute", "cancel", "set-delay"}, names)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	contract := starknet.MustParseFelt("0xa")
	fake := &fakeCoordinator{statuses: []timelock.Status{{
		Contract: contract,
		State:    timelock.StateScheduled,
		Info: timelock.Info{
			PendingClassHash: starknet.MustParseFelt("0x2222"),
			ReadyTime:        1_700_003_600,
			DelaySeconds:     3600,
		},
	}}}
	cmd, out, loaded := newTestCommand(t, fake)

	cmd.SetArgs(append([]string{"status", "0xa"}, networkArgs...))
	require.NoError(t, cmd.Execute())

	assert.False(t, loaded.RequireSigner, "status is read only")
	output := out.String()
	assert.Contains(t, output, "Scheduled")
	assert.Contains(t, output, "0x2222")
	assert.Contains(t, output, time.Unix(1_700_003_600, 0).UTC().Format(time.RFC3339))
	assert.Contains(t, output, "3600s")
}

func TestStatus_failure(t *testing.T) {
	t.Parallel()

	fake := &fakeCoordinator{statuses: []timelock.Status{{
		Contract: starknet.MustParseFelt("0xa"),
		Err:      errors.New("all endpoints failed"),
	}}}
	cmd, out, _ := newTestCommand(t, fake)

	cmd.SetArgs(append([]string{"status", "0xa"}, networkArgs...))
	require.ErrorIs(t, cmd.Execute(), errSomeFailed)
	assert.Contains(t, out.String(), "all endpoints failed")
}

func TestStatus_invalidContract(t *testing.T) {
	t.Parallel()

	cmd, _, _ := newTestCommand(t, &fakeCoordinator{})

	cmd.SetArgs(append([]string{"status", "0x0"}, networkArgs...))
	require.ErrorContains(t, cmd.Execute(), "must not be zero")
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	a, b := starknet.MustParseFelt("0xa"), starknet.MustParseFelt("0xb")
	class := starknet.MustParseFelt("0x2222")
	fake := &fakeCoordinator{results: []timelock.ScheduleResult{
		{Request: timelock.ScheduleRequest{Contract: a, ClassHash: class}, Result: confirmedResult(a, "schedule_upgrade")},
		{Request: timelock.ScheduleRequest{Contract: b, ClassHash: class}, Err: timelock.ErrUpgradeAlreadyPending},
	}}
	cmd, out, loaded := newTestCommand(t, fake)

	cmd.SetArgs(append([]string{"schedule", "0xa", "0x2222", "0xb", "0x2222"}, networkArgs...))
	require.ErrorIs(t, cmd.Execute(), errSomeFailed)

	assert.True(t, loaded.RequireSigner)
	require.Len(t, fake.scheduled, 2)
	assert.True(t, fake.scheduled[1].Contract.Equal(b))
	assert.True(t, fake.scheduled[1].ClassHash.Equal(class))
	assert.Contains(t, out.String(), "0xbeef")
	assert.Contains(t, out.String(), timelock.ErrUpgradeAlreadyPending.Error())
}

func TestSchedule_oddArgs(t *testing.T) {
	t.Parallel()

	cmd, _, _ := newTestCommand(t, &fakeCoordinator{})

	cmd.SetArgs(append([]string{"schedule", "0xa"}, networkArgs...))
	require.ErrorContains(t, cmd.Execute(), "expected pairs")
}

func TestExecute(t *testing.T) {
	t.Parallel()

	contract := starknet.MustParseFelt("0xa")
	fake := &fakeCoordinator{result: confirmedResult(contract, "execute_upgrade")}
	cmd, out, _ := newTestCommand(t, fake)

	cmd.SetArgs(append([]string{"execute", "0xa"}, networkArgs...))
	require.NoError(t, cmd.Execute())

	require.Len(t, fake.executed, 1)
	assert.Contains(t, out.String(), "execute_upgrade on 0xa confirmed in tx 0xbeef (ACCEPTED_ON_L2)")
}

func TestExecute_notReady(t *testing.T) {
	t.Parallel()

	fake := &fakeCoordinator{err: &timelock.NotReadyError{Contract: starknet.MustParseFelt("0xa"), Remaining: time.Minute}}
	cmd, _, _ := newTestCommand(t, fake)

	cmd.SetArgs(append([]string{"execute", "0xa"}, networkArgs...))
	require.ErrorIs(t, cmd.Execute(), timelock.ErrNotReady)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	contract := starknet.MustParseFelt("0xa")
	fake := &fakeCoordinator{result: confirmedResult(contract, "cancel_upgrade")}
	cmd, _, _ := newTestCommand(t, fake)

	cmd.SetArgs(append([]string{"cancel", "0xa"}, networkArgs...))
	require.NoError(t, cmd.Execute())
	require.Len(t, fake.cancelled, 1)
	assert.True(t, fake.cancelled[0].Equal(contract))
}

func TestSetDelay(t *testing.T) {
	t.Parallel()

	t.Run("submits", func(t *testing.T) {
		t.Parallel()

		fake := &fakeCoordinator{result: confirmedResult(starknet.MustParseFelt("0xa"), "set_upgrade_delay")}
		cmd, _, _ := newTestCommand(t, fake)

		cmd.SetArgs(append([]string{"set-delay", "0xa", "7200"}, networkArgs...))
		require.NoError(t, cmd.Execute())
		assert.Equal(t, uint32(7200), fake.delay)
	})

	t.Run("no op", func(t *testing.T) {
		t.Parallel()

		fake := &fakeCoordinator{result: timelock.Result{Contract: starknet.MustParseFelt("0xa"), NoOp: true}}
		cmd, out, _ := newTestCommand(t, fake)

		cmd.SetArgs(append([]string{"set-delay", "0xa", "3600"}, networkArgs...))
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "Nothing to submit")
	})

	t.Run("delay out of range", func(t *testing.T) {
		t.Parallel()

		cmd, _, _ := newTestCommand(t, &fakeCoordinator{})

		cmd.SetArgs(append([]string{"set-delay", "0xa", "4294967296"}, networkArgs...))
		require.ErrorContains(t, cmd.Execute(), "invalid delay")
	})
}

func TestChainLoadFailure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Config{
		Logger: logger.Nop(),
		Deps: Deps{
			ChainLoader: func(context.Context, logger.Logger, chainenv.Options) (starknet.Chain, error) {
				return starknet.Chain{}, errors.New("boom")
			},
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	cmd.SetArgs(append([]string{"cancel", "0xa"}, networkArgs...))
	require.ErrorContains(t, cmd.Execute(), "failed to load chain: boom")
}
