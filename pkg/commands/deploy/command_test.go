package deploy

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/datastore"
	"github.com/smartcontractkit/starknet-deployments-framework/deployment"
	"github.com/smartcontractkit/starknet-deployments-framework/operations"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

const sepoliaSelector uint64 = 4115550741429562104

// fakeExecutor accepts every submission. Classes are always declared.
type fakeExecutor struct {
	mu       sync.Mutex
	writes   int
	writeErr error
}

func (f *fakeExecutor) ClassDeclared(context.Context, *felt.Felt) (bool, error) {
	return true, nil
}

func (f *fakeExecutor) DeclareAndConfirm(context.Context, starknet.DeclareRequest) (*starknet.PendingOperation, error) {
	return nil, errors.New("unexpected declaration")
}

func (f *fakeExecutor) WriteAndConfirm(context.Context, ...starknet.Call) (*starknet.PendingOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.writes++

	return &starknet.PendingOperation{
		TxHash:      starknet.Uint64ToFelt(uint64(f.writes)),
		FinalStatus: starknet.TxStatusAcceptedOnL2,
		State:       starknet.OperationConfirmed,
	}, nil
}

func testSteps() []deployment.StepSpec {
	return []deployment.StepSpec{
		{Name: "token", Class: deployment.ClassSource{ClassHash: starknet.MustParseFelt("0x1111")}},
		{Name: "oracle", Class: deployment.ClassSource{ClassHash: starknet.MustParseFelt("0x2222")}},
	}
}

func newTestCommand(t *testing.T, exec *fakeExecutor) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	cmd := NewCommand(Config{
		Logger: logger.Test(t),
		Deps: Deps{
			ChainLoader: func(_ context.Context, _ logger.Logger, opts chainenv.Options) (starknet.Chain, error) {
				assert.True(t, opts.RequireSigner)
				return starknet.Chain{Name: "starknet-sepolia", Selector: sepoliaSelector}, nil
			},
			ExecutorFactory: func(starknet.Chain) deployment.Executor { return exec },
			PlanLoader: func(path string) ([]deployment.StepSpec, error) {
				assert.Equal(t, "plan.yaml", path)
				return testSteps(), nil
			},
		},
	})

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)

	return cmd, out
}

func runArgs(recordPath string, extra ...string) []string {
	args := []string{"run", "--plan", "plan.yaml", "--record", recordPath,
		"--networks", "networks.yaml", "-n", "starknet-sepolia"}

	return append(args, extra...)
}

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Config{Logger: logger.Nop()})

	assert.Equal(t, "deploy", cmd.Use)
	subs := cmd.Commands()
	require.Len(t, subs, 2)

	for _, sub := range subs {
		if sub.Name() == "run" {
			p := sub.Flags().Lookup("plan")
			require.NotNil(t, p)
			assert.Equal(t, "p", p.Shorthand)
			require.NotNil(t, sub.Flags().Lookup("reports"))
			require.NotNil(t, sub.PersistentFlags().Lookup("network"))
		}
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	recordPath := filepath.Join(dir, "record.json")
	reportsPath := filepath.Join(dir, "reports.json")
	exec := &fakeExecutor{}

	cmd, out := newTestCommand(t, exec)
	cmd.SetArgs(runArgs(recordPath, "--reports", reportsPath))
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 2, exec.writes)
	assert.Contains(t, out.String(), "Running 2 steps on starknet-sepolia (4115550741429562104)")
	assert.Contains(t, out.String(), string(deployment.StepDeployed))

	record, err := datastore.LoadRecordFile(recordPath, sepoliaSelector)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"token", "oracle"}, record.Names())

	reporter, err := operations.NewFileReporter(reportsPath)
	require.NoError(t, err)
	reports, err := reporter.GetReports()
	require.NoError(t, err)
	assert.Len(t, reports, 4, "a declare and a deploy report per step")

	// A second run finds everything recorded.
	cmd, out = newTestCommand(t, exec)
	cmd.SetArgs(runArgs(recordPath, "--reports", reportsPath))
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 2, exec.writes)
	assert.Contains(t, out.String(), string(deployment.StepAlreadyDone))
}

func TestRun_stepFailure(t *testing.T) {
	t.Parallel()

	recordPath := filepath.Join(t.TempDir(), "record.json")
	exec := &fakeExecutor{writeErr: errors.New("all endpoints failed")}

	cmd, out := newTestCommand(t, exec)
	cmd.SetArgs(runArgs(recordPath))
	err := cmd.Execute()

	require.ErrorContains(t, err, "all endpoints failed")
	assert.Contains(t, out.String(), string(deployment.StepFailed))
}

func TestRun_missingFlags(t *testing.T) {
	t.Parallel()

	cmd, _ := newTestCommand(t, &fakeExecutor{})
	cmd.SetArgs([]string{"run", "--networks", "networks.yaml", "-n", "starknet-sepolia"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "plan", "record" not set`)
}

func TestShow(t *testing.T) {
	t.Parallel()

	recordPath := filepath.Join(t.TempDir(), "record.json")
	store := datastore.NewMemoryRecordStore(sepoliaSelector)
	require.NoError(t, store.Add("token", datastore.ContractRef{
		ClassHash:    "0x1111",
		Address:      "0x7070",
		DeployTxHash: "0x1",
	}))
	require.NoError(t, datastore.SaveRecordFile(recordPath, store))

	cmd, out := newTestCommand(t, &fakeExecutor{})
	cmd.SetArgs([]string{"show", "--record", recordPath})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "chain selector 4115550741429562104")
	assert.Contains(t, out.String(), "0x7070")
	assert.Contains(t, out.String(), "token")
}
