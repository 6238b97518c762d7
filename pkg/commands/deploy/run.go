package deploy

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/datastore"
	"github.com/smartcontractkit/starknet-deployments-framework/deployment"
	"github.com/smartcontractkit/starknet-deployments-framework/operations"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/flags"
)

// runTimeout bounds a whole plan run. Declarations are slow, so it is generous.
const runTimeout = time.Hour

func newRunCmd(cfg Config) *cobra.Command {
	var (
		planPath    string
		recordPath  string
		reportsPath string
		retries     uint
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a deployment plan",
		Long: "Run a deployment plan against the selected network. Steps already present in the " +
			"record are skipped, so an interrupted run can be resumed with the same record and reports.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, cfg, planPath, recordPath, reportsPath, retries)
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Deployment plan file, YAML or TOML (required)")
	cmd.Flags().StringVarP(&recordPath, "record", "r", "", "Deployment record file, created if missing (required)")
	cmd.Flags().StringVar(&reportsPath, "reports", "", "Operation reports file. Reports are kept in memory when empty")
	cmd.Flags().UintVar(&retries, "retries", 0, "Retries of a failed step operation. Reverted or unconfirmed transactions are never retried")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("record")
	flags.Network(cmd)

	return cmd
}

// runPlan executes the run command logic.
// This is separated from the RunE closure to improve testability.
func runPlan(cmd *cobra.Command, cfg Config, planPath, recordPath, reportsPath string, retries uint) error {
	deps := cfg.deps()

	steps, err := deps.PlanLoader(planPath)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	chain, err := deps.ChainLoader(ctx, cfg.Logger, chainenv.OptionsFromFlags(cmd, true))
	if err != nil {
		return fmt.Errorf("failed to load chain: %w", err)
	}

	record, err := datastore.LoadRecordFile(recordPath, chain.Selector)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}

	opts := []deployment.Option{deployment.WithRecordPath(recordPath)}
	if reportsPath != "" {
		reporter, rerr := operations.NewFileReporter(reportsPath)
		if rerr != nil {
			return fmt.Errorf("failed to load reports: %w", rerr)
		}
		opts = append(opts, deployment.WithReporter(reporter))
	}
	if retries > 0 {
		opts = append(opts, deployment.WithOperationRetry(operations.RetryPolicy{
			MaxAttempts: retries + 1,
			Delay:       operations.DefaultRetryPolicy.Delay,
		}))
	}

	cmd.Printf("Running %d steps on %s\n", len(steps), chain)
	o := deployment.NewOrchestrator(cfg.Logger, deps.ExecutorFactory(chain), opts...)
	res, err := o.RunPlan(ctx, record, steps)
	if err != nil {
		return err
	}

	renderSteps(cmd.OutOrStdout(), res)

	return res.Err()
}

func renderSteps(w io.Writer, res deployment.Result) {
	table := newTable(w, []string{"Step", "Status", "Address", "Class Hash", "Error"})
	for _, s := range res.Steps {
		row := []string{s.Step, string(s.Status), s.Ref.Address, s.Ref.ClassHash, ""}
		if s.Err != nil {
			row[4] = s.Err.Error()
		}
		table.Append(row)
	}
	table.Render()
}
