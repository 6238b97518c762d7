package upgrade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	timelock "github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/upgrade"
)

var errSomeFailed = errors.New("one or more contracts failed")

func newScheduleCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <contract> <class-hash> [<contract> <class-hash>...]",
		Short: "Schedule upgrades to declared classes",
		Long: "Schedule upgrades to declared classes. Several contract and class hash pairs can be " +
			"given; each contract is scheduled independently.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("expected pairs of <contract> <class-hash>")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs := make([]timelock.ScheduleRequest, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				contract, err := parseNonZero("contract address", args[i])
				if err != nil {
					return err
				}
				classHash, err := parseNonZero("class hash", args[i+1])
				if err != nil {
					return err
				}
				reqs = append(reqs, timelock.ScheduleRequest{Contract: contract, ClassHash: classHash})
			}

			c, ctx, cancel, err := coordinator(cmd, cfg, true)
			if err != nil {
				return err
			}
			defer cancel()

			results := c.ScheduleBatch(ctx, reqs)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Contract", "Class", "Tx", "Ready At", "Error"})
			table.SetAutoWrapText(false)
			failed := false
			for _, r := range results {
				row := []string{r.Request.Contract.String(), r.Request.ClassHash.String(), "", "", ""}
				if r.Err != nil {
					failed = true
					row[4] = r.Err.Error()
				} else {
					row[2] = txHash(r.Result)
					row[3] = time.Unix(int64(r.Result.ReadyTime), 0).UTC().Format(time.RFC3339)
				}
				table.Append(row)
			}
			table.Render()

			if failed {
				return errSomeFailed
			}

			return nil
		},
	}
}

func newExecuteCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <contract>",
		Short: "Execute a scheduled upgrade once its delay has elapsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, cfg, args[0], func(ctx context.Context, c Coordinator, contract *felt.Felt) (timelock.Result, error) {
				return c.Execute(ctx, contract)
			})
		},
	}
}

func newCancelCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <contract>",
		Short: "Cancel a scheduled upgrade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, cfg, args[0], func(ctx context.Context, c Coordinator, contract *felt.Felt) (timelock.Result, error) {
				return c.Cancel(ctx, contract)
			})
		},
	}
}

func newSetDelayCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set-delay <contract> <seconds>",
		Short: "Change the upgrade delay of a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delay, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid delay %q: %w", args[1], err)
			}

			return runTransition(cmd, cfg, args[0], func(ctx context.Context, c Coordinator, contract *felt.Felt) (timelock.Result, error) {
				return c.SetDelay(ctx, contract, uint32(delay))
			})
		},
	}
}

type transitionFunc func(ctx context.Context, c Coordinator, contract *felt.Felt) (timelock.Result, error)

// runTransition applies fn to the contract given as argument and prints its outcome.
func runTransition(cmd *cobra.Command, cfg Config, arg string, fn transitionFunc) error {
	contracts, err := parseContracts([]string{arg})
	if err != nil {
		return err
	}

	c, ctx, cancel, err := coordinator(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := fn(ctx, c, contracts[0])
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)

	return nil
}

func printResult(w io.Writer, res timelock.Result) {
	if res.NoOp {
		fmt.Fprintf(w, "Nothing to submit: %s is already in the requested state\n", res.Contract)
		return
	}

	status := "-"
	if res.Operation != nil {
		status = string(res.Operation.FinalStatus)
	}
	fmt.Fprintf(w, "%s on %s confirmed in tx %s (%s)\n", res.Entrypoint, res.Contract, txHash(res), status)
}

func txHash(res timelock.Result) string {
	if res.Operation == nil || res.Operation.TxHash == nil {
		return "-"
	}

	return res.Operation.TxHash.String()
}
