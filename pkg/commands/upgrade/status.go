package upgrade

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	timelock "github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/upgrade"
)

func newStatusCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status <contract>...",
		Short: "Show the upgrade state of contracts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := parseContracts(args)
			if err != nil {
				return err
			}

			c, ctx, cancel, err := coordinator(cmd, cfg, false)
			if err != nil {
				return err
			}
			defer cancel()

			statuses := c.StatusBatch(ctx, contracts)
			renderStatuses(cmd.OutOrStdout(), statuses)

			for _, s := range statuses {
				if s.Err != nil {
					return errSomeFailed
				}
			}

			return nil
		},
	}
}

func renderStatuses(w io.Writer, statuses []timelock.Status) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Contract", "State", "Pending Class", "Ready At", "Delay", "Error"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: false, Right: false, Top: true, Bottom: true})

	for _, s := range statuses {
		if s.Err != nil {
			table.Append([]string{s.Contract.String(), "", "", "", "", s.Err.Error()})
			continue
		}

		pending, readyAt := "-", "-"
		if s.Info.Pending() {
			pending = s.Info.PendingClassHash.String()
			readyAt = s.Info.ReadyAt().UTC().Format(time.RFC3339)
		}
		table.Append([]string{
			s.Contract.String(),
			string(s.State),
			pending,
			readyAt,
			strconv.FormatUint(uint64(s.Info.DelaySeconds), 10) + "s",
			"",
		})
	}

	table.Render()
}
