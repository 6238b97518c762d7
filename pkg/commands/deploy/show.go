package deploy

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/datastore"
)

func newShowCmd() *cobra.Command {
	var recordPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the contracts of a deployment record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, err := datastore.ReadRecordFile(recordPath)
			if err != nil {
				return err
			}

			chainName := "unknown chain"
			if details, derr := starknet.ChainDetails(record.ChainSelector); derr == nil {
				chainName = details.ChainName
			}
			cmd.Printf("%s, chain selector %s\n", chainName, strconv.FormatUint(record.ChainSelector, 10))
			table := newTable(cmd.OutOrStdout(), []string{"Name", "Address", "Class Hash", "Deploy Tx"})
			refs := record.Fetch()
			for _, name := range record.Names() {
				ref := refs[name]
				table.Append([]string{name, ref.Address, ref.ClassHash, ref.DeployTxHash})
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().StringVarP(&recordPath, "record", "r", "", "Deployment record file (required)")
	_ = cmd.MarkFlagRequired("record")

	return cmd
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: false, Right: false, Top: true, Bottom: true})

	return table
}
