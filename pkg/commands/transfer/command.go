package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	tokentransfer "github.com/smartcontractkit/starknet-deployments-framework/chain/starknet/transfer"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/flags"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

const commandTimeout = 15 * time.Minute

// Config holds the configuration for the transfer command.
type Config struct {
	// Logger is the logger to use for command output. Required.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

type transferFlags struct {
	token    string
	from     string
	to       string
	amount   amountValue
	decimals uint8
}

// NewCommand creates the transfer command.
//
// Usage:
//
//	rootCmd.AddCommand(transfer.NewCommand(transfer.Config{Logger: lggr}))
func NewCommand(cfg Config) *cobra.Command {
	cfg.deps()

	var f transferFlags

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens after checking the source balance",
		Long: "Transfer tokens after checking the source balance. Nothing is submitted when the " +
			"source holds less than the amount. Balances are read again after confirmation and any " +
			"unexpected change is reported.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, cfg, f)
		},
	}

	cmd.Flags().StringVar(&f.token, "token", "", "Token contract address (required)")
	cmd.Flags().StringVar(&f.to, "to", "", "Destination account (required)")
	cmd.Flags().StringVar(&f.from, "from", "", "Source account. Defaults to the signing account")
	cmd.Flags().Var(&f.amount, "amount", "Amount in token units, e.g. 1.5 (required)")
	cmd.Flags().Uint8Var(&f.decimals, "decimals", 18, "Decimals of the token")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	flags.Network(cmd)

	return cmd
}

func runTransfer(cmd *cobra.Command, cfg Config, f transferFlags) error {
	intent, err := f.intent()
	if err != nil {
		return err
	}

	deps := cfg.deps()
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	chain, err := deps.ChainLoader(ctx, cfg.Logger, chainenv.OptionsFromFlags(cmd, true))
	if err != nil {
		return fmt.Errorf("failed to load chain: %w", err)
	}

	res, err := deps.TransfererFactory(cfg.Logger, chain).Transfer(ctx, intent)
	if err != nil {
		return err
	}

	cmd.Printf("Transfer of %s confirmed in tx %s\n", f.amount.String(), res.Operation.TxHash)
	renderBalances(cmd.OutOrStdout(), res, f.decimals)
	if !res.Verified {
		cmd.PrintErrf("WARNING: balances after the transfer do not match the amount:\n")
		for _, a := range res.Anomalies {
			cmd.PrintErrf("  - %s\n", a)
		}
	}

	return nil
}

func (f transferFlags) intent() (tokentransfer.Intent, error) {
	token, err := parseAddress("token", f.token)
	if err != nil {
		return tokentransfer.Intent{}, err
	}
	to, err := parseAddress("to", f.to)
	if err != nil {
		return tokentransfer.Intent{}, err
	}
	var from *felt.Felt
	if f.from != "" {
		if from, err = parseAddress("from", f.from); err != nil {
			return tokentransfer.Intent{}, err
		}
	}

	raw, err := toBaseUnits(f.amount.d, f.decimals)
	if err != nil {
		return tokentransfer.Intent{}, err
	}
	amount, err := starknet.NewUint256(raw)
	if err != nil {
		return tokentransfer.Intent{}, err
	}

	return tokentransfer.Intent{Token: token, From: from, To: to, Amount: amount}, nil
}

func parseAddress(flag, s string) (*felt.Felt, error) {
	f, err := starknet.ParseFelt(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	if f.IsZero() {
		return nil, fmt.Errorf("invalid --%s: zero address", flag)
	}

	return f, nil
}

func renderBalances(w io.Writer, res tokentransfer.Result, decimals uint8) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Account", "Before", "After"})
	table.SetBorders(tablewriter.Border{Left: false, Right: false, Top: true, Bottom: true})
	table.AppendBulk([][]string{
		{"from", fromBaseUnits(res.Before.From, decimals), fromBaseUnits(res.After.From, decimals)},
		{"to", fromBaseUnits(res.Before.To, decimals), fromBaseUnits(res.After.To, decimals)},
	})
	table.Render()
}
