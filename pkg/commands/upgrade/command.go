package upgrade

import (
	"context"
	"fmt"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/chainenv"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/flags"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// commandTimeout bounds a whole command, confirmations included.
const commandTimeout = 15 * time.Minute

// Config holds the configuration for upgrade commands.
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

// NewCommand creates the upgrade command with all subcommands.
//
// Usage:
//
//	rootCmd.AddCommand(upgrade.NewCommand(upgrade.Config{Logger: lggr}))
func NewCommand(cfg Config) *cobra.Command {
	cfg.deps()

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade timelock commands",
	}

	cmd.AddCommand(
		newStatusCmd(cfg),
		newScheduleCmd(cfg),
		newExecuteCmd(cfg),
		newCancelCmd(cfg),
		newSetDelayCmd(cfg),
	)

	flags.Network(cmd)

	return cmd
}

// coordinator loads the selected chain and returns a Coordinator over it, with a context bounded
// by commandTimeout. The caller must call cancel.
func coordinator(
	cmd *cobra.Command, cfg Config, requireSigner bool,
) (Coordinator, context.Context, context.CancelFunc, error) {
	deps := cfg.deps()
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)

	chain, err := deps.ChainLoader(ctx, cfg.Logger, chainenv.OptionsFromFlags(cmd, requireSigner))
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to load chain: %w", err)
	}

	return deps.CoordinatorFactory(cfg.Logger, chain), ctx, cancel, nil
}

// parseContracts parses contract addresses given as arguments.
func parseContracts(args []string) ([]*felt.Felt, error) {
	out := make([]*felt.Felt, 0, len(args))
	for _, a := range args {
		f, err := parseNonZero("contract address", a)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}

	return out, nil
}

func parseNonZero(kind, s string) (*felt.Felt, error) {
	f, err := starknet.ParseFelt(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", kind, s, err)
	}
	if f.IsZero() {
		return nil, fmt.Errorf("invalid %s %q: must not be zero", kind, s)
	}

	return f, nil
}
