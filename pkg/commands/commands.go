// Package commands provides the CLI command groups of the deployer.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory (recommended for most use cases):
//
//	cmds := commands.New(lggr)
//	app.AddCommand(
//	    cmds.Upgrade(),
//	    cmds.Deploy(),
//	    cmds.Transfer(),
//	)
//
// 2. Via direct package imports (for advanced DI/testing):
//
//	import "github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/upgrade"
//
//	app.AddCommand(upgrade.NewCommand(upgrade.Config{
//	    Logger: lggr,
//	    Deps:   upgrade.Deps{...}, // inject fakes for testing
//	}))
package commands

import (
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/deploy"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/transfer"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/upgrade"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
// This allows setting the logger once and reusing it across all commands.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
// The logger will be shared across all commands created by this factory.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// Upgrade creates the upgrade command group driving the upgrade timelock of contracts.
func (c *Commands) Upgrade() *cobra.Command {
	return upgrade.NewCommand(upgrade.Config{Logger: c.lggr})
}

// Deploy creates the deploy command group running deployment plans.
func (c *Commands) Deploy() *cobra.Command {
	return deploy.NewCommand(deploy.Config{Logger: c.lggr})
}

// Transfer creates the balance checked token transfer command.
func (c *Commands) Transfer() *cobra.Command {
	return transfer.NewCommand(transfer.Config{Logger: c.lggr})
}
