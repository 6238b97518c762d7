package deploy

import (
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Config holds the configuration for deploy commands.
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

// NewCommand creates the deploy command with all subcommands.
//
// Usage:
//
//	rootCmd.AddCommand(deploy.NewCommand(deploy.Config{Logger: lggr}))
func NewCommand(cfg Config) *cobra.Command {
	cfg.deps()

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deployment plan commands",
	}

	cmd.AddCommand(
		newRunCmd(cfg),
		newShowCmd(),
	)

	return cmd
}
