package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// newApp builds the root command. The log level is only known once flags are parsed, so the
// shared logger is built on an atomic level adjusted before any command runs.
func newApp() (*cobra.Command, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	lggr, err := logger.NewWith(zap.NewProductionConfig(), func(cfg *zap.Config) {
		cfg.Level = level
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	})
	if err != nil {
		return nil, err
	}

	var logLevel string
	root := &cobra.Command{
		Use:          "starknet-deployer",
		Short:        "Deploy, upgrade and operate Starknet contracts",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			lvl, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			level.SetLevel(lvl)

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = lggr.Sync()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	cmds := commands.New(lggr)
	root.AddCommand(
		cmds.Upgrade(),
		cmds.Deploy(),
		cmds.Transfer(),
	)

	return root, nil
}
