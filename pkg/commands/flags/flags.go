// Package flags provides reusable flag helpers for CLI commands.
//
// This package should only contain common flags that can be used by multiple commands
// to ensure unified naming and consistent behavior across the CLI.
// Command-specific flags should be defined locally in the command file.
package flags

import (
	"github.com/spf13/cobra"
)

// MustString returns the string value, ignoring the error.
// Safe to use with registered flags where GetString cannot fail.
func MustString(s string, _ error) string { return s }

// MustBool returns the bool value, ignoring the error.
// Safe to use with registered flags where GetBool cannot fail.
func MustBool(b bool, _ error) bool { return b }

// Network adds the persistent flags selecting the network a command group runs against:
// --networks (the network file, required), --network/-n (the network name, required) and
// --secrets (the account file, optional, env vars are used when empty).
//
// Usage:
//
//	flags.Network(cmd)
//	// later in RunE:
//	name := flags.MustString(cmd.Flags().GetString("network"))
func Network(cmd *cobra.Command) {
	cmd.PersistentFlags().String("networks", "", "Network configuration file, YAML or TOML (required)")
	cmd.PersistentFlags().StringP("network", "n", "", "Name of the network to use (required)")
	cmd.PersistentFlags().String("secrets", "", "Account configuration file. Env vars are used when empty")
	_ = cmd.MarkPersistentFlagRequired("networks")
	_ = cmd.MarkPersistentFlagRequired("network")
}
