package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logFormat  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "netlib",
		Short:         "netlib wires resource lifecycle callbacks to storage, RPC and placement",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file (.yaml, .toml or .json)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format override: json or console")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newLifecycleCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
