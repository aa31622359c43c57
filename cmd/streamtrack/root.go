package main

import (
	"github.com/spf13/cobra"
)

var logLevel string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "streamtrack",
		Short:         "Local playback engine for a subscription streaming catalogue",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	openCmd := newOpenCommand()
	root.AddCommand(openCmd)
	root.AddCommand(newConfigCommand())
	root.AddCommand(newRefreshCommand())

	// open is the default action when no subcommand is given.
	root.RunE = openCmd.RunE
	root.Flags().AddFlagSet(openCmd.Flags())

	return root
}
