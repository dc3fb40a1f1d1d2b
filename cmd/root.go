// Package cmd defines and implements the CLI commands for the
// noticewatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	development bool
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noticewatch",
		Short: "Polls university notice boards and reports new announcements.",
		Long: `noticewatch periodically polls configured notice board pages,
extracts announcement rows using per-site declarative selector rules,
diffs them against previously seen state, and delivers new rows to a
webhook. Each invocation is one batch run: fetch, diff, notify, persist.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sites.yaml)")
	cmd.PersistentFlags().BoolVar(&development, "dev-log", false, "use the development log format")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
