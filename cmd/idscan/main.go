// Package main provides the idscan command line tool for parsing ID scans
// and maintaining the record database offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/id-scanner/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "idscan",
		Short:         "Parse ID scans and manage the ID record database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("loglevel")
			logging.InitGlobalLogger(logging.ParseLogLevel(level), logging.FormatText)
		},
	}
	root.PersistentFlags().StringP("loglevel", "l", "warn", "Set log level. Available: debug, info, warn, error")

	root.AddCommand(newParseCmd(), newClassifyCmd(), newPlansCmd(), newEnrollCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
