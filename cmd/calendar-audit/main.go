package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "calendar-audit",
		Short:         "Audit and repair drift between availability and priceCalendar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before configuration")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of text")
	rootCmd.PersistentFlags().BoolVar(&opts.fixtures, "fixtures", false, "load property fixtures first (memory storage)")

	rootCmd.AddCommand(
		runCmd(opts),
		sweepCmd(opts),
		fixCmd(opts),
	)
	return rootCmd
}
