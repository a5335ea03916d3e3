// Package main provides the dare CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dare",
		Short: "Explainable scoring of a developer's digital footprint",
		Long: `Dare computes per-platform metrics from platform payloads, combines them
into the 0-100 Dare Score and inspects stored score history.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCalcCmd(),
		newScoreCmd(),
		newWeightsCmd(),
		newHistoryCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}
