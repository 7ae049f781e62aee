// Package commands wires the financed CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "financed",
	Short: "Back-office ledger and financial reporting service",
	Long: "financed runs the hotel and restaurant back-office ledger: a double-entry\n" +
		"journal, document posting, financial statements, aging, and budget control.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
