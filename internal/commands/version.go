package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magnolia-hms/finance/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "financed "+buildinfo.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
