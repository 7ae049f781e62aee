package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magnolia-hms/finance/internal/chart"
	"github.com/magnolia-hms/finance/internal/config"
	"github.com/magnolia-hms/finance/internal/storage/postgres"
	"github.com/magnolia-hms/finance/internal/storage/sqlite"
)

// seedCmd installs the default chart of accounts into the configured durable
// store. It upserts by account code, so rerunning is safe.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default chart of accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		accounts := chart.DefaultChart()

		switch {
		case cfg.DatabaseURL != "":
			pg, err := postgres.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.SeedAccounts(ctx, accounts); err != nil {
				return err
			}
		case cfg.SQLitePath != "":
			sq, err := sqlite.Open(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer sq.Close()
			if err := sq.SeedAccounts(ctx, accounts); err != nil {
				return err
			}
		default:
			return fmt.Errorf("seed requires DATABASE_URL or SQLITE_PATH")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d accounts\n", len(accounts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
