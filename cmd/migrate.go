package cmd

import (
	"github.com/jjenkins/parliament/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the ministry reference set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptContext()
		defer cancel()

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			return err
		}
		logger.Info("Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
