package cmd

import (
	"log/slog"

	"github.com/krshsl/hireagent/backend/services"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := services.LoadConfig(cfgFile)

		db, _, err := openDatabase(cmd.Context(), config)
		if err != nil {
			return err
		}
		defer db.Close()

		slog.Info("Database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
