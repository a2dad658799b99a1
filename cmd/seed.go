package cmd

import (
	"github.com/krshsl/hireagent/backend/services"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo customer and agents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := services.LoadConfig(cfgFile)

		db, repo, err := openDatabase(cmd.Context(), config)
		if err != nil {
			return err
		}
		defer db.Close()

		return services.NewDatabaseSeeder(repo).SeedDatabase(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
