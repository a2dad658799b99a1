package cmd

import (
	"fmt"

	"github.com/krshsl/hireagent/backend/services"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", app, services.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
