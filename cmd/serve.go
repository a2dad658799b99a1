package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/krshsl/hireagent/backend/services"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := services.LoadConfig(cfgFile)
	slog.Info("Starting hireagent", "version", services.Version)

	db, repo, err := openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Connected to database", "driver", config.Database.Driver)

	if config.Database.Seed {
		if err := services.NewDatabaseSeeder(repo).SeedDatabase(ctx); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	server := services.NewServer(config)
	server.SetDatabase(db)
	if err := server.InitializeServices(ctx); err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}

	return server.Start(ctx)
}
