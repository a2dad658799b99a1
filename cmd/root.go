package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/krshsl/hireagent/backend/repository"
	"github.com/krshsl/hireagent/backend/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hireagent"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hireagent serves AI interview agents that screen applicants for a customer's open positions",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(viper.GetBool("json"), viper.GetBool("debug"))
		},
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is .env in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", true, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setupLogger(json, debug bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openDatabase connects and migrates the schema.
func openDatabase(ctx context.Context, config *services.Config) (*repository.Database, *repository.GORMRepository, error) {
	db, err := repository.Open(ctx, repository.Options{
		Driver:       config.Database.Driver,
		URL:          config.Database.URL,
		LogLevel:     config.Database.LogLevel,
		MaxIdleConns: config.Database.MaxIdleConns,
		MaxOpenConns: config.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	repo := repository.NewGORMRepository(db.Gorm)
	if err := repo.AutoMigrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, repo, nil
}
