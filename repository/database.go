package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options describe how to reach the database.
type Options struct {
	Driver       string
	URL          string
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

// Database bundles the gorm handle with the pgx pool behind it, when there is one.
type Database struct {
	Gorm *gorm.DB
	Pool *pgxpool.Pool
}

// Open connects to postgres through a pgx pool, or to sqlite for local runs
// and tests. SQLite gets a single connection so transactions serialize.
func Open(ctx context.Context, opts Options) (*Database, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(gormLogLevel(opts.LogLevel))}

	switch strings.ToLower(opts.Driver) {
	case "", DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database url: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(opts.MaxOpenConns)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), cfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to open gorm on postgres: %w", err)
		}
		slog.Info("Connected to database", "driver", DriverPostgres)
		return &Database{Gorm: db, Pool: pool}, nil

	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(opts.URL), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		slog.Info("Connected to database", "driver", DriverSQLite)
		return &Database{Gorm: db}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Ping checks the pool when there is one and the sql handle otherwise.
func (d *Database) Ping(ctx context.Context) error {
	if d.Pool != nil {
		return d.Pool.Ping(ctx)
	}
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() {
	if sqlDB, err := d.Gorm.DB(); err == nil {
		sqlDB.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
