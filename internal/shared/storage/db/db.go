package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/telemetry"
)

const defaultPingTimeout = 5 * time.Second

// Options sizes the document store pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// ServerOptions suits the trigger server and queue worker. Writes are
// sequential per run, so a small pool covers overlapping runs.
func ServerOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     defaultPingTimeout,
	}
}

// CLIOptions suits one-shot syncctl runs and migrations.
func CLIOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

// WithConfig applies the DB_* settings that are set in cfg.
func (o Options) WithConfig(cfg config.Config) Options {
	if cfg.DBMaxOpenConns > 0 {
		o.MaxOpenConns = cfg.DBMaxOpenConns
	}
	if cfg.DBMaxIdleConns > 0 {
		o.MaxIdleConns = cfg.DBMaxIdleConns
	}
	if cfg.DBConnMaxLifetime > 0 {
		o.ConnMaxLifetime = cfg.DBConnMaxLifetime
	}
	if cfg.DBConnMaxIdleTime > 0 {
		o.ConnMaxIdleTime = cfg.DBConnMaxIdleTime
	}
	if cfg.DBPingTimeout > 0 {
		o.PingTimeout = cfg.DBPingTimeout
	}
	if o.MaxIdleConns > o.MaxOpenConns && o.MaxOpenConns > 0 {
		o.MaxIdleConns = o.MaxOpenConns
	}
	return o
}

// Open connects to DATABASE_URL, sizes the pool and pings once. The caller
// owns the returned handle.
func Open(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)
	database.SetMaxIdleConns(opts.MaxIdleConns)
	database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	telemetry.Info("db.open", map[string]any{
		"max_open":      opts.MaxOpenConns,
		"max_idle":      opts.MaxIdleConns,
		"idle_time_ms":  opts.ConnMaxIdleTime.Milliseconds(),
		"lifetime_ms":   opts.ConnMaxLifetime.Milliseconds(),
		"open_at_start": database.Stats().OpenConnections,
	})
	return database, nil
}
