// Package db opens the configured storage backend, applies migrations and
// seeds the default accounts.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/unilost/unilost/internal/config"
	"github.com/unilost/unilost/internal/store"
	"github.com/unilost/unilost/internal/store/postgres"
	"github.com/unilost/unilost/internal/store/sqlite"
)

// Open selects the backend from cfg, migrates it and returns a ready store.
// The caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.UsePostgres() {
		pool, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := MigratePostgres(ctx, cfg.URL); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("using PostgreSQL database")
		return postgres.New(pool), nil
	}

	sqlDB, err := OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := MigrateSQLite(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	slog.Info("using SQLite database", "path", cfg.SQLitePath)
	return sqlite.New(sqlDB), nil
}

// OpenSQLite opens a SQLite database file. Pragmas are passed in the DSN so
// that every pooled connection gets them, not just the first.
func OpenSQLite(path string) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// OpenPostgres creates a connection pool and pings it.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
