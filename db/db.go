package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// NewDB opens a connection to dsn, verifies it and makes sure the hestia
// schema exists
func NewDB(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

var tables = []struct {
	name string
	ddl  string
}{
	{"targets", `
		CREATE TABLE IF NOT EXISTS hestia.targets (
			id SERIAL PRIMARY KEY,
			agency TEXT NOT NULL,
			queryurl TEXT NOT NULL,
			method TEXT NOT NULL DEFAULT 'GET',
			headers JSONB,
			post_data JSONB,
			enabled BOOLEAN NOT NULL DEFAULT true,
			user_info JSONB
		)`},
	{"homes", `
		CREATE TABLE IF NOT EXISTS hestia.homes (
			url TEXT NOT NULL,
			address TEXT NOT NULL,
			city TEXT NOT NULL,
			price INTEGER NOT NULL,
			agency TEXT NOT NULL,
			date_added TIMESTAMPTZ NOT NULL DEFAULT now(),
			sqm INTEGER
		)`},
	{"subscribers", `
		CREATE TABLE IF NOT EXISTS hestia.subscribers (
			id SERIAL PRIMARY KEY,
			telegram_id BIGINT UNIQUE NOT NULL,
			telegram_enabled BOOLEAN NOT NULL DEFAULT true,
			user_level INTEGER NOT NULL DEFAULT 0,
			date_added TIMESTAMPTZ NOT NULL DEFAULT now(),
			filter_min_price INTEGER NOT NULL DEFAULT 500,
			filter_max_price INTEGER NOT NULL DEFAULT 2000,
			filter_cities JSONB NOT NULL DEFAULT '[]',
			filter_agencies JSONB NOT NULL DEFAULT '[]',
			filter_min_sqm INTEGER NOT NULL DEFAULT 0,
			lang TEXT NOT NULL DEFAULT 'en'
		)`},
	{"meta", `
		CREATE TABLE IF NOT EXISTS hestia.meta (
			id TEXT PRIMARY KEY,
			scraper_halted BOOLEAN NOT NULL DEFAULT false,
			devmode_enabled BOOLEAN NOT NULL DEFAULT false,
			donation_link TEXT NOT NULL DEFAULT '',
			donation_link_updated TIMESTAMPTZ
		)`},
	{"job_runs", `
		CREATE TABLE IF NOT EXISTS hestia.job_runs (
			name TEXT PRIMARY KEY,
			last_fired TIMESTAMPTZ NOT NULL
		)`},
}

var indexes = []struct {
	name string
	ddl  string
}{
	{"homes(agency, date_added)", `CREATE INDEX IF NOT EXISTS idx_homes_agency_date ON hestia.homes(agency, date_added)`},
	{"subscribers(telegram_enabled)", `CREATE INDEX IF NOT EXISTS idx_subscribers_enabled ON hestia.subscribers(telegram_enabled)`},
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema(ctx context.Context) error {
	// The schema is normally provisioned together with the bot; lacking the
	// permission to create it is not fatal.
	if _, err := db.conn.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS hestia`); err != nil {
		db.logger.Info("db: could not create schema (may already exist)", "error", err)
	}

	for _, table := range tables {
		if _, err := db.conn.ExecContext(ctx, table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for _, index := range indexes {
		if _, err := db.conn.ExecContext(ctx, index.ddl); err != nil {
			db.logger.Warn("db: failed to create index", "index", index.name, "error", err)
		}
	}

	db.logger.Debug("db: schema initialized")
	return nil
}
