package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DB wraps the embedded DuckDB store. All tracking state lives here; the
// store is the single source of truth shared by every service.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the database at path and initializes the schema.
// Pass ":memory:" for a fresh in-memory instance, which is what the tests use.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = ""
	} else {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes to the embedded store are serialized through a single
	// connection; concurrent write transactions on separate DuckDB
	// connections can abort each other on row conflicts.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.InitSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Conn exposes the underlying connection pool for repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// BeginTx starts a transaction on the store.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, nil)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Health checks the database connection
func (db *DB) Health(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// schemaStatements create sequences and tables. Every statement is
// idempotent so InitSchema can run on every startup.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_visits START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_active_sessions START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_page_engagements START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_user_interactions START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_external_link_clicks START 1`,

	`CREATE TABLE IF NOT EXISTS visits (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_visits'),
		ts TIMESTAMP NOT NULL,
		path VARCHAR NOT NULL,
		referrer VARCHAR,
		user_agent VARCHAR,
		identity_hash VARCHAR NOT NULL,
		country VARCHAR,
		city VARCHAR,
		browser_session_id VARCHAR NOT NULL,
		duration BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS pages (
		path VARCHAR PRIMARY KEY,
		title VARCHAR,
		first_visit_time TIMESTAMP NOT NULL,
		last_visit_time TIMESTAMP NOT NULL,
		total_visit_count BIGINT NOT NULL DEFAULT 0,
		unique_visitor_count BIGINT NOT NULL DEFAULT 0,
		avg_duration DOUBLE NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS browser_sessions (
		id VARCHAR PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		page_count BIGINT NOT NULL DEFAULT 1,
		total_duration BIGINT NOT NULL DEFAULT 0,
		user_agent VARCHAR,
		identity_hash VARCHAR NOT NULL,
		country VARCHAR,
		city VARCHAR
	)`,

	`CREATE TABLE IF NOT EXISTS active_sessions (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_active_sessions'),
		browser_session_id VARCHAR NOT NULL,
		identity_hash VARCHAR NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		total_duration BIGINT NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		interaction_count INTEGER NOT NULL DEFAULT 0,
		user_agent VARCHAR,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE INDEX IF NOT EXISTS idx_active_sessions_browser
		ON active_sessions (browser_session_id, is_active)`,

	`CREATE TABLE IF NOT EXISTS page_engagements (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_page_engagements'),
		active_session_id BIGINT NOT NULL,
		page_path VARCHAR NOT NULL,
		page_title VARCHAR,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP,
		duration BIGINT NOT NULL DEFAULT 0,
		interaction_count INTEGER NOT NULL DEFAULT 0,
		scroll_depth INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_engagements_session
		ON page_engagements (active_session_id, page_path)`,

	`CREATE TABLE IF NOT EXISTS user_interactions (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_user_interactions'),
		active_session_id BIGINT NOT NULL,
		ts TIMESTAMP NOT NULL,
		interaction_type VARCHAR NOT NULL,
		page_path VARCHAR NOT NULL,
		details VARCHAR
	)`,

	`CREATE TABLE IF NOT EXISTS external_link_clicks (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_external_link_clicks'),
		ts TIMESTAMP NOT NULL,
		url VARCHAR NOT NULL,
		domain VARCHAR NOT NULL,
		page_path VARCHAR NOT NULL,
		browser_session_id VARCHAR NOT NULL,
		identity_hash VARCHAR NOT NULL,
		click_context VARCHAR
	)`,
}

// clearOrder deletes children before parents so the reset path stays safe
// if foreign keys are ever added to the schema.
var clearOrder = []string{
	"user_interactions",
	"page_engagements",
	"active_sessions",
	"external_link_clicks",
	"visits",
	"browser_sessions",
	"pages",
}

// InitSchema creates all sequences and tables if they do not exist yet.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// Reset deletes all tracked data, children before parents.
func (db *DB) Reset(ctx context.Context) error {
	for _, table := range clearOrder {
		if _, err := db.conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
