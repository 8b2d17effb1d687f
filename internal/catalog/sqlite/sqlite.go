// Package sqlite implements catalog.Store on top of modernc.org/sqlite,
// the same pure-Go driver the teacher uses, with the same single-writer
// connection pool tuning.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Storage implements catalog.Store.
type Storage struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// New opens (and migrates) a SQLite-backed catalog store at dbPath.
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer; reads still proceed
	// concurrently under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Storage) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS api_keys (
		api_key        TEXT PRIMARY KEY,
		tier           TEXT NOT NULL DEFAULT 'free',
		credits        INTEGER NOT NULL DEFAULT 0,
		daily_used     INTEGER NOT NULL DEFAULT 0,
		daily_reset_at DATETIME NOT NULL,
		is_active      INTEGER NOT NULL DEFAULT 1,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS payments (
		tx_hash         TEXT PRIMARY KEY,
		api_key         TEXT NOT NULL REFERENCES api_keys(api_key),
		from_address    TEXT NOT NULL,
		to_address      TEXT NOT NULL,
		value_wei       TEXT NOT NULL,
		credits_granted INTEGER NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_payments_apikey ON payments(api_key);

	CREATE TABLE IF NOT EXISTS protocols (
		slug         TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		adapter_type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tokens (
		address            TEXT PRIMARY KEY,
		symbol             TEXT NOT NULL,
		decimals           INTEGER NOT NULL,
		is_stablecoin      INTEGER NOT NULL DEFAULT 0,
		is_anchor          INTEGER NOT NULL DEFAULT 0,
		external_price_id  TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tokens_anchor ON tokens(is_anchor);

	CREATE TABLE IF NOT EXISTS contracts (
		address       TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		protocol_slug TEXT REFERENCES protocols(slug)
	);

	CREATE TABLE IF NOT EXISTS dex_pools (
		address         TEXT PRIMARY KEY,
		protocol_slug   TEXT NOT NULL REFERENCES protocols(slug),
		token0          TEXT NOT NULL,
		token1          TEXT NOT NULL,
		farm_pool_index INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pools_protocol ON dex_pools(protocol_slug);
	CREATE INDEX IF NOT EXISTS idx_pools_token0 ON dex_pools(token0);
	CREATE INDEX IF NOT EXISTS idx_pools_token1 ON dex_pools(token1);

	CREATE TABLE IF NOT EXISTS lending_markets (
		address       TEXT PRIMARY KEY,
		protocol_slug TEXT NOT NULL REFERENCES protocols(slug),
		underlying    TEXT NOT NULL,
		comptroller   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_markets_protocol ON lending_markets(protocol_slug);

	CREATE TABLE IF NOT EXISTS request_logs (
		id           TEXT PRIMARY KEY,
		trace_id     TEXT NOT NULL,
		api_key      TEXT,
		tool_name    TEXT NOT NULL,
		latency_ms   INTEGER NOT NULL,
		status       TEXT NOT NULL,
		error_code   INTEGER,
		ip_address   TEXT,
		request_size INTEGER,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_logs_created ON request_logs(created_at);
	CREATE INDEX IF NOT EXISTS idx_logs_tool ON request_logs(tool_name);
	CREATE INDEX IF NOT EXISTS idx_logs_apikey ON request_logs(api_key);

	CREATE TABLE IF NOT EXISTS system_config (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping performs a cheap round-trip for the /health probe.
func (s *Storage) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStorageClosed
	}
	return s.db.Ping()
}

// Close closes the database connection.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
