package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Init opens the storage handle and applies the schema. It is idempotent
// and safe to call on every acquisition: the DDL is all "create if
// absent", so concurrent initialization races are absorbed.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("init", ErrStoreClosed)
	}
	if s.db != nil {
		return nil
	}

	// _journal_mode=WAL: readers do not block the writer
	// _synchronous=NORMAL: safe with WAL, much faster than FULL
	// _busy_timeout=5000: wait up to 5s for a lock instead of failing
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", s.config.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return wrapError("init", fmt.Errorf("%w: %v", ErrConnection, err))
	}

	// The handle accepts one statement at a time; concurrent callers are
	// serialized here while the dispatch semaphore bounds how many wait.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(2 * time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return wrapError("init", fmt.Errorf("failed to enable foreign keys: %w", err))
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return wrapError("init", err)
	}

	s.db = db
	s.logger.Info("database initialized", "path", s.config.Path)

	return nil
}

// createTables applies the fixed schema and bootstraps the singleton
// configuration record when absent.
func createTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO config (id, settings, created, updated)
		VALUES (?, '{}', ?, ?)
	`, ConfigRecordID, now, now)
	if err != nil {
		return fmt.Errorf("failed to bootstrap config record: %w", err)
	}

	return nil
}
