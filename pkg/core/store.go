package core

import (
	"database/sql"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	_ "modernc.org/sqlite" // SQLite driver
)

// Row is one result row: a mapping of column name to canonical value,
// with embedded references normalized to "table:key" strings.
type Row map[string]any

// Store is the SQLite-backed record/relationship store. It owns the
// single storage handle; every other component reaches storage only
// through its Do dispatch.
type Store struct {
	db     *sql.DB
	config Config
	logger Logger
	sem    *semaphore.Weighted
	mu     sync.RWMutex
	closed bool
}

// New creates a store with the default configuration.
func New(path string) (*Store, error) {
	return NewWithConfig(DefaultConfig(path))
}

// NewWithConfig creates a store with custom configuration.
func NewWithConfig(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, wrapError("init", fmt.Errorf("database path cannot be empty"))
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}
	if config.Logger == nil {
		config.Logger = NopLogger()
	}

	return &Store{
		config: config,
		logger: config.Logger,
		sem:    semaphore.NewWeighted(int64(config.MaxInFlight)),
	}, nil
}
