// Package notebase is the persistence facade: a uniform, graph-oriented
// record/relationship interface (create, query, update, upsert, delete,
// relate) backed by a purely relational engine. Callers treat entities
// and directed edges between them as first-class operations without
// caring whether the store underneath is graph-native or relational.
package notebase

import (
	"context"
	"errors"
	"fmt"

	"github.com/liliang-cn/notebase/pkg/core"
	"github.com/liliang-cn/notebase/pkg/graph"
)

// ErrUnsupportedEngine is returned when the configured engine has no
// implementation in this build.
var ErrUnsupportedEngine = errors.New("unsupported storage engine")

// Repository is the operation set exposed to collaborating layers. The
// engine behind it is selected once at process start, never per call.
type Repository interface {
	Create(ctx context.Context, table string, fields map[string]any) (core.Row, error)
	Query(ctx context.Context, statement string, params map[string]any) ([]core.Row, error)
	Update(ctx context.Context, table, id string, fields map[string]any) (core.Row, error)
	Upsert(ctx context.Context, table, id string, fields map[string]any, addTimestamp bool) (core.Row, error)
	Delete(ctx context.Context, id any) error
	BulkInsert(ctx context.Context, table string, rows []map[string]any, ignoreDuplicates bool) ([]core.Row, error)
	Relate(ctx context.Context, source any, relType string, target any, data map[string]any) (*graph.Edge, error)
	EnsureReference(value any) (string, error)
	NormalizeReferences(structure any) any
	Close() error
}

// DB is the SQLite-backed Repository implementation.
type DB struct {
	store *core.Store
	graph *graph.GraphStore
}

var _ Repository = (*DB)(nil)

// Open constructs the configured engine, opens its storage file and
// bootstraps the schema. The caller owns the returned handle and must
// Close it.
func Open(cfg Config) (*DB, error) {
	if cfg.Engine == "" {
		cfg.Engine = EngineSQLite
	}
	if cfg.Engine != EngineSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, cfg.Engine)
	}

	coreCfg := core.DefaultConfig(cfg.Path)
	if cfg.Logger != nil {
		coreCfg.Logger = cfg.Logger
	}
	if cfg.MaxInFlight > 0 {
		coreCfg.MaxInFlight = cfg.MaxInFlight
	}

	store, err := core.NewWithConfig(coreCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return &DB{
		store: store,
		graph: graph.New(store),
	}, nil
}

// Store returns the underlying record store.
func (db *DB) Store() *core.Store { return db.store }

// Graph returns the relationship operator.
func (db *DB) Graph() *graph.GraphStore { return db.graph }

// Close releases the storage handle.
func (db *DB) Close() error { return db.store.Close() }

// Create inserts a new record into an entity table.
func (db *DB) Create(ctx context.Context, table string, fields map[string]any) (core.Row, error) {
	return db.store.Create(ctx, table, fields)
}

// Query executes a parameterized statement.
func (db *DB) Query(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
	return db.store.Query(ctx, statement, params)
}

// Update applies a partial update to an existing record.
func (db *DB) Update(ctx context.Context, table, id string, fields map[string]any) (core.Row, error) {
	return db.store.Update(ctx, table, id, fields)
}

// Upsert creates or updates depending on id presence and existence.
func (db *DB) Upsert(ctx context.Context, table, id string, fields map[string]any, addTimestamp bool) (core.Row, error) {
	return db.store.Upsert(ctx, table, id, fields, addTimestamp)
}

// Delete removes a record and cascades to its edges.
func (db *DB) Delete(ctx context.Context, id any) error {
	return db.store.Delete(ctx, id)
}

// BulkInsert inserts multiple rows, strictly or best-effort.
func (db *DB) BulkInsert(ctx context.Context, table string, rows []map[string]any, ignoreDuplicates bool) ([]core.Row, error) {
	return db.store.BulkInsert(ctx, table, rows, ignoreDuplicates)
}

// Relate creates or replaces a directed edge between two records.
func (db *DB) Relate(ctx context.Context, source any, relType string, target any, data map[string]any) (*graph.Edge, error) {
	return db.graph.Relate(ctx, source, relType, target, data)
}

// EnsureReference normalizes a reference value to a canonical id string.
func (db *DB) EnsureReference(value any) (string, error) {
	return core.EnsureRecordID(value)
}

// NormalizeReferences normalizes every embedded reference in a nested
// structure to canonical string form.
func (db *DB) NormalizeReferences(structure any) any {
	return core.NormalizeIDs(structure)
}

// SearchText runs a full-text match over the searchable entity tables.
func (db *DB) SearchText(ctx context.Context, query string, limit int) ([]core.SearchHit, error) {
	return db.store.SearchText(ctx, query, limit)
}

// Settings returns the process-wide settings mapping.
func (db *DB) Settings(ctx context.Context) (map[string]any, error) {
	return db.store.Settings(ctx)
}

// UpdateSettings replaces the process-wide settings mapping.
func (db *DB) UpdateSettings(ctx context.Context, settings map[string]any) error {
	return db.store.UpdateSettings(ctx, settings)
}
