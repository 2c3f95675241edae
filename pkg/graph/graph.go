// Package graph implements directed relationships between records as
// per-relation-type edge tables on the relational store. An edge holds
// exactly two endpoint references, "in" (source) and "out" (target),
// plus an optional JSON payload; the endpoint pair is unique within a
// relation table, so re-relating the same pair replaces the payload
// instead of duplicating the edge.
package graph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/liliang-cn/notebase/internal/encoding"
	"github.com/liliang-cn/notebase/pkg/core"
)

// Edge is a directed relationship instance between two records.
type Edge struct {
	ID         string         `json:"id"`
	In         string         `json:"in"`
	Out        string         `json:"out"`
	Properties map[string]any `json:"properties,omitempty"`
	Created    string         `json:"created"`
	Updated    string         `json:"updated"`
}

// Direction selects which endpoint an edge lookup matches.
type Direction string

const (
	// DirOut matches edges leaving the record ("in" = record).
	DirOut Direction = "out"
	// DirIn matches edges arriving at the record ("out" = record).
	DirIn Direction = "in"
	// DirBoth matches either endpoint.
	DirBoth Direction = "both"
)

// GraphStore provides edge operations on top of the record store. All
// storage access goes through the store's dispatch; the graph never
// holds its own handle.
type GraphStore struct {
	store *core.Store
}

// New creates a graph store over an existing record store.
func New(s *core.Store) *GraphStore {
	return &GraphStore{store: s}
}

// Relate creates or replaces the directed edge (source)-[relType]->(target).
// Both endpoints are validated and must exist; the upsert is keyed on the
// ("in", "out") pair, so a second call with the same endpoints replaces
// the payload rather than erroring.
func (g *GraphStore) Relate(ctx context.Context, source any, relType string, target any, data map[string]any) (*Edge, error) {
	rel, err := relationTable("relate", relType)
	if err != nil {
		return nil, err
	}

	in, err := core.EnsureRecordID(source)
	if err != nil {
		return nil, wrapError("relate", err)
	}
	out, err := core.EnsureRecordID(target)
	if err != nil {
		return nil, wrapError("relate", err)
	}

	payload, err := encoding.EncodeJSON(data)
	if err != nil {
		return nil, wrapError("relate", fmt.Errorf("%w: %v", core.ErrSerialization, err))
	}

	edgeID := core.GenerateID(rel)
	ts := core.Timestamp()

	var edge *Edge
	err = g.store.Do(ctx, "relate", func(ctx context.Context, db *sql.DB) error {
		for _, endpoint := range []string{in, out} {
			if err := recordExists(ctx, db, endpoint); err != nil {
				return err
			}
		}

		stmt := fmt.Sprintf(`
			INSERT INTO %s (id, "in", "out", properties, created, updated)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT("in", "out") DO UPDATE SET
				properties = excluded.properties,
				updated = excluded.updated
		`, rel)
		if _, err := db.ExecContext(ctx, stmt, edgeID, in, out, nullable(payload), ts, ts); err != nil {
			return err
		}

		edge, err = readEdge(ctx, db, rel, in, out)
		return err
	})
	if err != nil {
		return nil, wrapOnce("relate", err)
	}

	return edge, nil
}

// Unrelate removes the edge between two endpoints. Removing an edge that
// does not exist is a no-op.
func (g *GraphStore) Unrelate(ctx context.Context, source any, relType string, target any) error {
	rel, err := relationTable("unrelate", relType)
	if err != nil {
		return err
	}
	in, err := core.EnsureRecordID(source)
	if err != nil {
		return wrapError("unrelate", err)
	}
	out, err := core.EnsureRecordID(target)
	if err != nil {
		return wrapError("unrelate", err)
	}

	err = g.store.Do(ctx, "unrelate", func(ctx context.Context, db *sql.DB) error {
		stmt := fmt.Sprintf(`DELETE FROM %s WHERE "in" = ? AND "out" = ?`, rel)
		_, err := db.ExecContext(ctx, stmt, in, out)
		return err
	})
	return wrapOnce("unrelate", err)
}

// DeleteEdge removes one edge by its id.
func (g *GraphStore) DeleteEdge(ctx context.Context, edgeID string) error {
	rid, err := core.ParseID(edgeID)
	if err != nil {
		return wrapError("delete_edge", err)
	}
	rel, err := relationTable("delete_edge", rid.Table)
	if err != nil {
		return err
	}

	err = g.store.Do(ctx, "delete_edge", func(ctx context.Context, db *sql.DB) error {
		stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", rel)
		_, err := db.ExecContext(ctx, stmt, edgeID)
		return err
	})
	return wrapOnce("delete_edge", err)
}

// Edges returns the edges of one relation type touching a record, in the
// requested direction, ordered by creation time.
func (g *GraphStore) Edges(ctx context.Context, recordID string, relType string, dir Direction) ([]*Edge, error) {
	rel, err := relationTable("edges", relType)
	if err != nil {
		return nil, err
	}
	id, err := core.EnsureRecordID(recordID)
	if err != nil {
		return nil, wrapError("edges", err)
	}

	var where string
	args := []any{id}
	switch dir {
	case DirOut:
		where = `"in" = ?`
	case DirIn:
		where = `"out" = ?`
	case DirBoth, "":
		where = `"in" = ? OR "out" = ?`
		args = append(args, id)
	default:
		return nil, wrapError("edges", fmt.Errorf("%w: invalid direction %q", core.ErrQuery, dir))
	}

	var edges []*Edge
	err = g.store.Do(ctx, "edges", func(ctx context.Context, db *sql.DB) error {
		stmt := fmt.Sprintf(`SELECT id, "in", "out", properties, created, updated FROM %s WHERE %s ORDER BY created`, rel, where)
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrQuery, err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			edge, err := scanEdge(rows)
			if err != nil {
				return err
			}
			edges = append(edges, edge)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapOnce("edges", err)
	}

	return edges, nil
}

// Incoming answers one traversal hop against the edge direction: all
// records of fromTable with an edge (record)-[relType]->(target). The
// join preserves the filtering and ordering a caller would expect from a
// native traversal; rows come back ordered by creation time.
func (g *GraphStore) Incoming(ctx context.Context, relType string, target any, fromTable string) ([]core.Row, error) {
	rel, err := relationTable("incoming", relType)
	if err != nil {
		return nil, err
	}
	if _, err := core.ValidateTable(fromTable); err != nil {
		return nil, wrapError("incoming", err)
	}
	id, err := core.EnsureRecordID(target)
	if err != nil {
		return nil, wrapError("incoming", err)
	}

	stmt := fmt.Sprintf(`
		SELECT s.* FROM %s s
		INNER JOIN %s r ON r."in" = s.id
		WHERE r."out" = :target
		ORDER BY s.created
	`, fromTable, rel)
	return g.store.Query(ctx, stmt, map[string]any{"target": id})
}

// Outgoing answers the opposite hop: all records of toTable that a
// source record points at via relType.
func (g *GraphStore) Outgoing(ctx context.Context, source any, relType string, toTable string) ([]core.Row, error) {
	rel, err := relationTable("outgoing", relType)
	if err != nil {
		return nil, err
	}
	if _, err := core.ValidateTable(toTable); err != nil {
		return nil, wrapError("outgoing", err)
	}
	id, err := core.EnsureRecordID(source)
	if err != nil {
		return nil, wrapError("outgoing", err)
	}

	stmt := fmt.Sprintf(`
		SELECT t.* FROM %s t
		INNER JOIN %s r ON r."out" = t.id
		WHERE r."in" = :source
		ORDER BY t.created
	`, toTable, rel)
	return g.store.Query(ctx, stmt, map[string]any{"source": id})
}

// relationTable validates a relation type against the known edge tables.
func relationTable(op, relType string) (string, error) {
	if !core.IsRelationTable(relType) {
		return "", wrapError(op, fmt.Errorf("%w: unknown relation type %q", core.ErrQuery, relType))
	}
	return relType, nil
}

// recordExists verifies an endpoint id resolves to a stored record.
func recordExists(ctx context.Context, db *sql.DB, id string) error {
	rid, err := core.ParseID(id)
	if err != nil {
		return err
	}
	table, err := core.ValidateTable(rid.Table)
	if err != nil {
		return err
	}

	row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id)
	var one int
	switch err := row.Scan(&one); err {
	case nil:
		return nil
	case sql.ErrNoRows:
		return fmt.Errorf("%w: endpoint %s", core.ErrNotFound, id)
	default:
		return fmt.Errorf("%w: %v", core.ErrQuery, err)
	}
}

// readEdge fetches the edge for an endpoint pair on an already-held dispatch.
func readEdge(ctx context.Context, db *sql.DB, rel, in, out string) (*Edge, error) {
	stmt := fmt.Sprintf(`SELECT id, "in", "out", properties, created, updated FROM %s WHERE "in" = ? AND "out" = ?`, rel)
	rows, err := db.QueryContext(ctx, stmt, in, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrQuery, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: edge %s->%s", core.ErrNotFound, in, out)
	}
	return scanEdge(rows)
}

// scanEdge decodes one edge row, including its JSON payload.
func scanEdge(rows *sql.Rows) (*Edge, error) {
	var edge Edge
	var properties sql.NullString
	var created, updated sql.NullString

	if err := rows.Scan(&edge.ID, &edge.In, &edge.Out, &properties, &created, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrQuery, err)
	}
	edge.Created = created.String
	edge.Updated = updated.String

	if properties.Valid && properties.String != "" {
		decoded, err := encoding.DecodeJSON(properties.String)
		if err != nil {
			return nil, fmt.Errorf("%w: edge %s: %v", core.ErrSerialization, edge.ID, err)
		}
		edge.Properties = decoded
	}

	return &edge, nil
}

// nullable maps "" to NULL so empty payloads do not store empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// wrapError and wrapOnce mirror the core error wrapping with this
// package's operation names.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &core.StoreError{Op: op, Err: err}
}

func wrapOnce(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*core.StoreError); ok {
		return err
	}
	return wrapError(op, err)
}
