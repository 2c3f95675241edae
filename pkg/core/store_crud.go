package core

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liliang-cn/notebase/internal/encoding"
)

// now returns the timestamp format stored in created/updated columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Timestamp returns the canonical created/updated stamp for collaborating
// packages writing alongside the store.
func Timestamp() string {
	return now()
}

// Create inserts a new record and returns it as stored, including the
// generated id and timestamps. When fields carries an explicit id it is
// used as-is; an id that already exists fails with ErrConstraint.
func (s *Store) Create(ctx context.Context, table string, fields map[string]any) (Row, error) {
	schema, err := entitySchemaFor("create", table)
	if err != nil {
		return nil, err
	}

	data := copyFields(fields)
	id, hasID := data["id"].(string)
	if hasID && id != "" {
		if _, err := ParseID(id); err != nil {
			return nil, wrapError("create", err)
		}
	} else {
		id = GenerateID(table)
	}
	data["id"] = id

	ts := now()
	if _, ok := data["created"]; !ok {
		data["created"] = ts
	}
	if _, ok := data["updated"]; !ok {
		data["updated"] = ts
	}

	prepared, cols, err := prepareFields(schema, data)
	if err != nil {
		return nil, wrapError("create", err)
	}

	var record Row
	err = s.Do(ctx, "create", func(ctx context.Context, db *sql.DB) error {
		placeholders := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			placeholders[i] = "?"
			args[i] = prepared[col]
		}

		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(quoteAll(cols), ", "), strings.Join(placeholders, ", "))
		if _, err := db.ExecContext(ctx, insert, args...); err != nil {
			return constraintErr(err)
		}

		record, err = readRecord(ctx, db, table, id)
		return err
	})
	if err != nil {
		return nil, wrapOnce("create", err)
	}

	s.logger.Debug("record created", "id", id)
	return record, nil
}

// Update applies a partial update to the named fields only and stamps the
// updated timestamp. A missing id fails with ErrNotFound.
func (s *Store) Update(ctx context.Context, table, id string, fields map[string]any) (Row, error) {
	// An id carrying its own table prefix wins over the table argument.
	if strings.Contains(id, ":") {
		rid, err := ParseID(id)
		if err != nil {
			return nil, wrapError("update", err)
		}
		table = rid.Table
	} else {
		id = table + ":" + id
	}

	schema, err := entitySchemaFor("update", table)
	if err != nil {
		return nil, err
	}

	data := copyFields(fields)
	delete(data, "id")
	data["updated"] = now()

	prepared, cols, err := prepareFields(schema, data)
	if err != nil {
		return nil, wrapError("update", err)
	}

	var record Row
	err = s.Do(ctx, "update", func(ctx context.Context, db *sql.DB) error {
		sets := make([]string, len(cols))
		args := make([]any, 0, len(cols)+1)
		for i, col := range cols {
			sets[i] = fmt.Sprintf("%s = ?", quoteIdent(col))
			args = append(args, prepared[col])
		}
		args = append(args, id)

		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
		res, err := db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return constraintErr(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		record, err = readRecord(ctx, db, table, id)
		return err
	})
	if err != nil {
		return nil, wrapOnce("update", err)
	}

	return record, nil
}

// Upsert reconciles create-or-update. The tie-break is deterministic:
// an existing id updates in place, a given-but-absent id creates with
// exactly that id, and an empty id creates with a generated one.
func (s *Store) Upsert(ctx context.Context, table, id string, fields map[string]any, addTimestamp bool) (Row, error) {
	if _, err := entitySchemaFor("upsert", table); err != nil {
		return nil, err
	}

	data := copyFields(fields)
	delete(data, "id")
	if addTimestamp {
		data["updated"] = now()
	}

	if id == "" {
		return s.Create(ctx, table, data)
	}
	if !strings.Contains(id, ":") {
		id = table + ":" + id
	}
	if _, err := ParseID(id); err != nil {
		return nil, wrapError("upsert", err)
	}

	var exists bool
	err := s.Do(ctx, "upsert", func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id)
		var one int
		switch err := row.Scan(&one); err {
		case nil:
			exists = true
		case sql.ErrNoRows:
			exists = false
		default:
			return fmt.Errorf("%w: %v", ErrQuery, err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapOnce("upsert", err)
	}

	if exists {
		return s.Update(ctx, table, id, data)
	}
	data["id"] = id
	return s.Create(ctx, table, data)
}

// Delete removes a record and every edge where it appears as "in" or
// "out", in one transaction. Deleting an id that does not exist is a
// no-op: the desired end state already holds.
func (s *Store) Delete(ctx context.Context, id any) error {
	rid, err := EnsureRecordID(id)
	if err != nil {
		return wrapError("delete", err)
	}
	parsed, err := ParseID(rid)
	if err != nil {
		return wrapError("delete", err)
	}
	table, err := validateIdentifier(parsed.Table)
	if err != nil {
		return wrapError("delete", err)
	}
	if !knownTable(table) {
		return wrapError("delete", fmt.Errorf("%w: unknown table %q", ErrQuery, table))
	}
	if rid == ConfigRecordID {
		return wrapError("delete", fmt.Errorf("%w: config record cannot be deleted", ErrConstraint))
	}

	err = s.Do(ctx, "delete", func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		defer func() { _ = tx.Rollback() }()

		if !IsRelationTable(table) {
			for _, rel := range relationTables {
				cascade := fmt.Sprintf(`DELETE FROM %s WHERE "in" = ? OR "out" = ?`, rel)
				if _, err := tx.ExecContext(ctx, cascade, rid, rid); err != nil {
					return err
				}
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), rid); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return wrapOnce("delete", err)
	}

	s.logger.Debug("record deleted", "id", rid)
	return nil
}

// BulkInsert inserts multiple rows in one logical operation. With
// ignoreDuplicates the batch is best-effort: rows whose id already exists
// are skipped. Without it the batch is all-or-nothing: one duplicate
// rolls back every row and fails with ErrConstraint.
func (s *Store) BulkInsert(ctx context.Context, table string, rows []map[string]any, ignoreDuplicates bool) ([]Row, error) {
	schema, err := entitySchemaFor("bulk_insert", table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var inserted []Row
	err = s.Do(ctx, "bulk_insert", func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		defer func() { _ = tx.Rollback() }()

		verb := "INSERT"
		if ignoreDuplicates {
			verb = "INSERT OR IGNORE"
		}

		var ids []string
		for _, fields := range rows {
			data := copyFields(fields)
			id, _ := data["id"].(string)
			if id == "" {
				id = GenerateID(table)
			} else if _, err := ParseID(id); err != nil {
				return err
			}
			data["id"] = id

			ts := now()
			if _, ok := data["created"]; !ok {
				data["created"] = ts
			}
			if _, ok := data["updated"]; !ok {
				data["updated"] = ts
			}

			prepared, cols, err := prepareFields(schema, data)
			if err != nil {
				return err
			}

			placeholders := make([]string, len(cols))
			args := make([]any, len(cols))
			for i, col := range cols {
				placeholders[i] = "?"
				args[i] = prepared[col]
			}
			insert := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
				verb, table, strings.Join(quoteAll(cols), ", "), strings.Join(placeholders, ", "))

			res, err := tx.ExecContext(ctx, insert, args...)
			if err != nil {
				return constraintErr(err)
			}
			if affected, err := res.RowsAffected(); err == nil && affected > 0 {
				ids = append(ids, id)
			}
		}

		if err := tx.Commit(); err != nil {
			return constraintErr(err)
		}

		for _, id := range ids {
			record, err := readRecord(ctx, db, table, id)
			if err != nil {
				return err
			}
			inserted = append(inserted, record)
		}
		return nil
	})
	if err != nil {
		return nil, wrapOnce("bulk_insert", err)
	}

	return inserted, nil
}

// entitySchemaFor resolves and validates an entity table for a CRUD
// operation. Relation tables are written through Relate only.
func entitySchemaFor(op, table string) (TableSchema, error) {
	if _, err := validateIdentifier(table); err != nil {
		return TableSchema{}, wrapError(op, err)
	}
	schema, ok := SchemaFor(table)
	if !ok {
		if IsRelationTable(table) {
			return TableSchema{}, wrapError(op, fmt.Errorf("%w: %q is a relation table", ErrQuery, table))
		}
		return TableSchema{}, wrapError(op, fmt.Errorf("%w: unknown table %q", ErrQuery, table))
	}
	return schema, nil
}

// copyFields shallow-copies a field mapping so callers never see their
// argument mutated.
func copyFields(fields map[string]any) map[string]any {
	data := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		data[k] = v
	}
	return data
}

// prepareFields coerces canonical values to their storage representation
// per the table schema and returns the prepared mapping with its column
// list in stable order. The asset mapping is flattened to its
// asset_file_path/asset_url columns; RecordID references become canonical
// strings before encoding.
func prepareFields(schema TableSchema, data map[string]any) (map[string]any, []string, error) {
	prepared := make(map[string]any, len(data))

	for key, value := range data {
		if key == "asset" {
			asset, ok := value.(map[string]any)
			if value != nil && !ok {
				return nil, nil, fmt.Errorf("%w: asset must be a mapping", ErrSerialization)
			}
			prepared["asset_file_path"] = asset["file_path"]
			prepared["asset_url"] = asset["url"]
			continue
		}

		if _, err := validateIdentifier(key); err != nil {
			return nil, nil, err
		}

		switch ref := value.(type) {
		case RecordID:
			prepared[key] = ref.String()
			continue
		case *RecordID:
			normalized, err := EnsureRecordID(ref)
			if err != nil {
				return nil, nil, err
			}
			prepared[key] = normalized
			continue
		}

		encoded, err := encoding.EncodeValue(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: field %q: %v", ErrSerialization, key, err)
		}
		prepared[key] = encoded
	}

	cols := make([]string, 0, len(prepared))
	for col := range prepared {
		if !schema.hasColumn(col) {
			return nil, nil, fmt.Errorf("%w: table %q has no column %q", ErrQuery, schema.Name, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	return prepared, cols, nil
}

// hasColumn reports whether the schema declares col.
func (t TableSchema) hasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// quoteIdent quotes reserved endpoint column names consistently. The
// relation tables name their endpoints "in" and "out", both SQL keywords.
func quoteIdent(col string) string {
	if col == "in" || col == "out" {
		return `"` + col + `"`
	}
	return col
}

// quoteAll maps quoteIdent over a column list.
func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = quoteIdent(col)
	}
	return out
}
