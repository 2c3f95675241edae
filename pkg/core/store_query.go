package core

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/liliang-cn/notebase/internal/encoding"
)

// Query executes a parameterized statement and returns the result rows as
// field mappings, with structured columns decoded and embedded references
// normalized to canonical id strings. Parameters bind by name (":name").
func (s *Store) Query(ctx context.Context, statement string, params map[string]any) ([]Row, error) {
	var results []Row

	err := s.Do(ctx, "query", func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, statement, namedArgs(params)...)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrQuery, err)
		}
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrQuery, err)
		}

		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("%w: %v", ErrQuery, err)
			}

			row, err := decodeRowValues(cols, values)
			if err != nil {
				return err
			}
			results = append(results, row)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrQuery, err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapOnce("query", err)
	}

	return results, nil
}

// namedArgs converts a parameter mapping to named driver arguments in a
// stable order.
func namedArgs(params map[string]any) []any {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, sql.Named(k, params[k]))
	}
	return args
}

// decodeRowValues converts one scanned row back to canonical values.
// Structured and boolean columns are resolved against the union of all
// table schemas since the originating table of an arbitrary query is not
// known; column names are unique enough across the fixed schema set. The
// asset_file_path/asset_url pair is folded back into an asset mapping.
func decodeRowValues(cols []string, values []any) (Row, error) {
	row := make(Row, len(cols))
	var asset map[string]any

	for i, col := range cols {
		switch col {
		case "asset_file_path", "asset_url":
			if values[i] == nil {
				continue
			}
			if asset == nil {
				asset = make(map[string]any, 2)
			}
			if col == "asset_file_path" {
				asset["file_path"] = values[i]
			} else {
				asset["url"] = values[i]
			}
		default:
			decoded, err := encoding.DecodeColumn(values[i], structuredColumns[col], booleanColumns[col])
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %v", ErrSerialization, col, err)
			}
			row[col] = decoded
		}
	}

	if asset != nil {
		row["asset"] = asset
	} else {
		for _, col := range cols {
			if col == "asset_file_path" || col == "asset_url" {
				row["asset"] = nil
				break
			}
		}
	}

	return NormalizeIDs(map[string]any(row)).(map[string]any), nil
}

// readRecord fetches and decodes one record by id on an already-held
// dispatch. Returns ErrNotFound when the id does not exist.
func readRecord(ctx context.Context, db *sql.DB, table, id string) (Row, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	return decodeRowValues(cols, values)
}

// wrapOnce wraps err with operation context unless it already carries one.
func wrapOnce(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*StoreError); ok {
		return err
	}
	return wrapError(op, err)
}
