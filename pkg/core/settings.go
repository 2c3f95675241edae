package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/liliang-cn/notebase/internal/encoding"
)

// Settings returns the process-wide settings mapping held by the
// singleton configuration record.
func (s *Store) Settings(ctx context.Context) (map[string]any, error) {
	var settings map[string]any

	err := s.Do(ctx, "settings", func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx, "SELECT settings FROM config WHERE id = ?", ConfigRecordID)
		var raw sql.NullString
		if err := row.Scan(&raw); err != nil {
			if err == sql.ErrNoRows {
				// Bootstrap happens during Init; a missing record means
				// the schema was never applied.
				return fmt.Errorf("%w: config record missing", ErrConnection)
			}
			return fmt.Errorf("%w: %v", ErrQuery, err)
		}

		decoded, err := encoding.DecodeJSON(raw.String)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		settings = decoded
		return nil
	})
	if err != nil {
		return nil, wrapOnce("settings", err)
	}

	if settings == nil {
		settings = map[string]any{}
	}
	return settings, nil
}

// UpdateSettings replaces the settings mapping in place. The singleton
// record itself is never deleted or recreated.
func (s *Store) UpdateSettings(ctx context.Context, settings map[string]any) error {
	payload, err := encoding.EncodeJSON(settings)
	if err != nil {
		return wrapError("update_settings", fmt.Errorf("%w: %v", ErrSerialization, err))
	}
	if payload == "" {
		payload = "{}"
	}

	err = s.Do(ctx, "update_settings", func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			"UPDATE config SET settings = ?, updated = ? WHERE id = ?",
			payload, now(), ConfigRecordID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: config record missing", ErrConnection)
		}
		return nil
	})
	return wrapOnce("update_settings", err)
}
