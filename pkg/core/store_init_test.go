package core

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestInitIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("First Init failed: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}

	// Reopening the same file replays the DDL without complaint.
	second, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	defer func() { _ = second.Close() }()
	if err := second.Init(ctx); err != nil {
		t.Fatalf("Init on existing file failed: %v", err)
	}
}

func TestInitBootstrapsConfigOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpdateSettings(ctx, map[string]any{"keep": "me"}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	// Replaying the schema script must not clobber stored settings.
	err := store.Do(ctx, "test_reinit", func(ctx context.Context, db *sql.DB) error {
		return createTables(ctx, db)
	})
	if err != nil {
		t.Fatalf("schema replay failed: %v", err)
	}

	settings, err := store.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if settings["keep"] != "me" {
		t.Errorf("bootstrap clobbered settings: %v", settings)
	}

	rows, err := store.Query(ctx, "SELECT id FROM config", nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != ConfigRecordID {
		t.Errorf("config rows = %v, want single %s", rows, ConfigRecordID)
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestLazyInitOnFirstOperation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lazy.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	// No explicit Init; the first dispatch opens and bootstraps.
	settings, err := store.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings on cold store failed: %v", err)
	}
	if len(settings) != 0 {
		t.Errorf("settings = %v, want empty", settings)
	}
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := store.Settings(context.Background())
	if !errors.Is(err, ErrStoreClosed) {
		t.Errorf("error = %v, want ErrStoreClosed", err)
	}

	// Closing twice is harmless.
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
