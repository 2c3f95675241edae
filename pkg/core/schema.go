package core

import "fmt"

// TableSchema describes one entity table: its columns, which text columns
// hold JSON-encoded lists or mappings, which integer columns hold booleans
// and which columns feed the full-text shadow table.
type TableSchema struct {
	Name       string
	Columns    []string
	Structured map[string]bool
	Booleans   map[string]bool
	Searchable []string
}

// ConfigRecordID is the singleton configuration record bootstrapped at
// schema initialization. It is updated in place and never deleted.
const ConfigRecordID = "config:default"

// entitySchemas is the fixed per-entity schema registry. Table schemas do
// not change per record.
var entitySchemas = map[string]TableSchema{
	"notebook": {
		Name:     "notebook",
		Columns:  []string{"id", "name", "description", "archived", "created", "updated"},
		Booleans: map[string]bool{"archived": true},
	},
	"source": {
		Name:       "source",
		Columns:    []string{"id", "title", "topics", "full_text", "asset_file_path", "asset_url", "created", "updated"},
		Structured: map[string]bool{"topics": true},
		Searchable: []string{"title", "full_text"},
	},
	"note": {
		Name:       "note",
		Columns:    []string{"id", "title", "content", "note_type", "created", "updated"},
		Searchable: []string{"title", "content"},
	},
	"model": {
		Name:     "model",
		Columns:  []string{"id", "name", "provider", "type", "is_built_in", "created", "updated"},
		Booleans: map[string]bool{"is_built_in": true},
	},
	"transformation": {
		Name:     "transformation",
		Columns:  []string{"id", "name", "title", "description", "prompt", "apply_default", "created", "updated"},
		Booleans: map[string]bool{"apply_default": true},
	},
	"config": {
		Name:       "config",
		Columns:    []string{"id", "settings", "created", "updated"},
		Structured: map[string]bool{"settings": true},
	},
}

// relationTables lists the per-relation-type edge tables. "reference" links
// sources to notebooks, "artifact" links notes to notebooks and "refers_to"
// is the generic catch-all.
var relationTables = []string{"reference", "artifact", "refers_to"}

// structuredColumns and booleanColumns are the unions used when decoding
// rows from arbitrary queries, where the source table is not known.
var (
	structuredColumns = map[string]bool{}
	booleanColumns    = map[string]bool{}
)

func init() {
	for _, schema := range entitySchemas {
		for col := range schema.Structured {
			structuredColumns[col] = true
		}
		for col := range schema.Booleans {
			booleanColumns[col] = true
		}
	}
	// Relation payloads are JSON mappings.
	structuredColumns["properties"] = true
}

// SchemaFor returns the schema of an entity table.
func SchemaFor(table string) (TableSchema, bool) {
	s, ok := entitySchemas[table]
	return s, ok
}

// IsRelationTable reports whether table is a known relation (edge) table.
func IsRelationTable(table string) bool {
	for _, rel := range relationTables {
		if rel == table {
			return true
		}
	}
	return false
}

// RelationTables returns the known relation table names.
func RelationTables() []string {
	out := make([]string, len(relationTables))
	copy(out, relationTables)
	return out
}

// ValidateTable checks that table is a safe identifier naming a known
// entity or relation table.
func ValidateTable(table string) (string, error) {
	if _, err := validateIdentifier(table); err != nil {
		return "", err
	}
	if !knownTable(table) {
		return "", fmt.Errorf("%w: unknown table %q", ErrQuery, table)
	}
	return table, nil
}

// knownTable reports whether table is an entity or relation table.
func knownTable(table string) bool {
	if _, ok := entitySchemas[table]; ok {
		return true
	}
	return IsRelationTable(table)
}

// createSchemaSQL is the complete idempotent DDL script. Every statement
// is IF NOT EXISTS so the script is a fixed point: issuing it on every
// connection acquisition neither errors nor duplicates anything, and two
// callers racing through it are absorbed harmlessly.
//
// The full-text shadows are FTS5 content tables over their base table's
// rowid, synchronized with triggers so the guarantee also holds for raw
// parameterized statements that bypass the CRUD path.
const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS notebook (
	id TEXT PRIMARY KEY,
	name TEXT,
	description TEXT,
	archived INTEGER DEFAULT 0,
	created TEXT,
	updated TEXT
);

CREATE TABLE IF NOT EXISTS source (
	id TEXT PRIMARY KEY,
	title TEXT,
	topics TEXT, -- JSON
	full_text TEXT,
	asset_file_path TEXT,
	asset_url TEXT,
	created TEXT,
	updated TEXT
);

CREATE TABLE IF NOT EXISTS note (
	id TEXT PRIMARY KEY,
	title TEXT,
	content TEXT,
	note_type TEXT,
	created TEXT,
	updated TEXT
);

CREATE TABLE IF NOT EXISTS model (
	id TEXT PRIMARY KEY,
	name TEXT,
	provider TEXT,
	type TEXT,
	is_built_in INTEGER DEFAULT 0,
	created TEXT,
	updated TEXT
);

CREATE TABLE IF NOT EXISTS transformation (
	id TEXT PRIMARY KEY,
	name TEXT,
	title TEXT,
	description TEXT,
	prompt TEXT,
	apply_default INTEGER DEFAULT 0,
	created TEXT,
	updated TEXT
);

CREATE TABLE IF NOT EXISTS config (
	id TEXT PRIMARY KEY,
	settings TEXT, -- JSON
	created TEXT,
	updated TEXT
);

CREATE TABLE IF NOT EXISTS reference (
	id TEXT PRIMARY KEY,
	"in" TEXT NOT NULL,
	"out" TEXT NOT NULL,
	properties TEXT, -- JSON
	created TEXT,
	updated TEXT,
	UNIQUE("in", "out")
);

CREATE TABLE IF NOT EXISTS artifact (
	id TEXT PRIMARY KEY,
	"in" TEXT NOT NULL,
	"out" TEXT NOT NULL,
	properties TEXT, -- JSON
	created TEXT,
	updated TEXT,
	UNIQUE("in", "out")
);

CREATE TABLE IF NOT EXISTS refers_to (
	id TEXT PRIMARY KEY,
	"in" TEXT NOT NULL,
	"out" TEXT NOT NULL,
	properties TEXT, -- JSON
	created TEXT,
	updated TEXT,
	UNIQUE("in", "out")
);

CREATE INDEX IF NOT EXISTS idx_reference_in ON reference("in");
CREATE INDEX IF NOT EXISTS idx_reference_out ON reference("out");
CREATE INDEX IF NOT EXISTS idx_artifact_in ON artifact("in");
CREATE INDEX IF NOT EXISTS idx_artifact_out ON artifact("out");
CREATE INDEX IF NOT EXISTS idx_refers_to_in ON refers_to("in");
CREATE INDEX IF NOT EXISTS idx_refers_to_out ON refers_to("out");

-- Full-text shadow tables. content= avoids duplicating the base rows;
-- triggers keep the shadows exactly in step with their base tables.
CREATE VIRTUAL TABLE IF NOT EXISTS source_fts USING fts5(title, full_text, content='source', content_rowid='rowid');

CREATE TRIGGER IF NOT EXISTS source_ai AFTER INSERT ON source BEGIN
  INSERT INTO source_fts(rowid, title, full_text) VALUES (new.rowid, new.title, new.full_text);
END;
CREATE TRIGGER IF NOT EXISTS source_ad AFTER DELETE ON source BEGIN
  INSERT INTO source_fts(source_fts, rowid, title, full_text) VALUES('delete', old.rowid, old.title, old.full_text);
END;
CREATE TRIGGER IF NOT EXISTS source_au AFTER UPDATE ON source BEGIN
  INSERT INTO source_fts(source_fts, rowid, title, full_text) VALUES('delete', old.rowid, old.title, old.full_text);
  INSERT INTO source_fts(rowid, title, full_text) VALUES (new.rowid, new.title, new.full_text);
END;

CREATE VIRTUAL TABLE IF NOT EXISTS note_fts USING fts5(title, content, content='note', content_rowid='rowid');

CREATE TRIGGER IF NOT EXISTS note_ai AFTER INSERT ON note BEGIN
  INSERT INTO note_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
END;
CREATE TRIGGER IF NOT EXISTS note_ad AFTER DELETE ON note BEGIN
  INSERT INTO note_fts(note_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
END;
CREATE TRIGGER IF NOT EXISTS note_au AFTER UPDATE ON note BEGIN
  INSERT INTO note_fts(note_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
  INSERT INTO note_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
END;
`
