package graph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/liliang-cn/notebase/pkg/core"
)

func newTestGraph(t *testing.T) (*core.Store, *GraphStore) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := core.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			// Ignore cleanup errors in tests
			_ = err
		}
	})
	return store, New(store)
}

func seedRecords(t *testing.T, store *core.Store, table string, ids ...string) {
	t.Helper()

	// notebook names its records, source and note title them
	label := "title"
	if table == "notebook" {
		label = "name"
	}

	ctx := context.Background()
	for _, id := range ids {
		if _, err := store.Create(ctx, table, map[string]any{"id": id, label: id}); err != nil {
			t.Fatalf("Failed to seed %s: %v", id, err)
		}
	}
}

func TestRelateAndReplace(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "source", "source:s1")
	seedRecords(t, store, "notebook", "notebook:nb1")

	edge, err := g.Relate(ctx, "source:s1", "reference", "notebook:nb1", map[string]any{"weight": float64(1)})
	if err != nil {
		t.Fatalf("Relate failed: %v", err)
	}
	if edge.In != "source:s1" || edge.Out != "notebook:nb1" {
		t.Errorf("edge endpoints = %s -> %s", edge.In, edge.Out)
	}
	if edge.Properties["weight"] != float64(1) {
		t.Errorf("properties = %v", edge.Properties)
	}

	// Relating the same pair again replaces the payload, not the edge.
	replaced, err := g.Relate(ctx, "source:s1", "reference", "notebook:nb1", map[string]any{"weight": float64(2)})
	if err != nil {
		t.Fatalf("second Relate failed: %v", err)
	}
	if replaced.ID != edge.ID {
		t.Errorf("edge id changed on replace: %s != %s", replaced.ID, edge.ID)
	}
	if replaced.Properties["weight"] != float64(2) {
		t.Errorf("payload not replaced: %v", replaced.Properties)
	}
	if replaced.Created != edge.Created {
		t.Errorf("created changed on replace")
	}

	edges, err := g.Edges(ctx, "source:s1", "reference", DirBoth)
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("got %d edges, want 1", len(edges))
	}
}

func TestRelateValidation(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "source", "source:s1")

	if _, err := g.Relate(ctx, "source:s1", "not_a_relation", "notebook:nb1", nil); !errors.Is(err, core.ErrQuery) {
		t.Errorf("unknown relation error = %v, want ErrQuery", err)
	}
	if _, err := g.Relate(ctx, "malformed", "reference", "notebook:nb1", nil); !errors.Is(err, core.ErrMalformedID) {
		t.Errorf("malformed source error = %v, want ErrMalformedID", err)
	}
	// Target record does not exist.
	if _, err := g.Relate(ctx, "source:s1", "reference", "notebook:absent", nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing endpoint error = %v, want ErrNotFound", err)
	}
}

func TestRelateStructuredReferences(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "note", "note:n1")
	seedRecords(t, store, "source", "source:s1")

	in := core.RecordID{Table: "note", Key: "n1"}
	out := &core.RecordID{Table: "source", Key: "s1"}
	edge, err := g.Relate(ctx, in, "refers_to", out, nil)
	if err != nil {
		t.Fatalf("Relate failed: %v", err)
	}
	if edge.In != "note:n1" || edge.Out != "source:s1" {
		t.Errorf("edge endpoints = %s -> %s", edge.In, edge.Out)
	}
	if edge.Properties != nil {
		t.Errorf("empty payload decoded as %v", edge.Properties)
	}
}

func TestUnrelate(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "source", "source:s1")
	seedRecords(t, store, "notebook", "notebook:nb1")

	if _, err := g.Relate(ctx, "source:s1", "reference", "notebook:nb1", nil); err != nil {
		t.Fatalf("Relate failed: %v", err)
	}
	if err := g.Unrelate(ctx, "source:s1", "reference", "notebook:nb1"); err != nil {
		t.Fatalf("Unrelate failed: %v", err)
	}

	edges, err := g.Edges(ctx, "source:s1", "reference", DirBoth)
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("edge survived Unrelate: %v", edges)
	}

	// Removing again is a no-op.
	if err := g.Unrelate(ctx, "source:s1", "reference", "notebook:nb1"); err != nil {
		t.Errorf("repeat Unrelate = %v, want nil", err)
	}
}

func TestDeleteEdge(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "source", "source:s1")
	seedRecords(t, store, "notebook", "notebook:nb1")

	edge, err := g.Relate(ctx, "source:s1", "reference", "notebook:nb1", nil)
	if err != nil {
		t.Fatalf("Relate failed: %v", err)
	}
	if err := g.DeleteEdge(ctx, edge.ID); err != nil {
		t.Fatalf("DeleteEdge failed: %v", err)
	}

	edges, err := g.Edges(ctx, "source:s1", "reference", DirBoth)
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("edge survived DeleteEdge: %v", edges)
	}
}

func TestEdgesDirection(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "note", "note:n1", "note:n2")
	seedRecords(t, store, "source", "source:mid")

	if _, err := g.Relate(ctx, "note:n1", "refers_to", "source:mid", nil); err != nil {
		t.Fatalf("Relate failed: %v", err)
	}
	if _, err := g.Relate(ctx, "source:mid", "refers_to", "note:n2", nil); err != nil {
		t.Fatalf("Relate failed: %v", err)
	}

	out, err := g.Edges(ctx, "source:mid", "refers_to", DirOut)
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(out) != 1 || out[0].Out != "note:n2" {
		t.Errorf("outgoing = %v", out)
	}

	in, err := g.Edges(ctx, "source:mid", "refers_to", DirIn)
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(in) != 1 || in[0].In != "note:n1" {
		t.Errorf("incoming = %v", in)
	}

	both, err := g.Edges(ctx, "source:mid", "refers_to", DirBoth)
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(both) != 2 {
		t.Errorf("got %d edges, want 2", len(both))
	}

	if _, err := g.Edges(ctx, "source:mid", "refers_to", Direction("sideways")); !errors.Is(err, core.ErrQuery) {
		t.Errorf("bad direction error = %v, want ErrQuery", err)
	}
}

func TestIncomingAndOutgoing(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "notebook", "notebook:nb1")
	seedRecords(t, store, "source", "source:s1", "source:s2", "source:s3")

	for _, src := range []string{"source:s1", "source:s2"} {
		if _, err := g.Relate(ctx, src, "reference", "notebook:nb1", nil); err != nil {
			t.Fatalf("Relate failed: %v", err)
		}
	}

	// Sources pointing at the notebook.
	rows, err := g.Incoming(ctx, "reference", "notebook:nb1", "source")
	if err != nil {
		t.Fatalf("Incoming failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	got := map[any]bool{rows[0]["id"]: true, rows[1]["id"]: true}
	if !got["source:s1"] || !got["source:s2"] {
		t.Errorf("rows = %v", rows)
	}

	// Notebooks a source points at.
	rows, err = g.Outgoing(ctx, "source:s1", "reference", "notebook")
	if err != nil {
		t.Fatalf("Outgoing failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "notebook:nb1" {
		t.Errorf("rows = %v", rows)
	}

	if _, err := g.Incoming(ctx, "reference", "notebook:nb1", "bad-table"); !errors.Is(err, core.ErrQuery) {
		t.Errorf("bad table error = %v, want ErrQuery", err)
	}
}

func TestRecordDeleteRemovesEdges(t *testing.T) {
	store, g := newTestGraph(t)
	ctx := context.Background()

	seedRecords(t, store, "notebook", "notebook:nb1")
	seedRecords(t, store, "source", "source:s1")
	seedRecords(t, store, "note", "note:n1")

	if _, err := g.Relate(ctx, "source:s1", "reference", "notebook:nb1", nil); err != nil {
		t.Fatalf("Relate failed: %v", err)
	}
	if _, err := g.Relate(ctx, "note:n1", "refers_to", "source:s1", nil); err != nil {
		t.Fatalf("Relate failed: %v", err)
	}

	if err := store.Delete(ctx, "source:s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	for _, rel := range []string{"reference", "refers_to"} {
		edges, err := g.Edges(ctx, "source:s1", rel, DirBoth)
		if err != nil {
			t.Fatalf("Edges failed: %v", err)
		}
		if len(edges) != 0 {
			t.Errorf("%s edges survived record delete: %v", rel, edges)
		}
	}
}
