package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("source")

	rid, err := ParseID(id)
	if err != nil {
		t.Fatalf("generated id does not parse: %v", err)
	}
	if rid.Table != "source" {
		t.Errorf("table segment = %q, want source", rid.Table)
	}
	if len(rid.Key) != idSuffixLen {
		t.Errorf("key length = %d, want %d", len(rid.Key), idSuffixLen)
	}
	for _, r := range rid.Key {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("key %q contains non-hex rune %q", rid.Key, r)
		}
	}

	if GenerateID("source") == id {
		t.Error("two generated ids collided")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RecordID
		wantErr bool
	}{
		{name: "valid", input: "note:abc123", want: RecordID{Table: "note", Key: "abc123"}},
		{name: "no separator", input: "noteabc123", wantErr: true},
		{name: "empty table", input: ":abc", wantErr: true},
		{name: "empty key", input: "note:", wantErr: true},
		{name: "extra separator", input: "note:a:b", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedID) {
					t.Errorf("ParseID(%q) error = %v, want ErrMalformedID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnsureRecordID(t *testing.T) {
	ref := RecordID{Table: "notebook", Key: "k1"}

	tests := []struct {
		name    string
		input   any
		want    string
		wantErr error
	}{
		{name: "canonical string", input: "notebook:k1", want: "notebook:k1"},
		{name: "struct reference", input: ref, want: "notebook:k1"},
		{name: "pointer reference", input: &ref, want: "notebook:k1"},
		{name: "malformed string", input: "nocolon", wantErr: ErrMalformedID},
		{name: "nil pointer", input: (*RecordID)(nil), wantErr: ErrInvalidReference},
		{name: "unsupported type", input: 42, wantErr: ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EnsureRecordID(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EnsureRecordID failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("EnsureRecordID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeIDs(t *testing.T) {
	input := map[string]any{
		"notebook": RecordID{Table: "notebook", Key: "n1"},
		"sources": []any{
			RecordID{Table: "source", Key: "s1"},
			"plain string",
		},
		"nested": map[string]any{
			"ref": &RecordID{Table: "note", Key: "x"},
		},
		"count": 3,
	}

	got := NormalizeIDs(input)

	want := map[string]any{
		"notebook": "notebook:n1",
		"sources":  []any{"source:s1", "plain string"},
		"nested":   map[string]any{"ref": "note:x"},
		"count":    3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeIDs = %v, want %v", got, want)
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, valid := range []string{"notebook", "full_text", "_private", "Table9"} {
		if _, err := validateIdentifier(valid); err != nil {
			t.Errorf("validateIdentifier(%q) rejected a valid identifier: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "9start", "with-dash", "semi;colon", "a b", `quo"te`} {
		if _, err := validateIdentifier(invalid); !errors.Is(err, ErrQuery) {
			t.Errorf("validateIdentifier(%q) = %v, want ErrQuery", invalid, err)
		}
	}
}
