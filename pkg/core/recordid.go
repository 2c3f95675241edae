package core

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// identRE matches valid SQL identifiers (letters, digits, underscores).
// Table and column names are validated against it before interpolation.
var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateIdentifier returns name unchanged when it is a safe SQL
// identifier, or an ErrQuery-wrapped error otherwise.
func validateIdentifier(name string) (string, error) {
	if !identRE.MatchString(name) {
		return "", fmt.Errorf("%w: invalid SQL identifier %q", ErrQuery, name)
	}
	return name, nil
}

// RecordID identifies a record as a (table, key) pair. Its canonical
// string form is "table:key".
type RecordID struct {
	Table string
	Key   string
}

// String returns the canonical "table:key" form.
func (r RecordID) String() string {
	return r.Table + ":" + r.Key
}

// idSuffixLen is the fixed length of the random hexadecimal key segment.
const idSuffixLen = 16

// GenerateID produces a previously unused id of the form "table:" plus a
// 16-character random hex suffix. Collisions are negligible; if one ever
// lands on insert it surfaces as ErrConstraint.
func GenerateID(table string) string {
	u := uuid.New()
	return table + ":" + hex.EncodeToString(u[:idSuffixLen/2])
}

// ParseID splits a canonical id string into its table and key segments.
func ParseID(id string) (RecordID, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RecordID{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return RecordID{Table: parts[0], Key: parts[1]}, nil
}

// EnsureRecordID normalizes a reference value to its canonical string
// form. It accepts an id string or a structured RecordID reference.
func EnsureRecordID(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if _, err := ParseID(v); err != nil {
			return "", err
		}
		return v, nil
	case RecordID:
		return v.String(), nil
	case *RecordID:
		if v == nil {
			return "", fmt.Errorf("%w: nil reference", ErrInvalidReference)
		}
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidReference, value)
	}
}

// NormalizeIDs recursively walks nested mappings and lists, converting
// every embedded RecordID reference to its canonical string form and
// leaving other values untouched.
func NormalizeIDs(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = NormalizeIDs(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeIDs(item)
		}
		return out
	case RecordID:
		return v.String()
	case *RecordID:
		if v == nil {
			return nil
		}
		return v.String()
	default:
		return value
	}
}
