// Package encoding converts canonical record values to and from SQLite
// column representations. The rules are fixed: booleans become 0/1
// integers, lists and mappings become JSON text, blobs stay blobs and
// scalars pass through untouched. Decoding a text column as JSON only
// happens when the caller says the field is structured, so a plain
// string that happens to look like JSON is never misread.
package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedValue is returned when a value has no column representation.
var ErrUnsupportedValue = errors.New("unsupported value type")

// ErrInvalidJSON is returned when a structured column fails to decode.
var ErrInvalidJSON = errors.New("invalid JSON payload")

// EncodeValue converts a canonical value to its storage representation.
func EncodeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64, float64, string, []byte:
		return val, nil
	case float32:
		return float64(val), nil
	default:
		// Lists and mappings are stored as JSON text.
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
		}
		return string(data), nil
	}
}

// DecodeColumn converts a storage value back to a canonical value.
// structured marks columns declared as list/mapping in the table schema;
// boolean marks 0/1 integer columns.
func DecodeColumn(v any, structured, boolean bool) (any, error) {
	if v == nil {
		return nil, nil
	}

	if boolean {
		switch n := v.(type) {
		case int64:
			return n != 0, nil
		case bool:
			return n, nil
		}
	}

	if structured {
		var raw []byte
		switch s := v.(type) {
		case string:
			raw = []byte(s)
		case []byte:
			raw = s
		default:
			return v, nil
		}
		if len(raw) == 0 {
			return nil, nil
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return decoded, nil
	}

	return v, nil
}

// EncodeJSON marshals a mapping to its column text, with nil mapping to "".
func EncodeJSON(m map[string]any) (string, error) {
	if m == nil {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode mapping: %w", err)
	}
	return string(data), nil
}

// DecodeJSON unmarshals column text into a mapping, with "" mapping to nil.
func DecodeJSON(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return m, nil
}
