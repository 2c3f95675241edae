package encoding

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{name: "nil passes through", input: nil, expected: nil},
		{name: "true becomes 1", input: true, expected: int64(1)},
		{name: "false becomes 0", input: false, expected: int64(0)},
		{name: "int widens", input: 42, expected: int64(42)},
		{name: "int32 widens", input: int32(7), expected: int64(7)},
		{name: "int64 passes through", input: int64(-3), expected: int64(-3)},
		{name: "float64 passes through", input: 1.5, expected: 1.5},
		{name: "float32 widens", input: float32(0.5), expected: 0.5},
		{name: "string passes through", input: "hello", expected: "hello"},
		{name: "list becomes JSON", input: []string{"a", "b"}, expected: `["a","b"]`},
		{name: "mapping becomes JSON", input: map[string]any{"k": "v"}, expected: `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.input)
			if err != nil {
				t.Fatalf("EncodeValue(%v) failed: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("EncodeValue(%v) = %v (%T), want %v (%T)", tt.input, got, got, tt.expected, tt.expected)
			}
		})
	}
}

func TestEncodeValueBytes(t *testing.T) {
	got, err := EncodeValue([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	if !reflect.DeepEqual(got, []byte{0x01, 0x02}) {
		t.Errorf("blob changed shape: %v", got)
	}
}

func TestEncodeValueUnsupported(t *testing.T) {
	// Channels have no JSON representation.
	if _, err := EncodeValue(make(chan int)); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestDecodeColumn(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		structured bool
		boolean    bool
		expected   any
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "boolean 1 decodes true", input: int64(1), boolean: true, expected: true},
		{name: "boolean 0 decodes false", input: int64(0), boolean: true, expected: false},
		{name: "structured list decodes", input: `["x","y"]`, structured: true, expected: []any{"x", "y"}},
		{name: "structured mapping decodes", input: `{"a":1}`, structured: true, expected: map[string]any{"a": float64(1)}},
		{name: "empty structured text is nil", input: "", structured: true, expected: nil},
		{name: "plain string untouched", input: `{"not":"decoded"}`, expected: `{"not":"decoded"}`},
		{name: "plain integer untouched", input: int64(9), expected: int64(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeColumn(tt.input, tt.structured, tt.boolean)
			if err != nil {
				t.Fatalf("DecodeColumn failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("DecodeColumn = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecodeColumnInvalidJSON(t *testing.T) {
	if _, err := DecodeColumn("{broken", true, false); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := map[string]any{"name": "test", "count": float64(3)}

	encoded, err := EncodeJSON(original)
	if err != nil {
		t.Fatalf("EncodeJSON failed: %v", err)
	}
	decoded, err := DecodeJSON(encoded)
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip changed mapping: %v != %v", decoded, original)
	}
}

func TestJSONEmpty(t *testing.T) {
	encoded, err := EncodeJSON(nil)
	if err != nil || encoded != "" {
		t.Fatalf("EncodeJSON(nil) = %q, %v", encoded, err)
	}
	decoded, err := DecodeJSON("")
	if err != nil || decoded != nil {
		t.Fatalf("DecodeJSON(\"\") = %v, %v", decoded, err)
	}
}
