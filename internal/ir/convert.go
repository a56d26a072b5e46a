package ir

import (
	"encoding/json"
	"fmt"
)

// Encode converts a Go value (typically a tagged struct) into an IRValue by
// way of its JSON encoding. Fields dropped by `omitempty` do not appear in
// the result, which is what patch builders rely on.
func Encode(v any) (IRValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return UnmarshalIRValue(data)
}

// EncodeObject is Encode restricted to values that encode to a JSON object.
func EncodeObject(v any) (IRObject, error) {
	val, err := Encode(v)
	if err != nil {
		return nil, err
	}
	obj, ok := val.(IRObject)
	if !ok {
		return nil, fmt.Errorf("encode: expected object, got %s", TypeName(val))
	}
	return obj, nil
}

// Decode fills out (a pointer) from v by way of its JSON encoding.
// Unknown keys are ignored; type mismatches are reported.
func Decode(v IRValue, out any) error {
	data, err := MarshalIRValue(v)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
