package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/statecore/internal/ir"
)

// marshalSnapshot converts a snapshot tree to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so the stored text hashes to the stored digest.
func marshalSnapshot(snapshot ir.IRObject) (string, error) {
	if snapshot == nil {
		snapshot = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// unmarshalSnapshot parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON which keeps integers exact via json.Number.
func unmarshalSnapshot(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return obj, nil
}

// marshalKeys converts a key list to JSON TEXT. A nil list is stored as [].
func marshalKeys(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("marshal keys: %w", err)
	}
	return string(data), nil
}

// unmarshalKeys parses JSON TEXT to a key list.
func unmarshalKeys(data string) ([]string, error) {
	var keys []string
	if data == "" {
		return keys, nil
	}
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return nil, fmt.Errorf("unmarshal keys: %w", err)
	}
	return keys, nil
}
