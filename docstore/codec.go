package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// JSON CODEC - Shared by the SQL stores (documents are stored as JSON text)
// =============================================================================

// EncodeJSON serialises fields. Timestamps become {"$timestamp": "..."}.
func EncodeJSON(fields Fields) ([]byte, error) {
	if fields == nil {
		fields = Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a stored document and restores Timestamp values.
func DecodeJSON(data []byte) (Fields, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	fields := make(Fields, len(raw))
	for k, v := range raw {
		fields[k] = restore(v)
	}
	return fields, nil
}

// EncodeValue serialises a single query value the same way EncodeJSON does.
func EncodeValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return data, nil
}

func restore(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 1 {
			if s, ok := x[timestampKey].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					return NewTimestamp(t)
				}
			}
		}
		for k, inner := range x {
			x[k] = restore(inner)
		}
		return x
	case []any:
		for i := range x {
			x[i] = restore(x[i])
		}
		return x
	default:
		return v
	}
}
