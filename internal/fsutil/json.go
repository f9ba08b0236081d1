package fsutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ReadJSONObject reads a JSON object from path. Numbers are normalized with
// NormalizeNumbers. The os error is wrapped, so errors.Is(err, fs.ErrNotExist)
// reports a missing file.
func ReadJSONObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return DecodeJSONObject(data)
}

// DecodeJSONObject decodes data as a JSON object.
func DecodeJSONObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decoding json object: %w", err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return NormalizeNumbers(obj).(map[string]any), nil
}

// NormalizeNumbers walks a decoded JSON value and replaces json.Number with
// int when the number is integral and fits, float64 otherwise. YAML decoding
// yields the same Go types, so a parameter set reads back identically from
// either serialization.
func NormalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, elem := range x {
			x[k] = NormalizeNumbers(elem)
		}
		return x
	case []any:
		for i, elem := range x {
			x[i] = NormalizeNumbers(elem)
		}
		return x
	default:
		return v
	}
}
