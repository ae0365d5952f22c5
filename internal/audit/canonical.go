package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// StableJSON encodes v with deterministic key ordering so equal values
// always hash the same regardless of map iteration or struct field order.
func StableJSON(v any) ([]byte, error) {
	stable, err := canonicalize(v)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stable); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// canonicalize reduces v to plain JSON values (objects, arrays, strings,
// numbers, booleans, null) so that structs and maps with the same fields
// encode identically. encoding/json writes map keys in sorted order, which
// makes the object form stable. Anything that is not already a JSON value is
// round-tripped first.
func canonicalize(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			nv, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			nv, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	case string, float64, bool, json.Number, nil:
		return val, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("audit: canonicalize: %w", err)
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return nil, fmt.Errorf("audit: canonicalize: %w", err)
		}
		return canonicalize(decoded)
	}
}

// InputHash is the correlation key of a stage input: the first 16 hex
// characters of sha256 over its canonical JSON.
func InputHash(input any) (string, error) {
	payload, err := StableJSON(input)
	if err != nil {
		return "", err
	}
	return hashBytes(payload)[:16], nil
}

func hashBytes(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
