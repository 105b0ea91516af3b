package fields

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Normalize converts a raw wire value into its canonical list-of-pairs form.
// The product service returns structured fields in several historical shapes:
// a JSON array of pairs, a JSON object, a JSON string carrying either encoded
// JSON or freeform "key: value" text, or null. Unrecognizable input degrades
// to an empty Canonical; it never fails, because these fields must render.
func Normalize(raw json.RawMessage) Canonical {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Canonical{}
	}

	decoded, ok := decodeJSON(trimmed)
	if !ok {
		// Not valid JSON at all. The field was stored as raw text upstream.
		return fromText(string(trimmed))
	}
	return normalizeValue(decoded)
}

// DetectShape records which wire shape a loaded field held, so the save path
// can send the field back in the representation the product service expects.
// Only arrays keep their shape; everything else is folded to an object on the
// way out.
func DetectShape(raw json.RawMessage) Shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return ShapeArray
	}
	return ShapeObject
}

func normalizeValue(v any) Canonical {
	switch val := v.(type) {
	case nil:
		return Canonical{}
	case []any:
		return fromArray(val)
	case map[string]any:
		return fromObject(val)
	case string:
		return fromString(val)
	default:
		return Canonical{}
	}
}

func fromArray(entries []any) Canonical {
	out := make(Canonical, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case map[string]any:
			out = append(out, Pair{
				Key:   coerceString(e["key"]),
				Value: coerceString(e["value"]),
			})
		case string:
			if strings.TrimSpace(e) == "" {
				continue
			}
			out = append(out, Pair{Value: e})
		default:
			if entry == nil {
				continue
			}
			out = append(out, Pair{Value: coerceString(entry)})
		}
	}
	return out
}

func fromObject(obj map[string]any) Canonical {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// JSON objects carry no ordering; sort for a stable editable form.
	sort.Strings(keys)

	out := make(Canonical, 0, len(keys))
	for _, k := range keys {
		out = append(out, Pair{Key: k, Value: coerceString(obj[k])})
	}
	return out
}

func fromString(s string) Canonical {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Canonical{}
	}

	if looksLikeJSON(trimmed) {
		if decoded, ok := decodeJSON([]byte(trimmed)); ok {
			switch decoded.(type) {
			case []any, map[string]any:
				return normalizeValue(decoded)
			}
		}
	}

	return fromText(s)
}

// fromText splits freeform text into pairs: one line per pair, key before the
// first colon, remainder as the value. A line with no colon keeps the whole
// line as the value under an empty key.
func fromText(s string) Canonical {
	lines := strings.Split(s, "\n")
	out := make(Canonical, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			out = append(out, Pair{Value: trimmed})
			continue
		}
		out = append(out, Pair{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}
	return out
}

func decodeJSON(data []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, false
	}
	return decoded, true
}

func looksLikeJSON(s string) bool {
	switch s[0] {
	case '{', '[', '"':
		return true
	}
	return false
}

// coerceString renders any decoded JSON value as editable text. Strings pass
// through; everything else keeps its JSON text representation.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
