package fields

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
)

// Denormalize serializes a canonical field back into the requested wire
// shape. Array output preserves pair order; object output deduplicates keys
// last-write-wins; text output joins "key: value" lines.
func Denormalize(c Canonical, shape Shape) (json.RawMessage, error) {
	switch shape {
	case ShapeArray:
		out := make([]Pair, 0, len(c))
		for _, p := range c {
			if p.Key == "" && p.Value == "" {
				continue
			}
			out = append(out, p)
		}
		encoded, err := json.Marshal(out)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode array field")
		}
		return encoded, nil

	case ShapeObject:
		obj := make(map[string]string, len(c))
		for _, p := range c {
			if p.Key == "" && p.Value == "" {
				continue
			}
			obj[p.Key] = p.Value
		}
		encoded, err := json.Marshal(obj)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode object field")
		}
		return encoded, nil

	case ShapeText:
		lines := make([]string, 0, len(c))
		for _, p := range c {
			if p.Value == "" {
				continue
			}
			if strings.Contains(p.Value, "\n") {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "value not representable in text shape").
					WithDetails(map[string]any{"key": p.Key})
			}
			if p.Key == "" {
				lines = append(lines, p.Value)
				continue
			}
			lines = append(lines, p.Key+": "+p.Value)
		}
		encoded, err := json.Marshal(strings.Join(lines, "\n"))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode text field")
		}
		return encoded, nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported field shape").
			WithDetails(map[string]any{"shape": string(shape)})
	}
}
