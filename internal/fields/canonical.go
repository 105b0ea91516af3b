package fields

// Pair is one key/value row of a normalized structured field. Keys need not
// be unique while editing; deduplication happens only when serializing back
// to an object-shaped wire value.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Canonical is the ordered, editable form of a structured product field.
type Canonical []Pair

// Shape names the wire representation a structured field takes on the
// product service boundary.
type Shape string

const (
	ShapeArray  Shape = "array"
	ShapeObject Shape = "object"
	ShapeText   Shape = "text"
)

// IsValid reports whether the shape is one of the supported wire shapes.
func (s Shape) IsValid() bool {
	switch s {
	case ShapeArray, ShapeObject, ShapeText:
		return true
	}
	return false
}

// Clone returns an independent copy of the canonical field.
func (c Canonical) Clone() Canonical {
	if c == nil {
		return nil
	}
	out := make(Canonical, len(c))
	copy(out, c)
	return out
}
