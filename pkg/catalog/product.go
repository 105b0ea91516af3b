package catalog

import (
	"encoding/json"
	"fmt"
)

// Structured field names the edit engine normalizes. Every other product
// attribute passes through the session untouched.
const (
	FieldTechnicalData   = "technicalData"
	FieldFunctionalities = "functionalities"
	FieldDownloads       = "downloads"
	FieldDescription     = "description"
)

// StructuredFieldNames lists the fields subject to normalization, in
// payload order.
func StructuredFieldNames() []string {
	return []string{FieldTechnicalData, FieldFunctionalities, FieldDownloads, FieldDescription}
}

// MediaEntry is one image reference in the product payload.
type MediaEntry struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	FileType     string `json:"fileType"`
	EntityType   string `json:"entityType"`
	DisplayOrder int    `json:"displayOrder"`
}

const (
	MediaFileTypeImage = "IMAGE"
	MediaEntityProduct = "PRODUCT"
)

// RawProduct is the product record as the catalog service returns it. The
// structured fields keep their raw wire form; the normalizer decides what to
// make of them.
type RawProduct struct {
	ID         int64
	Media      []MediaEntry
	Fields     map[string]json.RawMessage
	Attributes map[string]json.RawMessage
}

// UnmarshalJSON splits the record into identity, media, the structured
// fields, and opaque pass-through attributes.
func (p *RawProduct) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}

	p.Fields = make(map[string]json.RawMessage)
	p.Attributes = make(map[string]json.RawMessage)

	for key, value := range doc {
		switch key {
		case "id":
			if err := json.Unmarshal(value, &p.ID); err != nil {
				return fmt.Errorf("decode product id: %w", err)
			}
		case "media":
			if err := json.Unmarshal(value, &p.Media); err != nil {
				return fmt.Errorf("decode product media: %w", err)
			}
		case FieldTechnicalData, FieldFunctionalities, FieldDownloads, FieldDescription:
			p.Fields[key] = value
		default:
			p.Attributes[key] = value
		}
	}
	return nil
}

// ProductPayload is the canonical create/update request body: opaque
// attributes, the re-serialized structured fields, and the reconciled media
// list.
type ProductPayload struct {
	Attributes map[string]json.RawMessage
	Fields     map[string]json.RawMessage
	Media      []MediaEntry
}

// MarshalJSON flattens the payload into the single object the catalog
// service expects. Structured fields win over same-named attributes.
func (p ProductPayload) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(p.Attributes)+len(p.Fields)+1)
	for key, value := range p.Attributes {
		doc[key] = value
	}
	for key, value := range p.Fields {
		doc[key] = value
	}

	media := p.Media
	if media == nil {
		media = []MediaEntry{}
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("encode payload media: %w", err)
	}
	doc["media"] = encoded

	return json.Marshal(doc)
}
