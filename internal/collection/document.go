package collection

import (
	"bytes"
	"encoding/json"
	"time"

	"discshelf/internal/services"
)

// Document is the persisted collection.
type Document struct {
	UpdatedAt string        `json:"updated_at,omitempty"`
	Movies    []MovieRecord `json:"movies"`
}

// Snapshot is a document together with the token that guards the next write.
// An empty token means the document does not exist yet.
type Snapshot struct {
	Document Document
	Token    string
}

// Timestamp formats t the way documents record times.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// EncodeDocument renders the document as two-space indented JSON.
func EncodeDocument(doc Document) ([]byte, error) {
	if doc.Movies == nil {
		doc.Movies = []MovieRecord{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, services.Wrap(services.ErrParse, "collection", "encode", "document", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeDocument parses stored content. Empty content is an empty collection.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{Movies: []MovieRecord{}}, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, services.Wrap(services.ErrParse, "collection", "decode", "document", err)
	}
	if doc.Movies == nil {
		doc.Movies = []MovieRecord{}
	}
	return doc, nil
}
