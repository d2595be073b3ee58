// Package corpus reads the versioned JSON document corpus: the git checkout,
// change detection between revision markers, and per-document parsing.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/artsmia/miarag/internal/errors"
)

// fieldOrder is the fixed assembly order. It is part of the output contract:
// changing it changes the assembled text and therefore the embeddings.
var fieldOrder = []string{
	"title", "description", "text", "artist", "culture", "medium", "creditline",
}

// Document is a single corpus record. All structured fields are optional.
type Document struct {
	// ID groups the document's chunks. Taken from the record's "id" field,
	// falling back to the file's corpus-relative path.
	ID string
	// Path is the corpus-relative file path.
	Path string
	// Fields holds the populated structured fields keyed by lower-case name.
	Fields map[string]string
}

// Parse decodes a corpus record. The payload must be a JSON object; anything
// else is a skippable document error.
func Parse(relPath string, data []byte) (*Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.CodeDocumentInvalid, err).WithDetail("path", relPath)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New(errors.CodeDocumentNotObject,
			fmt.Sprintf("top-level JSON value is %T, want object", raw), nil).
			WithDetail("path", relPath)
	}

	doc := &Document{
		ID:     relPath,
		Path:   relPath,
		Fields: make(map[string]string),
	}

	if id := stringValue(obj["id"]); id != "" {
		doc.ID = id
	}

	for _, field := range fieldOrder {
		if v := stringValue(obj[field]); v != "" {
			doc.Fields[field] = v
		}
	}

	return doc, nil
}

// AssembleText concatenates "{Label}: {value}" lines for each populated
// field, in the fixed field order. A document with no populated fields
// assembles to the empty string and yields zero chunks downstream.
func (d *Document) AssembleText() string {
	var lines []string
	for _, field := range fieldOrder {
		if v, ok := d.Fields[field]; ok {
			lines = append(lines, capitalize(field)+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

// HashFile computes the hex SHA-256 digest of a file's raw bytes, streaming
// rather than loading the file whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(errors.CodeDocumentUnreadable, err).WithDetail("path", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(errors.CodeDocumentUnreadable, err).WithDetail("path", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// stringValue renders a JSON scalar as a string. Objects, arrays and null
// render empty and are treated as unpopulated.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// Corpus ids are sometimes bare numbers.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return ""
	default:
		return ""
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
