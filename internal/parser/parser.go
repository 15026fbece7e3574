// Package parser decodes structured-criteria documents written as JSON or
// YAML into the raw form the criteria validator consumes.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/query"
)

// Context carries the optional per-document resolution context. Empty
// values fall back to the caller's defaults.
type Context struct {
	User      string `json:"current_user,omitempty"`
	Folder    string `json:"current_folder,omitempty"`
	Reference string `json:"current_date,omitempty"`
}

// Result holds one decoded criteria document.
type Result struct {
	// Document is the decoded mapping, passed as-is to query.Validate.
	Document map[string]any
	Context  Context
	// Title is the natural-language request the criteria came from, if the
	// document records it.
	Title string
}

// Parse decodes a single document. JSON input is accepted as YAML.
func Parse(data []byte) (*Result, error) {
	results, err := ParseAll(data)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return &Result{}, nil
	case 1:
		return results[0], nil
	default:
		return nil, &query.ValidationError{Index: -1, Reason: fmt.Sprintf("expected one document, found %d", len(results))}
	}
}

// ParseAll decodes a stream of "---" separated documents. Empty documents
// are skipped.
func ParseAll(data []byte) ([]*Result, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []*Result
	for n := 0; ; n++ {
		var raw any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, &query.ValidationError{Index: -1, Reason: fmt.Sprintf("malformed document %d: %v", n, err)}
		}
		if raw == nil {
			continue
		}
		doc, ok := raw.(map[string]any)
		if !ok {
			return nil, &query.ValidationError{Index: -1, Reason: fmt.Sprintf("document %d must be a mapping", n)}
		}
		out = append(out, FromDocument(doc))
	}
}

// FromDocument wraps an already decoded document, e.g. a JSON request body.
func FromDocument(doc map[string]any) *Result {
	return &Result{
		Document: doc,
		Context:  extractContext(doc),
		Title:    deriveTitle(doc),
	}
}

// extractContext reads the "context" member. Non-string values are ignored.
func extractContext(doc map[string]any) Context {
	m, ok := doc["context"].(map[string]any)
	if !ok {
		return Context{}
	}
	return Context{
		User:      stringField(m, "current_user"),
		Folder:    stringField(m, "current_folder"),
		Reference: stringField(m, "current_date"),
	}
}

// deriveTitle returns the "query" member if present, otherwise "title",
// otherwise empty string.
func deriveTitle(doc map[string]any) string {
	for _, key := range []string{"query", "title"} {
		if s := strings.TrimSpace(stringField(doc, key)); s != "" {
			return s
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
