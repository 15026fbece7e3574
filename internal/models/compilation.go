// Package models defines the domain types for Ansuz.
package models

import "time"

// Compilation is one recorded attempt to compile a criteria document.
type Compilation struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	// Document is the inbox path the criteria came from, empty for
	// compilations requested over the API, MCP or CLI.
	Document   string    `json:"document,omitempty"`
	Title      string    `json:"title,omitempty"`
	Checksum   string    `json:"checksum"`
	Criteria   string    `json:"criteria"`
	Categories []string  `json:"categories"`
	User       string    `json:"user"`
	Folder     string    `json:"folder"`
	Reference  time.Time `json:"reference"`
	Query      string    `json:"query"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OK reports whether the compilation produced a query.
func (c Compilation) OK() bool { return c.Error == "" }

// DocumentMetadata is a lightweight representation of an inbox document
// returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
