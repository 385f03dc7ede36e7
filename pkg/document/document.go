// Package document persists page and workspace documents through a
// storage.KV, handles versioned export/import and debounces auto-saves.
package document

import (
	"time"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/google/uuid"
)

// Meta is the metadata every persisted document carries. Timestamps are
// epoch milliseconds.
type Meta struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	CreatedAt int64  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64  `json:"updatedAt" yaml:"updatedAt"`
}

// Metadata returns m itself so embedding types satisfy Document
func (m *Meta) Metadata() *Meta {
	return m
}

// Document is anything that can be stored in a Collection
type Document interface {
	Metadata() *Meta
}

// NewMeta returns metadata with a fresh id, stamped at now
func NewMeta(name string, now time.Time) Meta {
	ms := now.UnixMilli()
	return Meta{ID: NewID(), Name: name, CreatedAt: ms, UpdatedAt: ms}
}

// NewID mints a document id
func NewID() string {
	return uuid.NewString()
}

// Page is a saved node tree
type Page struct {
	Meta  `yaml:",inline"`
	Nodes []*tree.Node `json:"nodes" yaml:"nodes"`
}

// NewPage creates an empty page
func NewPage(name string) *Page {
	return &Page{Meta: NewMeta(name, time.Now()), Nodes: []*tree.Node{}}
}

// Count returns the number of nodes in the page
func (p *Page) Count() int {
	total := 0
	for _, n := range p.Nodes {
		total += n.Count()
	}
	return total
}
