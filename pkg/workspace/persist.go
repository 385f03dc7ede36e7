package workspace

import (
	"fmt"
	"time"

	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/storage"
)

// Collection returns the workspace document collection over kv
func Collection(kv storage.KV, opts ...document.CollectionOption) *document.Collection[*Layout] {
	return document.NewCollection(kv, document.WorkspacesNamespace, func() *Layout { return &Layout{} }, opts...)
}

// Import reads a workspace export. The layout gets a new id.
func Import(data []byte, at time.Time) (*Layout, error) {
	l := &Layout{}
	if err := document.Import(data, l, at); err != nil {
		return nil, err
	}
	if err := Validate(l); err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidExport, err)
	}
	if l.Panels == nil {
		l.Panels = []*Panel{}
	}
	if l.Name == "" {
		l.Name = "Imported workspace"
	}
	return l, nil
}
