package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	pberrors "github.com/dshills/pagebuilder/pkg/errors"
	"github.com/dshills/pagebuilder/pkg/storage"
	"github.com/rs/zerolog"
)

// Namespaces used for keys in the KV store
const (
	PagesNamespace      = "pages/"
	WorkspacesNamespace = "workspaces/"
)

// ErrNotFound is returned when a document does not exist or cannot be decoded
var ErrNotFound = errors.New("document not found")

// CollectionOption configures a Collection
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	logger zerolog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for corrupt documents and failed saves
func WithLogger(logger zerolog.Logger) CollectionOption {
	return func(c *collectionConfig) {
		c.logger = logger
	}
}

// WithClock overrides the time source for timestamps
func WithClock(now func() time.Time) CollectionOption {
	return func(c *collectionConfig) {
		c.now = now
	}
}

// Collection stores documents of one type under a key namespace
type Collection[T Document] struct {
	kv        storage.KV
	namespace string
	newDoc    func() T
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCollection creates a collection over kv. newDoc returns an empty
// document to decode into.
func NewCollection[T Document](kv storage.KV, namespace string, newDoc func() T, opts ...CollectionOption) *Collection[T] {
	cfg := collectionConfig{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !strings.HasSuffix(namespace, "/") {
		namespace += "/"
	}
	return &Collection[T]{
		kv:        kv,
		namespace: namespace,
		newDoc:    newDoc,
		logger:    cfg.logger,
		now:       cfg.now,
	}
}

// Pages returns the page collection over kv
func Pages(kv storage.KV, opts ...CollectionOption) *Collection[*Page] {
	return NewCollection(kv, PagesNamespace, func() *Page { return &Page{} }, opts...)
}

func (c *Collection[T]) key(id string) string {
	return c.namespace + id
}

// Save stamps doc and writes it. A document without an id gets one. The
// stamps are only kept on doc once the write succeeds.
func (c *Collection[T]) Save(ctx context.Context, doc T) error {
	meta := doc.Metadata()
	prev := *meta
	stamped := prev
	if stamped.ID == "" {
		stamped.ID = NewID()
	}
	now := c.now().UnixMilli()
	if stamped.CreatedAt == 0 {
		stamped.CreatedAt = now
	}
	stamped.UpdatedAt = now

	// encode with the new stamps, then put the old ones back until the write lands
	*meta = stamped
	data, err := json.Marshal(doc)
	*meta = prev
	if err != nil {
		return pberrors.NewOperationalError("encoding document", stamped.ID, "", err)
	}
	if err := c.kv.Save(ctx, c.key(stamped.ID), data); err != nil {
		return pberrors.NewOperationalError("saving document", stamped.ID, "", err).
			WithAttr("namespace", c.namespace)
	}
	*meta = stamped
	return nil
}

// Load reads a document. Missing and corrupt documents both report false;
// corrupt ones are logged.
func (c *Collection[T]) Load(ctx context.Context, id string) (T, bool) {
	var zero T
	data, err := c.kv.Load(ctx, c.key(id))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn().Err(err).Str("document", id).Msg("failed to load document")
		}
		return zero, false
	}
	doc, err := c.decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("document", id).Msg("corrupt document")
		return zero, false
	}
	return doc, true
}

func (c *Collection[T]) decode(data []byte) (T, error) {
	doc := c.newDoc()
	if err := json.Unmarshal(data, doc); err != nil {
		var zero T
		return zero, err
	}
	if doc.Metadata().ID == "" {
		var zero T
		return zero, fmt.Errorf("document has no id")
	}
	return doc, nil
}

// Delete removes a document
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.kv.Delete(ctx, c.key(id)); err != nil {
		return pberrors.NewOperationalError("deleting document", id, "", err)
	}
	return nil
}

// List returns every readable document, most recently updated first
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	keys, err := c.kv.List(ctx, c.namespace)
	if err != nil {
		return nil, pberrors.NewOperationalError("listing documents", "", "", err).
			WithAttr("namespace", c.namespace)
	}

	docs := make([]T, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, c.namespace)
		if strings.Contains(id, "/") {
			continue
		}
		if doc, ok := c.Load(ctx, id); ok {
			docs = append(docs, doc)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].Metadata(), docs[j].Metadata()
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		return a.ID < b.ID
	})
	return docs, nil
}

// Duplicate saves a copy of document id under a new id. An empty name
// becomes "<original> (copy)".
func (c *Collection[T]) Duplicate(ctx context.Context, id, name string) (T, error) {
	var zero T
	data, err := c.kv.Load(ctx, c.key(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return zero, pberrors.NewOperationalError("duplicating document", id, "", ErrNotFound)
		}
		return zero, pberrors.NewOperationalError("duplicating document", id, "", err)
	}
	doc, err := c.decode(data)
	if err != nil {
		return zero, pberrors.NewOperationalError("duplicating document", id, "", fmt.Errorf("%w: %v", ErrNotFound, err))
	}

	meta := doc.Metadata()
	if name == "" {
		name = meta.Name + " (copy)"
	}
	meta.ID = NewID()
	meta.Name = name
	meta.CreatedAt = 0

	if err := c.Save(ctx, doc); err != nil {
		return zero, err
	}
	return doc, nil
}

// Clear removes every document in the collection
func (c *Collection[T]) Clear(ctx context.Context) error {
	if err := c.kv.Clear(ctx, c.namespace); err != nil {
		return pberrors.NewOperationalError("clearing documents", "", "", err).
			WithAttr("namespace", c.namespace)
	}
	return nil
}
