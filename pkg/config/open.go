package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/storage"
)

// OpenStorage opens the configured KV backend
func (c *Config) OpenStorage(ctx context.Context, dir string) (storage.KV, error) {
	switch c.Storage.Backend {
	case BackendMemory:
		return storage.NewMemoryKV(), nil
	case BackendFile:
		return storage.NewFileKV(c.StoragePath(dir))
	case BackendSQLite:
		return storage.NewSQLiteKV(ctx, c.StoragePath(dir))
	}
	return nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
}

// LoadCatalog returns the configured catalog, or the built-in one
func (c *Config) LoadCatalog(dir string) (*catalog.Registry, error) {
	if c.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	path := c.Catalog.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return catalog.LoadFile(path)
}
