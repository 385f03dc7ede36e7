package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/pagebuilder/pkg/validation"
)

const fileExt = ".json"

// FileKV stores one file per key below a base directory. "pages/abc" is
// written to <base>/pages/abc.json.
type FileKV struct {
	mu        sync.RWMutex
	validator *validation.PathValidator
	closed    bool
}

// NewFileKV creates a store rooted at baseDir, creating it if needed
func NewFileKV(baseDir string) (*FileKV, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	v, err := validation.NewPathValidator(abs)
	if err != nil {
		return nil, err
	}
	return &FileKV{validator: v}, nil
}

// Dir returns the resolved base directory
func (f *FileKV) Dir() string {
	return f.validator.Base()
}

func (f *FileKV) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	p, err := f.validator.KeyPath(key, fileExt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return p, nil
}

// Save writes value atomically using a temp file and rename
func (f *FileKV) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, value, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", key, err)
	}
	return nil
}

// Load reads the file for key
func (f *FileKV) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath, err := f.path(key)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the file for key
func (f *FileKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return f.remove(key, filePath)
}

func (f *FileKV) remove(key, filePath string) error {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// List walks the base directory and returns the keys under prefix
func (f *FileKV) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}
	return f.list(prefix)
}

func (f *FileKV) list(prefix string) ([]string, error) {
	base := f.validator.Base()
	var keys []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileExt) {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), fileExt)
		if validation.IsValidKey(key) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}
	return sortedWithPrefix(keys, prefix), nil
}

// Clear removes every key under prefix
func (f *FileKV) Clear(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	keys, err := f.list(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		filePath, err := f.path(key)
		if err != nil {
			return err
		}
		if err := f.remove(key, filePath); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store closed. Files stay on disk.
func (f *FileKV) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
