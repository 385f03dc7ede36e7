// Package storage provides the key-value persistence backends documents are
// written to. Values are opaque blobs; keys are slash-separated identifiers
// such as "pages/<id>".
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/pagebuilder/pkg/validation"
)

var (
	// ErrNotFound is returned by Load when the key has no value
	ErrNotFound = errors.New("key not found")
	// ErrInvalidKey is returned for keys that are not slash-separated identifiers
	ErrInvalidKey = errors.New("invalid key")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("store closed")
)

// KV is the minimal persistence contract. Writes to the same key are
// last-write-wins; Delete of a missing key is not an error.
type KV interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in ascending order
	List(ctx context.Context, prefix string) ([]string, error)
	// Clear deletes every key starting with prefix
	Clear(ctx context.Context, prefix string) error
	Close() error
}

func checkKey(key string) error {
	if !validation.IsValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func sortedWithPrefix(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
