package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) KV
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) KV { return NewMemoryKV() }},
		{"file", func(t *testing.T) KV {
			kv, err := NewFileKV(t.TempDir())
			require.NoError(t, err)
			return kv
		}},
		{"sqlite", func(t *testing.T) KV {
			kv, err := NewSQLiteKV(context.Background(), filepath.Join(t.TempDir(), "pages.db"))
			require.NoError(t, err)
			return kv
		}},
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			defer func() { _ = kv.Close() }()

			_, err := kv.Load(ctx, "pages/missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Save(ctx, "pages/a", []byte(`{"n":1}`)))
			require.NoError(t, kv.Save(ctx, "pages/a", []byte(`{"n":2}`)))
			require.NoError(t, kv.Save(ctx, "pages/b", []byte(`{}`)))
			require.NoError(t, kv.Save(ctx, "workspaces/w", []byte(`{}`)))

			got, err := kv.Load(ctx, "pages/a")
			require.NoError(t, err)
			assert.Equal(t, `{"n":2}`, string(got), "last write wins")

			keys, err := kv.List(ctx, "pages/")
			require.NoError(t, err)
			assert.Equal(t, []string{"pages/a", "pages/b"}, keys)

			all, err := kv.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, kv.Delete(ctx, "pages/a"))
			require.NoError(t, kv.Delete(ctx, "pages/a"), "deleting a missing key is fine")
			_, err = kv.Load(ctx, "pages/a")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Clear(ctx, "pages/"))
			keys, err = kv.List(ctx, "pages/")
			require.NoError(t, err)
			assert.Empty(t, keys)

			_, err = kv.Load(ctx, "workspaces/w")
			assert.NoError(t, err, "clear only touches its prefix")
		})
	}
}

func TestKV_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	bad := []string{"", "../escape", "pages/../../etc", "/abs", "pages//x", "pages/a b"}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			defer func() { _ = kv.Close() }()
			for _, key := range bad {
				assert.ErrorIs(t, kv.Save(ctx, key, []byte("x")), ErrInvalidKey, key)
				_, err := kv.Load(ctx, key)
				assert.ErrorIs(t, err, ErrInvalidKey, key)
			}
		})
	}
}

func TestKV_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	value := []byte("abc")
	require.NoError(t, kv.Save(ctx, "k", value))
	value[0] = 'z'

	got, err := kv.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestKV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			defer func() { _ = kv.Close() }()
			assert.Error(t, kv.Save(ctx, "pages/a", []byte("x")))
		})
	}
}

func TestFileKV_Layout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Save(ctx, "pages/abc", []byte(`{}`)))

	_, err = os.Stat(filepath.Join(kv.Dir(), "pages", "abc.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(kv.Dir(), "pages", "abc.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	// stray files are not keys
	require.NoError(t, os.WriteFile(filepath.Join(kv.Dir(), "pages", "notes.txt"), []byte("x"), 0644))
	keys, err := kv.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pages/abc"}, keys)

	require.NoError(t, kv.Close())
	assert.ErrorIs(t, kv.Save(ctx, "pages/abc", nil), ErrClosed)
}

func TestSQLiteKV_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.db")

	kv, err := NewSQLiteKV(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Save(ctx, "pages/a", []byte("persisted")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLiteKV(ctx, path)
	require.NoError(t, err, "migrations are idempotent")
	defer func() { _ = kv.Close() }()

	got, err := kv.Load(ctx, "pages/a")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))

	var version int
	require.NoError(t, kv.db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version))
	assert.Equal(t, MigrationVersion, version)
}

func BenchmarkSQLiteKV_Save(b *testing.B) {
	ctx := context.Background()
	kv, err := NewSQLiteKV(ctx, filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, err)
	defer func() { _ = kv.Close() }()

	value := make([]byte, 4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := kv.Save(ctx, "pages/bench", value); err != nil {
			b.Fatal(err)
		}
	}
}
