package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

func TestBlobStores(t *testing.T) {
	stores := map[string]func(t *testing.T) blobStore{
		"sqlite": func(t *testing.T) blobStore {
			store, cleanup := createTestStorage(t)
			t.Cleanup(cleanup)
			return store
		},
		"file": func(t *testing.T) blobStore {
			store, err := NewFileBlobStore(filepath.Join(t.TempDir(), "models"))
			require.NoError(t, err)
			return store
		},
		"memory": func(_ *testing.T) blobStore {
			return NewMemoryBlobStore()
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, common.ErrNotFound)

			require.NoError(t, store.Put(ctx, "model", []byte("first")))
			got, err := store.Get(ctx, "model")
			require.NoError(t, err)
			assert.Equal(t, []byte("first"), got)

			require.NoError(t, store.Put(ctx, "model", []byte("second")))
			got, err = store.Get(ctx, "model")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), got)

			assert.Error(t, store.Put(ctx, "", []byte("x")))
		})
	}
}

func TestFileBlobStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileBlobStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "match-classifier", []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "match-classifier.model", entries[0].Name())
}

func TestFileBlobStore_RejectsPathKeys(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape", []byte("x"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
