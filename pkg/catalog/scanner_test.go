package catalog

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T, exts ...string) (*Scanner, afero.Fs, *MemoryStore) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := NewMemoryStore()
	scanner := NewScanner(ScannerConfig{
		Fs:         fs,
		Store:      store,
		Extensions: exts,
		Workers:    2,
	})
	return scanner, fs, store
}

func TestScan(t *testing.T) {
	t.Run("extension allow-list and hidden directories", func(t *testing.T) {
		scanner, fs, _ := newTestScanner(t, ".pdf", "txt")
		writeFile(t, fs, "/library/report.pdf", "r")
		writeFile(t, fs, "/library/notes.TXT", "n")
		writeFile(t, fs, "/library/image.jpg", "j")
		writeFile(t, fs, "/library/sub/deep.pdf", "d")
		writeFile(t, fs, "/library/.cache/hidden.pdf", "h")

		found, err := scanner.Scan(context.Background(), "/library")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"/library/notes.TXT",
			"/library/report.pdf",
			"/library/sub/deep.pdf",
		}, found)
	})

	t.Run("missing root", func(t *testing.T) {
		scanner, _, _ := newTestScanner(t)
		_, err := scanner.Scan(context.Background(), "/nope")
		assert.True(t, IsPathNotFound(err))
	})

	t.Run("root is a file", func(t *testing.T) {
		scanner, fs, _ := newTestScanner(t)
		writeFile(t, fs, "/library/file.txt", "x")
		_, err := scanner.Scan(context.Background(), "/library/file.txt")
		assert.True(t, IsPathNotFound(err))
	})
}

func TestIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("stat hash and upsert", func(t *testing.T) {
		scanner, fs, store := newTestScanner(t)
		writeFile(t, fs, "/library/a.txt", "hello world")

		rec, err := scanner.Index(ctx, "/library/a.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(11), rec.Size)
		assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", rec.ContentHash)
		require.NotNil(t, rec.ModifiedAt)

		stored, err := store.Get("/library/a.txt")
		require.NoError(t, err)
		assert.Equal(t, rec.ContentHash, stored.ContentHash)
	})

	t.Run("re-index keeps creation time", func(t *testing.T) {
		scanner, fs, store := newTestScanner(t)
		writeFile(t, fs, "/library/a.txt", "v1")

		first, err := scanner.Index(ctx, "/library/a.txt")
		require.NoError(t, err)

		writeFile(t, fs, "/library/a.txt", "v2 longer")
		second, err := scanner.Index(ctx, "/library/a.txt")
		require.NoError(t, err)

		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
		assert.NotEqual(t, first.ContentHash, second.ContentHash)

		stored, err := store.Get("/library/a.txt")
		require.NoError(t, err)
		assert.Equal(t, second.ContentHash, stored.ContentHash)
	})

	t.Run("missing file", func(t *testing.T) {
		scanner, _, _ := newTestScanner(t)
		_, err := scanner.Index(ctx, "/library/nope.txt")
		assert.True(t, IsPathNotFound(err))
	})
}

func TestIndexTree(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes every discovered file", func(t *testing.T) {
		scanner, fs, store := newTestScanner(t, ".txt")
		writeFile(t, fs, "/library/a.txt", "a")
		writeFile(t, fs, "/library/sub/b.txt", "b")
		writeFile(t, fs, "/library/skip.jpg", "s")

		var seen int
		indexed, errs, err := scanner.IndexTree(ctx, "/library", func(path string, rec *FileRecord) {
			if rec != nil {
				seen++
			}
		})
		require.NoError(t, err)
		assert.Empty(t, errs)
		assert.Equal(t, 2, indexed)
		assert.Equal(t, 2, seen)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("drops stale records before indexing", func(t *testing.T) {
		scanner, fs, store := newTestScanner(t)
		writeFile(t, fs, "/library/keep.txt", "k")
		require.NoError(t, store.Upsert(&FileRecord{Path: "/library/gone.txt", ContentHash: "x"}))

		_, _, err := scanner.IndexTree(ctx, "/library", nil)
		require.NoError(t, err)

		_, err = store.Get("/library/gone.txt")
		assert.Error(t, err)
		_, err = store.Get("/library/keep.txt")
		assert.NoError(t, err)
	})
}

func TestReconcileStale(t *testing.T) {
	ctx := context.Background()
	scanner, fs, store := newTestScanner(t)

	writeFile(t, fs, "/library/here.txt", "h")
	require.NoError(t, store.Upsert(&FileRecord{Path: "/library/here.txt", ContentHash: "a"}))
	require.NoError(t, store.Upsert(&FileRecord{Path: "/library/gone.txt", ContentHash: "b"}))
	require.NoError(t, store.Upsert(&FileRecord{Path: "/elsewhere/gone.txt", ContentHash: "c"}))

	removed := scanner.ReconcileStale(ctx, "/library")
	assert.Equal(t, 1, removed)

	// Scoped strictly to the given directory
	_, err := store.Get("/elsewhere/gone.txt")
	assert.NoError(t, err)
	_, err = store.Get("/library/here.txt")
	assert.NoError(t, err)
}
