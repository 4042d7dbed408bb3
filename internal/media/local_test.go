package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreLifecycle(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:3000/media/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, "abc.png", "image/png", strings.NewReader("data"), 4, map[string]string{MetaContentID: "bafk"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/media/abc.png", url)
	assert.FileExists(t, filepath.Join(dir, "abc.png"))

	meta, err := s.Meta(ctx, IDFromURL(url))
	require.NoError(t, err)
	assert.Equal(t, "bafk", meta[MetaContentID])

	require.NoError(t, s.Delete(ctx, "abc"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, s.Delete(ctx, "abc"), ErrObjectNotFound)
	_, err = s.Meta(ctx, "abc")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStoreRejectsPathsInKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://localhost:3000/media")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape.png", "image/png", strings.NewReader("x"), 1, nil)
	assert.Error(t, err)
	assert.Error(t, s.Delete(context.Background(), "*"))
}
