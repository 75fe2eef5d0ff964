package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "posts/small.gif", strings.NewReader("GIF89a"), 6, "image/gif"))

	rc, obj, err := store.Open(ctx, "posts/small.gif")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(data))
	assert.Equal(t, "image/gif", obj.ContentType)
	assert.EqualValues(t, 6, obj.Size)

	require.NoError(t, store.Delete(ctx, "posts/small.gif"))
	_, _, err = store.Open(ctx, "posts/small.gif")
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, store.Delete(ctx, "posts/small.gif"), ErrNotExist)
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFSStore(filepath.Join(root, "media"))
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../secret", "posts/../../secret", `posts\x.gif`} {
		err := store.Save(ctx, key, strings.NewReader("x"), 1, "text/plain")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	_, err = os.Stat(filepath.Join(root, "secret"))
	assert.True(t, os.IsNotExist(err))
}

func TestFSStore_DirectoryIsNotAnObject(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "posts/a.gif", strings.NewReader("x"), 1, ""))

	_, _, err = store.Open(context.Background(), "posts")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestCleanKey(t *testing.T) {
	k, err := CleanKey("posts//a.gif")
	require.NoError(t, err)
	assert.Equal(t, "posts/a.gif", k)

	_, err = CleanKey("..")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
