package runpackstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_PutGetExists(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rootHash := "sha256:deadbeef"
	bundle := []byte("fake tar.gz bytes")

	ok, err := s.Exists(ctx, rootHash)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, rootHash, bundle))

	ok, err = s.Exists(ctx, rootHash)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get(ctx, rootHash)
	require.NoError(t, err)
	require.Equal(t, bundle, got)
}

func TestFileStore_PutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rootHash := "sha256:deadbeef"
	require.NoError(t, s.Put(ctx, rootHash, []byte("first")))
	require.NoError(t, s.Put(ctx, rootHash, []byte("second-should-be-ignored")))

	got, err := s.Get(ctx, rootHash)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)
}

func TestFileStore_GetMissingReturnsError(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(ctx, "sha256:never-stored")
	require.Error(t, err)
}

func TestOpen_FileScheme(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), "file://"+dir)
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "ftp://example.com/bucket")
	require.Error(t, err)
}
