package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFSPutOpenDelete(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir(), LocalFSOptions{})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := fs.Put(ctx, bytes.NewBufferString("hello"), "song.MP3", "")
	require.NoError(t, err)
	assert.EqualValues(t, 5, first.SizeBytes)
	assert.True(t, strings.HasSuffix(first.Key, ".mp3"), "key %q should keep the lowercased extension", first.Key)
	assert.True(t, ValidKey(first.Key))
	assert.NotEmpty(t, first.SHA256)

	second, err := fs.Put(ctx, bytes.NewBufferString("hello"), "song.mp3", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key, "identical payloads must still get distinct keys")

	rc, err := fs.Open(ctx, first.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, fs.Delete(ctx, first.Key))
	require.NoError(t, fs.Delete(ctx, first.Key), "delete of a missing blob should be a no-op")

	_, err = fs.Open(ctx, first.Key)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestLocalFSPutRejectsEmptyPayload(t *testing.T) {
	root := t.TempDir()
	fs, err := NewLocalFS(root, LocalFSOptions{})
	require.NoError(t, err)

	_, err = fs.Put(context.Background(), strings.NewReader(""), "empty.wav", "")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	assertNoFiles(t, root)
}

func TestLocalFSPutHonoursCancelledContext(t *testing.T) {
	root := t.TempDir()
	fs, err := NewLocalFS(root, LocalFSOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fs.Put(ctx, strings.NewReader("data"), "a.mp3", "")
	assert.ErrorIs(t, err, context.Canceled)
	assertNoFiles(t, root)
}

func TestLocalFSNeverUsesOriginalNameAsKey(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir(), LocalFSOptions{})
	require.NoError(t, err)

	res, err := fs.Put(context.Background(), strings.NewReader("x"), "../../etc/passwd", "")
	require.NoError(t, err)
	assert.NotContains(t, res.Key, "passwd")
	assert.NotContains(t, res.Key, "/")

	res, err = fs.Put(context.Background(), strings.NewReader("x"), "weird.ext-with$chars", "")
	require.NoError(t, err)
	assert.Equal(t, -1, strings.IndexByte(res.Key, '$'))
}

func TestLocalFSKeysUseInjectedClockAndEntropy(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	fs, err := NewLocalFS(t.TempDir(), LocalFSOptions{
		Entropy: bytes.NewReader(bytes.Repeat([]byte{0xab}, 64)),
		Now:     func() time.Time { return fixed },
	})
	require.NoError(t, err)

	res, err := fs.Put(context.Background(), strings.NewReader("x"), "clip.mp4", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "1700000000123-abababab-"), "unexpected key %q", res.Key)
}

func TestLocalFSRejectsTraversalKeys(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir(), LocalFSOptions{})
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../x", "/etc/passwd", "tmp/put-1", "a/b"} {
		_, err := fs.Open(ctx, key)
		assert.Error(t, err, "open %q", key)
		assert.Error(t, fs.Delete(ctx, key), "delete %q", key)
		_, err = fs.Resolve(key)
		assert.Error(t, err, "resolve %q", key)
	}
}

func TestLocalFSResolve(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir(), LocalFSOptions{URLPrefix: "/media"})
	require.NoError(t, err)

	res, err := fs.Put(context.Background(), strings.NewReader("x"), "a.ogg", "")
	require.NoError(t, err)
	ref, err := fs.Resolve(res.Key)
	require.NoError(t, err)
	assert.Equal(t, "/media/"+res.Key, ref)
}

func assertNoFiles(t *testing.T, root string) {
	t.Helper()
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalFSKeyExtensionFromMediaType(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir(), LocalFSOptions{})
	require.NoError(t, err)

	res, err := fs.Put(context.Background(), strings.NewReader("x"), "voice-note", "audio/mpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Key, ".mp3"), "key %q", res.Key)
	assert.True(t, ValidKey(res.Key))

	res, err = fs.Put(context.Background(), strings.NewReader("x"), "clip.webm", "audio/mpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Key, ".webm"), "name extension wins, got %q", res.Key)
}
