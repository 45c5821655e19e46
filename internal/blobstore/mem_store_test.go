package blobstore

import (
	"context"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ctx := context.Background()

	res, err := ms.Put(ctx, strings.NewReader("RIFF....WAVEfmt "), "memo.wav", "")
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Len())

	rc, err := ms.Open(ctx, res.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....WAVEfmt ", string(data))
	_, seekable := rc.(io.Seeker)
	assert.True(t, seekable)

	ref, err := ms.Resolve(res.Key)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "data:"), "unexpected ref %q", ref)
	encoded := ref[strings.Index(ref, ";base64,")+len(";base64,"):]
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	require.NoError(t, ms.Delete(ctx, res.Key))
	require.NoError(t, ms.Delete(ctx, res.Key))
	assert.Equal(t, 0, ms.Len())

	_, err = ms.Open(ctx, res.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreRejectsEmptyPayload(t *testing.T) {
	ms := NewMemStore(nil, nil)
	_, err := ms.Put(context.Background(), strings.NewReader(""), "x.mp3", "")
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Equal(t, 0, ms.Len())
}

func TestMemStoreUsesDeclaredMediaType(t *testing.T) {
	ms := NewMemStore(nil, nil)

	res, err := ms.Put(context.Background(), strings.NewReader("aaaaaaaaaaaaaaaa"), "voice-note", "audio/mpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Key, ".mp3"), "key %q should take the media type extension", res.Key)

	ref, err := ms.Resolve(res.Key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "data:audio/mpeg;base64,"), "unexpected ref prefix %q", ref[:32])
}

func TestMemStoreSniffsWithoutMediaType(t *testing.T) {
	ms := NewMemStore(nil, nil)

	res, err := ms.Put(context.Background(), strings.NewReader("aaaaaaaaaaaaaaaa"), "voice-note", "")
	require.NoError(t, err)

	ref, err := ms.Resolve(res.Key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "data:text/plain"), "unexpected ref %q", ref)
}
