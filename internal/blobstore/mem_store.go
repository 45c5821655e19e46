package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type memBlob struct {
	data      []byte
	mediaType string
}

// MemStore keeps blobs in process memory. Resolve yields inline data URLs,
// so payloads never need a separate media route.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
	keys  keyGenerator
}

// NewMemStore creates an empty MemStore. A nil entropy source uses crypto/rand.
func NewMemStore(entropy io.Reader, now func() time.Time) *MemStore {
	return &MemStore{
		blobs: map[string]memBlob{},
		keys:  newKeyGenerator(entropy, now),
	}
}

// Put buffers the payload and stores it under a new key. An empty mediaType
// falls back to the extension, then to content sniffing.
func (m *MemStore) Put(ctx context.Context, r io.Reader, originalName, mediaType string) (BlobPutResult, error) {
	var zero BlobPutResult
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return zero, err
	}
	if len(data) == 0 {
		return zero, ErrEmptyPayload
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = mime.TypeByExtension(filepath.Ext(originalName))
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for attempt := 0; attempt < keyMaxAttempts; attempt++ {
		key, err := m.keys.next(originalName, mediaType)
		if err != nil {
			return zero, err
		}
		if _, exists := m.blobs[key]; exists {
			continue
		}
		m.blobs[key] = memBlob{data: data, mediaType: mediaType}
		sum := sha256.Sum256(data)
		return BlobPutResult{Key: key, SizeBytes: int64(len(data)), SHA256: hex.EncodeToString(sum[:])}, nil
	}
	return zero, fmt.Errorf("unable to generate unique blob key")
}

// Open returns a reader over a copy-free view of the stored bytes.
func (m *MemStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := m.get(key)
	if err != nil {
		return nil, err
	}
	return nopReadSeekCloser{bytes.NewReader(blob.data)}, nil
}

// Resolve encodes the payload as a data URL.
func (m *MemStore) Resolve(key string) (string, error) {
	blob, err := m.get(key)
	if err != nil {
		return "", err
	}
	return "data:" + blob.mediaType + ";base64," + base64.StdEncoding.EncodeToString(blob.data), nil
}

// Delete removes a blob. Missing keys are ignored.
func (m *MemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored blobs.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func (m *MemStore) get(key string) (memBlob, error) {
	if err := checkKey(key); err != nil {
		return memBlob{}, err
	}
	m.mu.RLock()
	blob, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return memBlob{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return blob, nil
}

type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }

var _ BlobStore = (*MemStore)(nil)
