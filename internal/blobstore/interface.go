package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrEmptyPayload is returned by Put when the reader yields no bytes.
var ErrEmptyPayload = errors.New("payload is empty")

// ErrNotFound is returned by Open when no blob exists for a key.
var ErrNotFound = errors.New("blob not found")

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	Key       string
	SizeBytes int64
	SHA256    string
}

// BlobStore is the byte-storage abstraction used by MemoryService.
type BlobStore interface {
	// Put stores the payload. originalName only contributes its extension;
	// mediaType is the already validated type and may be empty.
	Put(ctx context.Context, r io.Reader, originalName, mediaType string) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Resolve returns a reference a client can fetch the payload from.
	Resolve(key string) (string, error)
	Delete(ctx context.Context, key string) error
}
