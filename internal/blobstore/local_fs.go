package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultURLPrefix = "/uploads/"
	keyMaxAttempts   = 5
)

// LocalFSOptions tunes a LocalFS. Zero values select defaults.
type LocalFSOptions struct {
	// URLPrefix is prepended to keys by Resolve.
	URLPrefix string
	// Entropy feeds key generation; crypto/rand when nil.
	Entropy io.Reader
	Now     func() time.Time
}

// LocalFS stores blob bytes as flat files under a root directory.
type LocalFS struct {
	root      string
	urlPrefix string
	keys      keyGenerator
}

// NewLocalFS creates a LocalFS rooted at root.
func NewLocalFS(root string, opts LocalFSOptions) (*LocalFS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("uploads dir is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}

	prefix := strings.TrimSpace(opts.URLPrefix)
	if prefix == "" {
		prefix = defaultURLPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &LocalFS{
		root:      abs,
		urlPrefix: prefix,
		keys:      newKeyGenerator(opts.Entropy, opts.Now),
	}, nil
}

// Root returns the absolute blob directory.
func (l *LocalFS) Root() string {
	if l == nil {
		return ""
	}
	return l.root
}

// Put streams bytes into a staging file, syncs it, and renames it under a
// freshly generated key.
func (l *LocalFS) Put(ctx context.Context, r io.Reader, originalName, mediaType string) (BlobPutResult, error) {
	var zero BlobPutResult
	if l == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if n == 0 {
		cleanup()
		return zero, ErrEmptyPayload
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return zero, err
	}

	for attempt := 0; attempt < keyMaxAttempts; attempt++ {
		key, err := l.keys.next(originalName, mediaType)
		if err != nil {
			_ = os.Remove(tmpPath)
			return zero, err
		}
		dst := filepath.Join(l.root, key)
		if _, err := os.Stat(dst); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(tmpPath)
			return zero, err
		}
		if err := os.Rename(tmpPath, dst); err != nil {
			_ = os.Remove(tmpPath)
			return zero, err
		}
		syncDir(l.root)
		return BlobPutResult{Key: key, SizeBytes: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
	}

	_ = os.Remove(tmpPath)
	return zero, fmt.Errorf("unable to generate unique blob key")
}

// Open returns a reader for blob content. The returned reader is an
// *os.File and therefore also an io.ReadSeeker.
func (l *LocalFS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if l == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

// Resolve maps a key to its URL path under the configured prefix.
func (l *LocalFS) Resolve(key string) (string, error) {
	if l == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	if err := checkKey(key); err != nil {
		return "", err
	}
	return l.urlPrefix + key, nil
}

// Delete removes a blob object. Missing files are ignored.
func (l *LocalFS) Delete(ctx context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *LocalFS) pathFromKey(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, key), nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports syncing directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

var _ BlobStore = (*LocalFS)(nil)
