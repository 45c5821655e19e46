package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"mp3index/internal/blobstore"
	"mp3index/internal/models"
	"mp3index/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyStore wraps a MemoryStore and injects failures per operation.
type faultyStore struct {
	store.MemoryStore
	insertErr   error
	listErr     error
	getErr      error
	getCalls    int
	insertCalls int
}

func (f *faultyStore) InsertMemory(ctx context.Context, m *models.Memory) (int64, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return f.MemoryStore.InsertMemory(ctx, m)
}

func (f *faultyStore) ListMemories(ctx context.Context) ([]models.Memory, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.ListMemories(ctx)
}

func (f *faultyStore) GetMemory(ctx context.Context, id int64) (*models.Memory, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.GetMemory(ctx, id)
}

// failingBlobs wraps a BlobStore and fails every Put.
type failingBlobs struct {
	blobstore.BlobStore
	putErr   error
	putCalls int
}

func (f *failingBlobs) Put(ctx context.Context, r io.Reader, originalName, mediaType string) (blobstore.BlobPutResult, error) {
	f.putCalls++
	return blobstore.BlobPutResult{}, f.putErr
}

type serviceFixture struct {
	store   *faultyStore
	blobs   *blobstore.MemStore
	service *MemoryService
	gallery *GalleryService
}

func newServiceFixture(t *testing.T, maxUploadBytes int64) *serviceFixture {
	t.Helper()
	st := &faultyStore{MemoryStore: store.NewMemStore()}
	blobs := blobstore.NewMemStore(nil, func() time.Time { return fixedNow })
	mapper := newMemoryMapper(blobs, "")
	gallery, err := NewGalleryService(st, blobs, mapper, CacheOptions{MaxItems: 100}, testLogger())
	if err != nil {
		t.Fatalf("new gallery service: %v", err)
	}
	t.Cleanup(gallery.Close)
	return &serviceFixture{
		store: st,
		blobs: blobs,
		service: NewMemoryService(st, blobs, mapper, MemoryServiceOptions{
			MaxUploadBytes: maxUploadBytes,
			Rand:           rand.New(rand.NewPCG(1, 2)),
			Now:            func() time.Time { return fixedNow },
			Logger:         testLogger(),
		}),
		gallery: gallery,
	}
}

// newDurableServer wires SQLite metadata and on-disk payloads.
func newDurableServer(t *testing.T, opts Options) (*Server, *blobstore.LocalFS) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	blobs, err := blobstore.NewLocalFS(filepath.Join(dir, "uploads"), blobstore.LocalFSOptions{})
	if err != nil {
		t.Fatalf("new local fs: %v", err)
	}
	srv, err := New("127.0.0.1:0", st, blobs, opts, testLogger())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.gallery.Close)
	return srv, blobs
}

func newMemoryServer(t *testing.T, opts Options) *Server {
	t.Helper()
	srv, err := New("127.0.0.1:0", store.NewMemStore(), blobstore.NewMemStore(nil, nil), opts, testLogger())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.gallery.Close)
	return srv
}

type uploadForm struct {
	fileField string
	fileName  string
	mediaType string
	content   []byte
	fields    map[string]string
}

func (f uploadForm) build(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range f.fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	if f.fileField != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.fileField+`"; filename="`+f.fileName+`"`)
		if f.mediaType != "" {
			header.Set("Content-Type", f.mediaType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func songForm() uploadForm {
	return uploadForm{
		fileField: "file",
		fileName:  "song.mp3",
		mediaType: "audio/mpeg",
		content:   []byte("ID3 fake mp3 payload"),
		fields: map[string]string{
			"recipientName": "Alex",
			"memoryText":    "miss you",
		},
	}
}

func requireAPIError(t *testing.T, err error, status, errCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	var apiErr apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %T: %v", err, err)
	}
	if apiErr.status != status || apiErr.errCode != errCode {
		t.Fatalf("expected status=%d error_code=%d, got status=%d error_code=%d (%v)", status, errCode, apiErr.status, apiErr.errCode, err)
	}
}

func isPalette(color string) bool {
	return models.IsValidLabelColor(models.LabelColor(color))
}
