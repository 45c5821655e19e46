package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime"
	"strings"
	"sync"
	"time"

	"mp3index/internal/api"
	"mp3index/internal/blobstore"
	"mp3index/internal/models"
	"mp3index/internal/store"
)

const (
	// DefaultMaxUploadBytes bounds one uploaded payload.
	DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

	timestampPrecision = time.Millisecond
)

// SubmitInput carries the metadata of one memory submission.
type SubmitInput struct {
	FileName      string
	MediaType     string
	SizeBytes     int64
	RecipientName string
	MemoryText    string
	LabelColor    string
}

// MemoryServiceOptions tunes a MemoryService. Zero values select defaults.
type MemoryServiceOptions struct {
	MaxUploadBytes int64
	// Rand picks label colors when none is supplied.
	Rand   *rand.Rand
	Now    func() time.Time
	Logger *slog.Logger
}

// MemoryService validates submissions and persists them blob first, row second.
type MemoryService struct {
	store          store.MemoryStore
	blobs          blobstore.BlobStore
	mapper         memoryMapper
	maxUploadBytes int64
	now            func() time.Time
	logger         *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewMemoryService constructs a MemoryService.
func NewMemoryService(memoryStore store.MemoryStore, blobs blobstore.BlobStore, mapper memoryMapper, opts MemoryServiceOptions) *MemoryService {
	svc := &MemoryService{
		store:          memoryStore,
		blobs:          blobs,
		mapper:         mapper,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            opts.Now,
		logger:         opts.Logger,
		rand:           opts.Rand,
	}
	if svc.maxUploadBytes <= 0 {
		svc.maxUploadBytes = DefaultMaxUploadBytes
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// MaxUploadBytes returns the configured payload bound.
func (s *MemoryService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Submit validates in, stores content and records the memory. Validation
// failures have no side effects. A failed insert deletes the stored blob.
func (s *MemoryService) Submit(ctx context.Context, in SubmitInput, content io.Reader) (api.Memory, error) {
	var zero api.Memory
	if s == nil || s.store == nil || s.blobs == nil {
		return zero, internalError(fmt.Errorf("memory service is not configured"))
	}

	mediaType, err := s.validate(&in, content)
	if err != nil {
		return zero, err
	}
	label, err := s.pickLabelColor(in.LabelColor)
	if err != nil {
		return zero, err
	}

	put, err := s.blobs.Put(ctx, io.LimitReader(content, s.maxUploadBytes+1), in.FileName, mediaType)
	if err != nil {
		if errors.Is(err, blobstore.ErrEmptyPayload) {
			return zero, invalidFileType(fmt.Errorf("file is empty"))
		}
		return zero, storeFailure(fmt.Errorf("store payload: %w", err))
	}
	if put.SizeBytes > s.maxUploadBytes {
		s.discardBlob(put.Key, "payload exceeded upload limit")
		return zero, payloadTooLarge(s.maxUploadBytes)
	}

	memory := &models.Memory{
		FileName:      in.FileName,
		BlobKey:       put.Key,
		MediaType:     mediaType,
		MemoryText:    in.MemoryText,
		RecipientName: in.RecipientName,
		LabelColor:    label,
		Timestamp:     s.now().UTC().Truncate(timestampPrecision),
		FileSize:      put.SizeBytes,
		SHA256:        put.SHA256,
	}
	if _, err := s.store.InsertMemory(ctx, memory); err != nil {
		s.discardBlob(put.Key, "metadata insert failed")
		return zero, storeFailure(fmt.Errorf("insert memory: %w", err))
	}

	out, err := s.mapper.toAPI(*memory)
	if err != nil {
		return zero, storeFailure(fmt.Errorf("resolve payload: %w", err))
	}
	s.logger.Info("memory stored",
		"id", memory.ID,
		"blob_key", memory.BlobKey,
		"media_type", memory.MediaType,
		"size_bytes", memory.FileSize,
	)
	return out, nil
}

// validate checks submission fields in a fixed order and normalizes them in
// place. It returns the normalized media type.
func (s *MemoryService) validate(in *SubmitInput, content io.Reader) (string, error) {
	if content == nil || in.SizeBytes == 0 {
		return "", invalidFileType(fmt.Errorf("an audio or video file is required"))
	}
	mediaType := normalizeMediaType(in.MediaType)
	if !models.IsPlayableMediaType(mediaType) {
		return "", invalidFileType(fmt.Errorf("only audio and video files are allowed"))
	}

	in.RecipientName = strings.TrimSpace(in.RecipientName)
	if in.RecipientName == "" {
		return "", missingField("recipientName")
	}
	in.MemoryText = strings.TrimSpace(in.MemoryText)
	if in.MemoryText == "" {
		return "", missingField("memoryText")
	}

	if in.SizeBytes > s.maxUploadBytes {
		return "", payloadTooLarge(s.maxUploadBytes)
	}

	in.FileName = strings.TrimSpace(in.FileName)
	return mediaType, nil
}

func (s *MemoryService) pickLabelColor(raw string) (models.LabelColor, error) {
	if strings.TrimSpace(raw) == "" {
		s.randMu.Lock()
		defer s.randMu.Unlock()
		return models.RandomLabelColor(s.rand), nil
	}
	label, err := models.ParseLabelColor(raw)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidLabelColor)
	}
	return label, nil
}

// discardBlob removes a blob written by a submission that will not be recorded.
func (s *MemoryService) discardBlob(key, reason string) {
	// The request context may already be cancelled; cleanup must still run.
	if err := s.blobs.Delete(context.Background(), key); err != nil {
		s.logger.Error("discard blob", "blob_key", key, "reason", reason, "error", err)
		return
	}
	s.logger.Warn("discarded blob", "blob_key", key, "reason", reason)
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parsed))
}
