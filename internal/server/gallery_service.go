package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgraph-io/ristretto"

	"mp3index/internal/api"
	"mp3index/internal/blobstore"
	"mp3index/internal/models"
	"mp3index/internal/store"
)

const (
	defaultCacheMaxItems       = 1000
	defaultCacheMaxBytes int64 = 64 << 20 // 64 MiB

	// cacheEntryOverhead approximates the fixed part of a cached record.
	cacheEntryOverhead = 256
)

// CacheOptions sizes the lookup cache. Zero values select defaults.
type CacheOptions struct {
	// MaxItems sizes the admission counters.
	MaxItems int
	// MaxBytes bounds the summed cost of cached records.
	MaxBytes int64
}

// MediaContent is an opened payload ready to be served.
type MediaContent struct {
	Reader    io.ReadCloser
	Name      string
	MediaType string
}

// GalleryService is the read-only query surface behind the gallery and player.
type GalleryService struct {
	store    store.MemoryStore
	blobs    blobstore.BlobStore
	mapper   memoryMapper
	cache    *ristretto.Cache
	maxBytes int64
	logger   *slog.Logger
}

// NewGalleryService constructs a GalleryService whose single-record lookups
// are cached. Records never change once written, so entries never expire;
// they are evicted by cost, which grows with the resolved payload reference.
func NewGalleryService(memoryStore store.MemoryStore, blobs blobstore.BlobStore, mapper memoryMapper, opts CacheOptions, logger *slog.Logger) (*GalleryService, error) {
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultCacheMaxItems
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultCacheMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(opts.MaxItems) * 10,
		MaxCost:            opts.MaxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &GalleryService{
		store:    memoryStore,
		blobs:    blobs,
		mapper:   mapper,
		cache:    cache,
		maxBytes: opts.MaxBytes,
		logger:   logger,
	}, nil
}

// Close releases the lookup cache.
func (g *GalleryService) Close() {
	if g != nil && g.cache != nil {
		g.cache.Close()
	}
}

// ListAll returns every memory newest first. Store failures degrade to an
// empty list.
func (g *GalleryService) ListAll(ctx context.Context) []api.Memory {
	out := []api.Memory{}
	memories, err := g.store.ListMemories(ctx)
	if err != nil {
		g.logger.Warn("list memories", "backend", g.store.Backend(), "error", err)
		return out
	}
	for _, memory := range memories {
		mapped, err := g.mapper.toAPI(memory)
		if err != nil {
			g.logger.Warn("skip unresolvable memory", "id", memory.ID, "blob_key", memory.BlobKey, "error", err)
			continue
		}
		out = append(out, mapped)
	}
	return out
}

// GetOne returns one memory. Unknown and malformed ids are NotFound; store
// failures are StorageError.
func (g *GalleryService) GetOne(ctx context.Context, rawID string) (api.Memory, error) {
	id, ok := parseMemoryID(rawID)
	if !ok {
		return api.Memory{}, memoryNotFound()
	}
	if cached, found := g.cache.Get(id); found {
		if memory, ok := cached.(api.Memory); ok {
			return memory, nil
		}
	}

	memory, err := g.store.GetMemory(ctx, id)
	if err != nil {
		return api.Memory{}, storeFailure(fmt.Errorf("get memory %d: %w", id, err))
	}
	if memory == nil {
		return api.Memory{}, memoryNotFound()
	}
	out, err := g.mapper.toAPI(*memory)
	if err != nil {
		return api.Memory{}, storeFailure(fmt.Errorf("resolve memory %d: %w", id, err))
	}
	if cost := cacheCost(out); cost <= g.maxBytes {
		g.cache.Set(id, out, cost)
	}
	return out, nil
}

// Adjacent returns the ids the player navigates to from rawID.
func (g *GalleryService) Adjacent(ctx context.Context, rawID string) (api.MemoryNeighbors, error) {
	current, err := g.GetOne(ctx, rawID)
	if err != nil {
		return api.MemoryNeighbors{}, err
	}
	newer, older, err := g.store.AdjacentMemories(ctx, current.ID)
	if err != nil {
		return api.MemoryNeighbors{}, storeFailure(fmt.Errorf("adjacent memories %d: %w", current.ID, err))
	}
	return api.MemoryNeighbors{ID: current.ID, Newer: newer, Older: older}, nil
}

// OpenMedia opens the payload stored under key.
func (g *GalleryService) OpenMedia(ctx context.Context, key string) (*MediaContent, error) {
	key = strings.TrimSpace(key)
	if !blobstore.ValidKey(key) {
		return nil, notFoundCode(fmt.Errorf("media not found"), ErrCodeMediaNotFound)
	}
	rc, err := g.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, notFoundCode(fmt.Errorf("media not found"), ErrCodeMediaNotFound)
		}
		return nil, storeFailure(fmt.Errorf("open media %s: %w", key, err))
	}
	return &MediaContent{Reader: rc, Name: key, MediaType: mediaTypeForKey(key)}, nil
}

// cacheCost approximates the bytes a cached record pins. Inline data URLs
// make AudioData dominate.
func cacheCost(m api.Memory) int64 {
	return int64(cacheEntryOverhead + len(m.AudioData) + len(m.FileName) +
		len(m.MediaType) + len(m.Memory) + len(m.RecipientName) + len(m.LabelColor))
}

func parseMemoryID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// mediaTypeForKey guesses the media type from the key extension. An empty
// result leaves detection to the response writer.
func mediaTypeForKey(key string) string {
	return models.MediaTypeForName(key)
}
