package store

import (
	"context"

	"mp3index/internal/models"
)

// MemoryStore abstracts memory metadata backends.
//
// Implementations never hold payload bytes, only the blob key.
type MemoryStore interface {
	// InsertMemory stores m atomically and sets m.ID.
	InsertMemory(ctx context.Context, m *models.Memory) (int64, error)
	// ListMemories returns every memory, newest first by insertion order.
	ListMemories(ctx context.Context) ([]models.Memory, error)
	// GetMemory returns nil, nil when no memory has the id.
	GetMemory(ctx context.Context, id int64) (*models.Memory, error)
	// AdjacentMemories returns the ids inserted right after (newer) and
	// right before (older) id; either may be nil.
	AdjacentMemories(ctx context.Context, id int64) (newer, older *int64, err error)
	CountMemories(ctx context.Context) (int, error)
	// Backend names the implementation for diagnostics.
	Backend() string
}

var (
	_ MemoryStore = (*Store)(nil)
	_ MemoryStore = (*MemStore)(nil)
)
