package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mp3index/internal/models"
)

// MemStore is an ephemeral MemoryStore held in process memory. Records live
// in insertion order, so the slice index doubles as creation order.
type MemStore struct {
	mu       sync.RWMutex
	memories []models.Memory
	byID     map[int64]int
	nextID   int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{byID: map[int64]int{}, nextID: 1}
}

// InsertMemory appends a copy of m and assigns the next id.
func (s *MemStore) InsertMemory(ctx context.Context, m *models.Memory) (int64, error) {
	if m == nil {
		return 0, fmt.Errorf("memory is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateForInsert(m); err != nil {
		return 0, err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.memories {
		if existing.BlobKey == m.BlobKey {
			return 0, fmt.Errorf("blob_key already referenced: %s", m.BlobKey)
		}
	}
	m.ID = s.nextID
	s.nextID++
	s.byID[m.ID] = len(s.memories)
	s.memories = append(s.memories, *m)
	return m.ID, nil
}

// ListMemories returns copies of all memories, newest first.
func (s *MemStore) ListMemories(ctx context.Context) ([]models.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Memory, 0, len(s.memories))
	for i := len(s.memories) - 1; i >= 0; i-- {
		out = append(out, s.memories[i])
	}
	return out, nil
}

// GetMemory returns a copy of one memory, or nil if absent.
func (s *MemStore) GetMemory(ctx context.Context, id int64) (*models.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	m := s.memories[idx]
	return &m, nil
}

// AdjacentMemories returns the neighbouring ids in insertion order. Ids need
// not exist for the lookup to work, matching the SQLite behaviour.
func (s *MemStore) AdjacentMemories(ctx context.Context, id int64) (*int64, *int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newer, older *int64
	for i := range s.memories {
		candidate := s.memories[i].ID
		if candidate > id && (newer == nil || candidate < *newer) {
			v := candidate
			newer = &v
		}
		if candidate < id && (older == nil || candidate > *older) {
			v := candidate
			older = &v
		}
	}
	return newer, older, nil
}

// CountMemories returns the number of stored memories.
func (s *MemStore) CountMemories(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories), nil
}

// Backend implements MemoryStore.
func (s *MemStore) Backend() string {
	return "memory"
}
