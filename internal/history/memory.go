package history

import (
	"context"
	"sync"

	"lexrag/internal/domain"
)

// DefaultCap bounds how many turns a thread retains. Oldest turns are
// evicted first (FIFO) because conversation order is semantically required.
const DefaultCap = 20

// MemoryStore is an in-memory bounded conversation log, one FIFO per thread.
type MemoryStore struct {
	mu      sync.RWMutex
	cap     int
	threads map[string][]domain.Turn
}

// NewMemoryStore creates a store retaining up to cap turns per thread.
func NewMemoryStore(cap int) *MemoryStore {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &MemoryStore{cap: cap, threads: make(map[string][]domain.Turn)}
}

// Append adds a turn to the thread, evicting the oldest turn at capacity.
func (s *MemoryStore) Append(_ context.Context, threadID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.threads[threadID], turn)
	if len(turns) > s.cap {
		turns = turns[len(turns)-s.cap:]
	}
	s.threads[threadID] = turns
	return nil
}

// Recent returns up to limit turns ordered oldest to newest.
func (s *MemoryStore) Recent(_ context.Context, threadID string, limit int) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.threads[threadID]
	if limit <= 0 || limit > len(turns) {
		limit = len(turns)
	}
	out := make([]domain.Turn, limit)
	copy(out, turns[len(turns)-limit:])
	return out, nil
}
