package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"lexrag/internal/domain"
)

// Store is an in-memory vector index using brute-force cosine similarity,
// partitioned by namespace. It is the reference implementation of the
// VectorIndex contract and the backend used in tests.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceIndex
	logger     *zap.Logger
}

// namespaceIndex keeps chunks and vectors in parallel slices in insertion
// order; byID maps chunk IDs to slice positions so upserts overwrite in
// place without disturbing that order.
type namespaceIndex struct {
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float32
	byID      map[string]int
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{namespaces: make(map[string]*namespaceIndex), logger: logger}
}

// Ensure creates the namespace if absent. A namespace that already exists
// with a different dimension is ErrDimensionMismatch.
func (s *Store) Ensure(_ context.Context, namespace string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrDimensionMismatch, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		s.namespaces[namespace] = &namespaceIndex{dimension: dimension, byID: make(map[string]int)}
		s.logger.Debug("created namespace", zap.String("namespace", namespace), zap.Int("dimension", dimension))
		return nil
	}
	if ns.dimension != dimension {
		return fmt.Errorf("%w: namespace %q has dimension %d, requested %d",
			domain.ErrDimensionMismatch, namespace, ns.dimension, dimension)
	}
	return nil
}

// Upsert writes or overwrites one chunk/vector pair. An absent namespace is
// created implicitly with the vector's dimension.
func (s *Store) Upsert(ctx context.Context, namespace string, chunk domain.Chunk, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(namespace, chunk, vector)
}

// UpsertMany validates the whole batch against the namespace dimension before
// writing anything, so a batch either lands completely or not at all.
func (s *Store) UpsertMany(_ context.Context, namespace string, chunks []domain.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.namespaces[namespace]; ok {
		for _, v := range vectors {
			if len(v) != ns.dimension {
				return 0, fmt.Errorf("%w: namespace %q expects dimension %d, got %d",
					domain.ErrDimensionMismatch, namespace, ns.dimension, len(v))
			}
		}
	}
	for i := range chunks {
		if err := s.upsertLocked(namespace, chunks[i], vectors[i]); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

func (s *Store) upsertLocked(namespace string, chunk domain.Chunk, vector []float32) error {
	ns, ok := s.namespaces[namespace]
	if !ok {
		if len(vector) == 0 {
			return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
		}
		ns = &namespaceIndex{dimension: len(vector), byID: make(map[string]int)}
		s.namespaces[namespace] = ns
	}
	if len(vector) != ns.dimension {
		return fmt.Errorf("%w: namespace %q expects dimension %d, got %d",
			domain.ErrDimensionMismatch, namespace, ns.dimension, len(vector))
	}
	if pos, exists := ns.byID[chunk.ID]; exists {
		ns.chunks[pos] = chunk
		ns.vectors[pos] = vector
		return nil
	}
	ns.byID[chunk.ID] = len(ns.chunks)
	ns.chunks = append(ns.chunks, chunk)
	ns.vectors = append(ns.vectors, vector)
	return nil
}

// Query scans the namespace and returns up to topK results by descending cosine
// similarity, ties broken by insertion order. An absent or empty namespace
// yields an empty result. Non-positive topK yields an empty result.
func (s *Store) Query(_ context.Context, namespace string, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[namespace]
	if !ok || len(ns.chunks) == 0 {
		return nil, nil
	}
	idxs := make([]int, len(ns.vectors))
	scores := make([]float64, len(ns.vectors))
	for i := range ns.vectors {
		idxs[i] = i
		scores[i] = cosine(ns.vectors[i], vector)
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, i := range idxs[:topK] {
		results = append(results, domain.SearchResult{
			ChunkID: ns.chunks[i].ID,
			Text:    ns.chunks[i].Text,
			Score:   scores[i],
		})
	}
	return results, nil
}

// DeleteNamespace removes all data for a namespace. Deleting an absent
// namespace is a no-op.
func (s *Store) DeleteNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Count returns the number of chunks stored in a namespace.
func (s *Store) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.namespaces[namespace]; ok {
		return len(ns.chunks)
	}
	return 0
}

// cosine computes cosine similarity between two vectors of equal dimension.
// Identical non-zero vectors score 1.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
