package domain

import "context"

// Embedder converts free text into a fixed-dimension vector representation.
// Output dimension is constant for a given configuration.
type Embedder interface {
	Name() string
	Dimension() int
	// EmbedOne embeds a single query or chunk.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// EmbedMany embeds texts in internal batches, preserving input order:
	// result[i] is the embedding of texts[i].
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits raw text into bounded-size pieces suitable for embedding.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// VectorIndex is a namespace-scoped persistent store of chunk/vector pairs
// with approximate nearest-neighbor search.
//
// Namespaces are created lazily by Ensure and are fully independent: queries
// never cross them. Every vector within a namespace has the dimension fixed
// at Ensure time; a conflicting dimension is ErrDimensionMismatch.
type VectorIndex interface {
	// Ensure creates the index structures for namespace if absent. Idempotent.
	Ensure(ctx context.Context, namespace string, dimension int) error

	// Upsert writes or overwrites one chunk/vector pair.
	Upsert(ctx context.Context, namespace string, chunk Chunk, vector []float32) error

	// UpsertMany writes a batch in chunk order and returns how many pairs were
	// written. Backends are best-effort: on the first failing item the write
	// stops and the count reflects what landed before it. The memory backend
	// validates the whole batch up front and is effectively all-or-nothing.
	UpsertMany(ctx context.Context, namespace string, chunks []Chunk, vectors [][]float32) (int, error)

	// Query returns up to topK results ordered by descending similarity, ties
	// broken by insertion order. An absent or empty namespace yields an empty
	// slice, not an error.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]SearchResult, error)

	// DeleteNamespace removes all chunks and vectors for a namespace.
	// Maintenance operation, not part of the hot path.
	DeleteNamespace(ctx context.Context, namespace string) error
}

// HistoryStore is an append-only, recency-bounded conversation log per thread.
// Eviction is FIFO: once the cap is reached the oldest turn is dropped.
type HistoryStore interface {
	Append(ctx context.Context, threadID string, turn Turn) error
	// Recent returns up to limit turns ordered oldest to newest.
	Recent(ctx context.Context, threadID string, limit int) ([]Turn, error)
}
