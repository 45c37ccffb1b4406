package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the retrieval engine.
var (
	// ErrChunking indicates invalid chunking parameters. Caller bug, never retried.
	ErrChunking = errors.New("invalid chunking parameters")

	// ErrEmbedding indicates an embedding provider failure (network, rate
	// limit, malformed output). Retryable at the retriever boundary.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a namespace's stored dimension disagrees
	// with the requested one. Fatal; requires explicit namespace migration.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexUnavailable indicates the index backend is unreachable.
	// Propagated as-is; retry policy belongs to the host.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// IngestError reports a failed ingestion together with the number of chunks
// that were indexed before the failure. The index is left in whatever partial
// state the batch write produced; there is no transactional rollback.
type IngestError struct {
	Namespace string
	Indexed   int
	Err       error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest into %q failed after %d chunks: %v", e.Namespace, e.Indexed, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
