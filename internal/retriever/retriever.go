package retriever

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"lexrag/internal/chunker"
	"lexrag/internal/domain"
)

// Default ingestion and search parameters.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 0
	DefaultTopK      = 3
)

// Retriever glues the chunker, embedder and vector index: chunk → embed →
// ensure → upsert on ingest, embed → query on search.
type Retriever struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	index    domain.VectorIndex
	logger   *zap.Logger
}

// New builds a retriever. A nil chunker gets the default word chunker;
// chunking parameters are validated here so ingest never fails on them.
func New(embedder domain.Embedder, index domain.VectorIndex, chunkSize, overlap int, logger *zap.Logger) (*Retriever, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	ch, err := chunker.NewWordChunker(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{chunker: ch, embedder: embedder, index: index, logger: logger}, nil
}

// Ingest chunks text, embeds the chunks and writes them into the namespace,
// creating the namespace on first use. It returns the number of chunks
// indexed. On failure the count reports how many chunks landed before it;
// the index keeps that partial state, there is no rollback.
//
// Chunk IDs are derived from namespace, sequence and content, so re-ingesting
// an identical document overwrites the same entries instead of duplicating
// them. A changed document may leave stale chunks beyond its new length
// behind; cleaning those up is a maintenance concern, not handled here.
func (r *Retriever) Ingest(ctx context.Context, namespace, text string) (int, error) {
	pieces, err := r.chunker.Chunk(text)
	if err != nil {
		return 0, err
	}
	if len(pieces) == 0 {
		return 0, nil
	}
	vectors, err := r.embedder.EmbedMany(ctx, pieces)
	if err != nil {
		return 0, &domain.IngestError{Namespace: namespace, Indexed: 0, Err: err}
	}
	if err := r.index.Ensure(ctx, namespace, len(vectors[0])); err != nil {
		return 0, &domain.IngestError{Namespace: namespace, Indexed: 0, Err: err}
	}
	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:        chunkID(namespace, i, piece),
			Namespace: namespace,
			Text:      piece,
			Sequence:  i,
		}
	}
	written, err := r.index.UpsertMany(ctx, namespace, chunks, vectors)
	if err != nil {
		return written, &domain.IngestError{Namespace: namespace, Indexed: written, Err: err}
	}
	r.logger.Info("ingested chunks",
		zap.String("namespace", namespace), zap.Int("chunks", written))
	return written, nil
}

// Search embeds the query and runs a similarity search in the namespace.
// It degrades gracefully: any failure, an absent namespace or an empty one
// all yield an empty result, logged internally and never surfaced, since
// "no relevant context" and "no index yet" are equivalent for the consumer.
func (r *Retriever) Search(ctx context.Context, namespace, query string, topK int) []domain.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, searching without context",
			zap.String("namespace", namespace), zap.Error(err))
		return nil
	}
	results, err := r.index.Query(ctx, namespace, vector, topK)
	if err != nil {
		r.logger.Warn("vector search failed, continuing without context",
			zap.String("namespace", namespace), zap.Error(err))
		return nil
	}
	return results
}

// chunkID derives a stable chunk identifier from namespace, sequence and
// content. Identical input text always produces identical IDs.
func chunkID(namespace string, sequence int, text string) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s:%d:%s", namespace, sequence, text)))
	return hex.EncodeToString(h[:8])
}
