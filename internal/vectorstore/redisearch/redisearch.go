package redisearch

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lexrag/internal/domain"
)

// Store is a RediSearch-backed vector index. Each namespace maps to its own
// FT index named rag:{namespace} over hash keys rag:{namespace}:{chunk_id},
// with a FLAT FLOAT32 COSINE vector field. Indexes are created lazily by
// Ensure; the namespace dimension is pinned in a metadata hash stored outside
// the index prefix so conflicting Ensure calls can be rejected.
//
// Writes rely on Redis' atomic per-key HSET, so concurrent upserts to one
// namespace cannot corrupt the index. A query racing an in-flight upsert may
// or may not see the new chunk; reads are eventually consistent with writes.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

const (
	indexPrefix = "rag:"
	metaPrefix  = "ragmeta:"

	contentField   = "content"
	sequenceField  = "sequence"
	embeddingField = "embedding"
	scoreAlias     = "score"
)

// New creates a store on top of an existing Redis client. The client's
// lifecycle is owned by the caller.
func New(client *redis.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}
}

func indexName(namespace string) string { return indexPrefix + namespace }
func keyFor(namespace, chunkID string) string {
	return indexPrefix + namespace + ":" + chunkID
}
func metaKey(namespace string) string { return metaPrefix + namespace }

// Ensure creates the FT index for namespace if absent and pins its dimension.
// A namespace already pinned to a different dimension is ErrDimensionMismatch.
func (s *Store) Ensure(ctx context.Context, namespace string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrDimensionMismatch, dimension)
	}
	stored, err := s.client.HGet(ctx, metaKey(namespace), "dimension").Result()
	switch {
	case err == redis.Nil:
		// First ingest for this namespace.
	case err != nil:
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	default:
		have, convErr := strconv.Atoi(stored)
		if convErr != nil {
			return fmt.Errorf("%w: corrupt dimension metadata for %q: %q", domain.ErrIndexUnavailable, namespace, stored)
		}
		if have != dimension {
			return fmt.Errorf("%w: namespace %q has dimension %d, requested %d",
				domain.ErrDimensionMismatch, namespace, have, dimension)
		}
	}

	if _, err := s.client.FTInfo(ctx, indexName(namespace)).Result(); err == nil {
		if stored == "" {
			return s.pinDimension(ctx, namespace, dimension)
		}
		return nil
	} else if !isUnknownIndex(err) {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	s.logger.Info("creating vector index",
		zap.String("namespace", namespace), zap.Int("dimension", dimension))
	err = s.client.FTCreate(ctx, indexName(namespace),
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{indexPrefix + namespace + ":"},
		},
		&redis.FieldSchema{FieldName: contentField, FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: sequenceField, FieldType: redis.SearchFieldTypeNumeric},
		&redis.FieldSchema{
			FieldName: embeddingField,
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            dimension,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Err()
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "index already exists") {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return s.pinDimension(ctx, namespace, dimension)
}

func (s *Store) pinDimension(ctx context.Context, namespace string, dimension int) error {
	if err := s.client.HSet(ctx, metaKey(namespace), "dimension", dimension).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Upsert writes or overwrites one chunk/vector pair. HSET on an existing key
// overwrites, so re-ingesting identical content never duplicates entries.
func (s *Store) Upsert(ctx context.Context, namespace string, chunk domain.Chunk, vector []float32) error {
	err := s.client.HSet(ctx, keyFor(namespace, chunk.ID), map[string]interface{}{
		contentField:   chunk.Text,
		sequenceField:  chunk.Sequence,
		embeddingField: vectorBytes(vector),
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// UpsertMany writes pairs in order, stopping at the first failure. The
// returned count is the number of pairs that landed; there is no rollback.
func (s *Store) UpsertMany(ctx context.Context, namespace string, chunks []domain.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	for i := range chunks {
		if err := s.Upsert(ctx, namespace, chunks[i], vectors[i]); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// Query runs a KNN search against the namespace index. RediSearch reports
// cosine distance; scores are converted to similarity (1 - distance) so
// callers always see higher-is-better. An absent index yields an empty
// result, not an error. Non-positive topK yields an empty result.
func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", topK, embeddingField, scoreAlias)
	res, err := s.client.FTSearchWithArgs(ctx, indexName(namespace), query, &redis.FTSearchOptions{
		Params:         map[string]interface{}{"vec": string(vectorBytes(vector))},
		SortBy:         []redis.FTSearchSortBy{{FieldName: scoreAlias, Asc: true}},
		Limit:          topK,
		DialectVersion: 2,
	}).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	results := make([]domain.SearchResult, 0, len(res.Docs))
	for _, doc := range res.Docs {
		distance, _ := strconv.ParseFloat(doc.Fields[scoreAlias], 64)
		results = append(results, domain.SearchResult{
			ChunkID: strings.TrimPrefix(doc.ID, indexPrefix+namespace+":"),
			Text:    doc.Fields[contentField],
			Score:   1 - distance,
		})
	}
	return results, nil
}

// DeleteNamespace drops the namespace index together with its documents and
// metadata. Deleting an absent namespace is a no-op.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	err := s.client.FTDropIndexWithArgs(ctx, indexName(namespace),
		&redis.FTDropIndexOptions{DeleteDocs: true}).Err()
	if err != nil && !isUnknownIndex(err) {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if err := s.client.Del(ctx, metaKey(namespace)).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// vectorBytes serializes a vector as a little-endian FLOAT32 buffer, the
// layout RediSearch expects for vector fields.
func vectorBytes(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// isUnknownIndex reports whether err is RediSearch's missing-index error.
// The exact wording differs across server versions.
func isUnknownIndex(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}
