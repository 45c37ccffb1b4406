package retriever_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/domain"
	"lexrag/internal/retriever"
	"lexrag/internal/vectorstore/memory"
)

// vocabEmbedder is a deterministic stub: one vector dimension per known
// word, counting occurrences, L2-normalized. Unknown words are ignored.
type vocabEmbedder struct {
	vocab map[string]int
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}
	return &vocabEmbedder{vocab: vocab}
}

func (e *vocabEmbedder) Name() string   { return "vocab" }
func (e *vocabEmbedder) Dimension() int { return len(e.vocab) }

func (e *vocabEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.vocab))
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(raw, ".,!?")
		if idx, ok := e.vocab[word]; ok {
			vec[idx]++
		}
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		inv := float32(1 / math.Sqrt(sum))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (e *vocabEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// failingEmbedder always errors, for exercising the degraded-search path.
type failingEmbedder struct{}

func (failingEmbedder) Name() string   { return "failing" }
func (failingEmbedder) Dimension() int { return 4 }
func (failingEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbedding
}
func (failingEmbedder) EmbedMany(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbedding
}

// flakyIndex wraps the memory store and fails UpsertMany after admitting
// a fixed number of items.
type flakyIndex struct {
	*memory.Store
	admit int
}

func (f *flakyIndex) UpsertMany(ctx context.Context, namespace string, chunks []domain.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) > f.admit {
		n, _ := f.Store.UpsertMany(ctx, namespace, chunks[:f.admit], vectors[:f.admit])
		return n, domain.ErrIndexUnavailable
	}
	return f.Store.UpsertMany(ctx, namespace, chunks, vectors)
}

const sampleText = "The cat sat on the mat. The dog ran in the park."

func newTestRetriever(t *testing.T, index domain.VectorIndex, chunkSize int) *retriever.Retriever {
	t.Helper()
	emb := newVocabEmbedder("cat", "sat", "mat", "dog", "ran", "park", "the")
	r, err := retriever.New(emb, index, chunkSize, 0, nil)
	require.NoError(t, err)
	return r
}

func TestIngestAndSearchEndToEnd(t *testing.T) {
	store := memory.New(nil)
	r := newTestRetriever(t, store, 6)
	ctx := context.Background()

	// Six-word windows split the sample into one chunk per sentence.
	count, err := r.Ingest(ctx, "t1", sampleText)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	results := r.Search(ctx, "t1", "Where did the cat sit?", 1)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "cat sat on the mat")
}

func TestIngestEmptyText(t *testing.T) {
	r := newTestRetriever(t, memory.New(nil), 6)
	count, err := r.Ingest(context.Background(), "t1", "   ")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIdempotentReingest(t *testing.T) {
	store := memory.New(nil)
	r := newTestRetriever(t, store, 6)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		count, err := r.Ingest(ctx, "t1", sampleText)
		require.NoError(t, err)
		require.Equal(t, 2, count)
	}
	assert.Equal(t, 2, store.Count("t1"), "re-ingesting the same document overwrites, never duplicates")
}

func TestNamespaceIsolationThroughRetriever(t *testing.T) {
	store := memory.New(nil)
	r := newTestRetriever(t, store, 6)
	ctx := context.Background()

	_, err := r.Ingest(ctx, "a", "The cat sat on the mat.")
	require.NoError(t, err)

	results := r.Search(ctx, "b", "cat", 5)
	assert.Empty(t, results, "ingest into a must not leak into b")
}

func TestSearchAbsentNamespaceReturnsEmpty(t *testing.T) {
	r := newTestRetriever(t, memory.New(nil), 6)
	results := r.Search(context.Background(), "missing", "anything", 3)
	assert.Empty(t, results)
}

func TestSearchDegradesOnEmbeddingFailure(t *testing.T) {
	r, err := retriever.New(failingEmbedder{}, memory.New(nil), 6, 0, nil)
	require.NoError(t, err)

	results := r.Search(context.Background(), "t1", "query", 3)
	assert.Empty(t, results, "search failures degrade to no context, never an error")
}

func TestIngestEmbeddingFailure(t *testing.T) {
	r, err := retriever.New(failingEmbedder{}, memory.New(nil), 6, 0, nil)
	require.NoError(t, err)

	count, err := r.Ingest(context.Background(), "t1", sampleText)
	assert.Zero(t, count)
	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Zero(t, ingestErr.Indexed)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestIngestPartialFailureReportsCount(t *testing.T) {
	index := &flakyIndex{Store: memory.New(nil), admit: 1}
	r := newTestRetriever(t, index, 6)

	count, err := r.Ingest(context.Background(), "t1", sampleText)
	assert.Equal(t, 1, count, "chunks written before the failure are reported")
	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, 1, ingestErr.Indexed)
	assert.Equal(t, "t1", ingestErr.Namespace)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestNewRejectsInvalidChunking(t *testing.T) {
	_, err := retriever.New(newVocabEmbedder("a"), memory.New(nil), 4, 4, nil)
	require.ErrorIs(t, err, domain.ErrChunking)
}
