package openai

import (
	"context"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"lexrag/internal/domain"
	"lexrag/internal/embedding"
)

// Embedder produces embeddings via the OpenAI embeddings API (or any
// API-compatible endpoint such as a local inference server).
type Embedder struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
	retry     embedding.RetryPolicy
	logger    *zap.Logger
}

// Config configures the OpenAI embedder. The API key is read from the
// environment variable named by APIKeyEnv, never stored in config files.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	BatchSize int
	Retry     embedding.RetryPolicy
}

// modelDimensions pins the output dimension per known model. The dimension
// is a property of the model configuration and must not drift between calls.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// New creates an embedder from the configuration.
func New(cfg Config, logger *zap.Logger) (*Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = embedding.DefaultRetryPolicy()
	}
	dim, ok := modelDimensions[cfg.Model]
	if !ok {
		dim = 1536
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dimension: dim,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
		logger:    logger,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "openai-" + e.model }

// Dimension returns the dimensionality of the produced vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedOne embeds a single query or chunk.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in batches of the configured size, preserving input
// order. Each batch is retried per the retry policy; a batch that fails after
// exhausting retries aborts the whole call with ErrEmbedding, and vectors
// from earlier batches are discarded.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		var resp openai.EmbeddingResponse
		err := e.retry.Do(ctx, func() error {
			var callErr error
			resp, callErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Model: openai.EmbeddingModel(e.model),
				Input: batch,
			})
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s batch [%d:%d]: %v", domain.ErrEmbedding, e.model, start, end, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmbedding, len(resp.Data), len(batch))
		}
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(batch) {
				return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrEmbedding, item.Index)
			}
			vec := make([]float32, len(item.Embedding))
			for i, v := range item.Embedding {
				vec[i] = float32(v)
			}
			if len(vec) != e.dimension {
				return nil, fmt.Errorf("%w: model %s returned dimension %d, expected %d",
					domain.ErrEmbedding, e.model, len(vec), e.dimension)
			}
			l2Normalize(vec)
			out[start+item.Index] = vec
		}
	}
	return out, nil
}

// l2Normalize scales v to unit length so dot products equal cosine similarity.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
