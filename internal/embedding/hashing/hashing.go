package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Embedder is a deterministic feature-hashing bag-of-words vectorizer.
// Each token is hashed into one of a fixed number of buckets with a hashed
// sign, and the resulting vector is L2-normalized. It needs no network and
// no corpus preparation, which makes it the offline fallback and the test
// stub: identical text always maps to the identical vector.
type Embedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// DefaultDimension is used when no dimension is configured.
const DefaultDimension = 256

// New creates a hashing embedder with the given vector dimension.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing-" + strconv.Itoa(e.dimension) }

// Dimension returns the dimensionality of the produced vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedOne computes the feature-hashed embedding of text. A text with no
// tokens yields the zero vector.
func (e *Embedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		// Use a bit outside the bucket range for the sign so the two are
		// not correlated.
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	l2Normalize(vec)
	return vec, nil
}

// EmbedMany embeds each text in order, checking for cancellation between items.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.EmbedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

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
