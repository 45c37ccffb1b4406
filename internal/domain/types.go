package domain

import "time"

// Chunk is a bounded slice of source text, the unit of embedding and retrieval.
// Chunks are immutable once created; the ID is derived from the chunk content,
// so re-ingesting identical text produces identical IDs.
type Chunk struct {
	ID        string
	Namespace string
	Text      string
	Sequence  int
}

// SearchResult is a retrieved chunk with its cosine similarity to the query.
// Scores are similarities, not distances: higher means more similar.
type SearchResult struct {
	ChunkID string
	Text    string
	Score   float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single user or assistant message in a conversation thread.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
