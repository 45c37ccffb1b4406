package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lexrag/internal/domain"
)

// RedisStore keeps each thread's turns in a Redis list under
// chat:{thread_id}, turns serialized as JSON. RPUSH followed by LTRIM keeps
// only the newest cap entries, giving the same FIFO eviction as the memory
// store but shared across processes.
type RedisStore struct {
	client *redis.Client
	cap    int
}

// NewRedisStore creates a store retaining up to cap turns per thread.
func NewRedisStore(client *redis.Client, cap int) *RedisStore {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &RedisStore{client: client, cap: cap}
}

func threadKey(threadID string) string { return "chat:" + threadID }

// Append adds a turn to the thread log and trims it to capacity.
func (s *RedisStore) Append(ctx context.Context, threadID string, turn domain.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encoding turn: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, threadKey(threadID), payload)
	pipe.LTrim(ctx, threadKey(threadID), int64(-s.cap), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending turn to %q: %w", threadID, err)
	}
	return nil
}

// Recent returns up to limit turns ordered oldest to newest. Turns that no
// longer decode are skipped rather than failing the whole read.
func (s *RedisStore) Recent(ctx context.Context, threadID string, limit int) ([]domain.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, threadKey(threadID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history for %q: %w", threadID, err)
	}
	turns := make([]domain.Turn, 0, len(raw))
	for _, item := range raw {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
