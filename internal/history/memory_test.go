package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/domain"
	"lexrag/internal/history"
)

func turn(role domain.Role, content string) domain.Turn {
	return domain.Turn{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

func TestMemoryStoreFIFOEviction(t *testing.T) {
	s := history.NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, "t1", turn(domain.RoleUser, fmt.Sprintf("msg %d", i))))
	}

	turns, err := s.Recent(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 3, "capacity bounds the log")
	assert.Equal(t, "msg 2", turns[0].Content, "oldest turns evicted first")
	assert.Equal(t, "msg 4", turns[2].Content)
}

func TestMemoryStoreRecentLimitAndOrder(t *testing.T) {
	s := history.NewMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "t1", turn(domain.RoleUser, "question")))
	require.NoError(t, s.Append(ctx, "t1", turn(domain.RoleAssistant, "answer")))
	require.NoError(t, s.Append(ctx, "t1", turn(domain.RoleUser, "follow-up")))

	turns, err := s.Recent(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "answer", turns[0].Content, "oldest to newest within the window")
	assert.Equal(t, "follow-up", turns[1].Content)
}

func TestMemoryStoreThreadsAreIndependent(t *testing.T) {
	s := history.NewMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "a", turn(domain.RoleUser, "in a")))
	require.NoError(t, s.Append(ctx, "b", turn(domain.RoleUser, "in b")))

	turns, err := s.Recent(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "in a", turns[0].Content)
}

func TestMemoryStoreUnknownThreadEmpty(t *testing.T) {
	s := history.NewMemoryStore(10)
	turns, err := s.Recent(context.Background(), "nope", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
