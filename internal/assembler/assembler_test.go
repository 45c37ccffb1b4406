package assembler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/assembler"
	"lexrag/internal/domain"
)

func TestAssembleNoSnippetsEmitsMarker(t *testing.T) {
	out := assembler.Assemble(nil, nil, 1000)
	assert.Contains(t, out, assembler.NoContextMarker)
	assert.NotContains(t, out, "Chunk 1:")
}

func TestAssembleLabelsSnippetsByDescendingScore(t *testing.T) {
	snippets := []domain.SearchResult{
		{ChunkID: "low", Text: "low relevance", Score: 0.2},
		{ChunkID: "high", Text: "high relevance", Score: 0.9},
		{ChunkID: "mid", Text: "mid relevance", Score: 0.5},
	}
	out := assembler.Assemble(snippets, nil, 4000)

	assert.Contains(t, out, "Chunk 1:\nhigh relevance")
	assert.Contains(t, out, "Chunk 2:\nmid relevance")
	assert.Contains(t, out, "Chunk 3:\nlow relevance")
}

func TestAssembleRendersHistoryOldestToNewest(t *testing.T) {
	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "what is the filing deadline?"},
		{Role: domain.RoleAssistant, Content: "thirty days after service"},
	}
	out := assembler.Assemble(nil, history, 4000)

	userIdx := strings.Index(out, "User: what is the filing deadline?")
	asstIdx := strings.Index(out, "Assistant: thirty days after service")
	require.GreaterOrEqual(t, userIdx, 0)
	require.GreaterOrEqual(t, asstIdx, 0)
	assert.Less(t, userIdx, asstIdx)
}

func TestAssembleTruncatesHistoryNeverSnippets(t *testing.T) {
	// Snippets total ~1800 chars, history ~500 chars, budget 2000:
	// all snippets must survive, history must give way.
	big := strings.Repeat("s", 880)
	snippets := []domain.SearchResult{
		{ChunkID: "a", Text: big, Score: 0.9},
		{ChunkID: "b", Text: big, Score: 0.8},
	}
	var history []domain.Turn
	for i := 0; i < 10; i++ {
		history = append(history, domain.Turn{Role: domain.RoleUser, Content: strings.Repeat("h", 43)})
	}

	out := assembler.Assemble(snippets, history, 2000)

	assert.Equal(t, 2, strings.Count(out, big), "every snippet retained in full")
	assert.LessOrEqual(t, len(out), 2000, "budget respected")
	assert.Less(t, strings.Count(out, "User: "), 10, "history truncated to fit")
}

func TestAssembleDropsOldestHistoryFirst(t *testing.T) {
	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "oldest message that should be dropped"},
		{Role: domain.RoleAssistant, Content: "middle"},
		{Role: domain.RoleUser, Content: "newest"},
	}
	// Budget large enough for the snippet section and the two short turns,
	// but not the long oldest one.
	out := assembler.Assemble(nil, history, len(assembler.NoContextMarker)+len("Context:\n")+60)

	assert.NotContains(t, out, "oldest message")
	assert.Contains(t, out, "Assistant: middle")
	assert.Contains(t, out, "User: newest")
}

func TestAssembleDefaultBudget(t *testing.T) {
	out := assembler.Assemble(nil, nil, 0)
	assert.Contains(t, out, assembler.NoContextMarker)
	assert.LessOrEqual(t, len(out), assembler.DefaultMaxChars)
}
