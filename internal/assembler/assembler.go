// Package assembler builds the bounded context blob handed to the downstream
// language model: retrieved snippets first, then the trimmed conversation.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"lexrag/internal/domain"
)

// NoContextMarker is emitted instead of an empty context section so the
// downstream prompt template never contains a blank slot.
const NoContextMarker = "No specific context found in knowledge base. Using general knowledge."

// DefaultMaxChars bounds the assembled blob when no budget is configured.
const DefaultMaxChars = 4000

// Assemble merges retrieved snippets and conversation history into a single
// blob of at most maxChars characters.
//
// Snippets are concatenated in descending-score order, each prefixed with an
// ordinal "Chunk N:" label for traceability. History renders oldest to newest
// as "Role: content" lines. When the combined size exceeds the budget, whole
// turns are dropped from the oldest end of the history until it fits:
// retrieved facts are considered higher-value than earlier chat, so history
// is sacrificed before context, never the reverse.
func Assemble(snippets []domain.SearchResult, history []domain.Turn, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	contextBlock := renderSnippets(snippets)

	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(contextBlock)

	budget := maxChars - b.Len()
	historyBlock := renderHistory(history, budget)
	if historyBlock != "" {
		b.WriteString("\n\nConversation:\n")
		b.WriteString(historyBlock)
	}
	return b.String()
}

func renderSnippets(snippets []domain.SearchResult) string {
	if len(snippets) == 0 {
		return NoContextMarker
	}
	ordered := make([]domain.SearchResult, len(snippets))
	copy(ordered, snippets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	parts := make([]string, len(ordered))
	for i, s := range ordered {
		parts[i] = fmt.Sprintf("Chunk %d:\n%s", i+1, s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// renderHistory renders as many of the newest turns as fit within budget,
// keeping whole turns and chronological order. The "\n\nConversation:\n"
// header the caller prepends is part of the budget.
func renderHistory(history []domain.Turn, budget int) string {
	const headerLen = len("\n\nConversation:\n")
	budget -= headerLen
	if budget <= 0 || len(history) == 0 {
		return ""
	}
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = renderTurn(turn)
	}
	// Walk backwards from the newest line, admitting lines while they fit.
	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		cost := len(lines[i])
		if i < len(lines)-1 {
			cost++ // joining newline
		}
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}
	if start == len(lines) {
		return ""
	}
	return strings.Join(lines[start:], "\n")
}

func renderTurn(turn domain.Turn) string {
	role := "User"
	if turn.Role == domain.RoleAssistant {
		role = "Assistant"
	}
	return role + ": " + turn.Content
}
