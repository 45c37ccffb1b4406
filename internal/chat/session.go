// Package chat ties the retriever, history store and assembler into a
// per-thread conversation session. The downstream generator stays external:
// a session produces the bounded prompt, it never calls a model.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lexrag/internal/assembler"
	"lexrag/internal/domain"
	"lexrag/internal/retriever"
)

// Session is the context-assembly policy for one conversation thread bound
// to one namespace.
type Session struct {
	retriever *retriever.Retriever
	history   domain.HistoryStore
	threadID  string
	namespace string
	topK      int
	recent    int
	maxChars  int
	logger    *zap.Logger
}

// Options configures a session. Zero values fall back to the engine defaults.
type Options struct {
	ThreadID  string
	Namespace string
	TopK      int
	Recent    int
	MaxChars  int
}

// NewSession creates a session; an empty thread ID gets a fresh UUID.
func NewSession(r *retriever.Retriever, history domain.HistoryStore, opts Options, logger *zap.Logger) *Session {
	if opts.ThreadID == "" {
		opts.ThreadID = uuid.NewString()
	}
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.TopK <= 0 {
		opts.TopK = retriever.DefaultTopK
	}
	if opts.Recent <= 0 {
		opts.Recent = 10
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = assembler.DefaultMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		retriever: r,
		history:   history,
		threadID:  opts.ThreadID,
		namespace: opts.Namespace,
		topK:      opts.TopK,
		recent:    opts.Recent,
		maxChars:  opts.MaxChars,
		logger:    logger,
	}
}

// ThreadID returns the session's conversation thread identifier.
func (s *Session) ThreadID() string { return s.threadID }

// Prompt handles one user message: search the namespace, fetch recent
// history, assemble the bounded prompt, and record the user turn. Retrieval
// failures degrade to an empty snippet set and never fail the turn.
func (s *Session) Prompt(ctx context.Context, message string) (string, []domain.SearchResult, error) {
	results := s.retriever.Search(ctx, s.namespace, message, s.topK)
	turns, err := s.history.Recent(ctx, s.threadID, s.recent)
	if err != nil {
		s.logger.Warn("history read failed, assembling without history",
			zap.String("thread_id", s.threadID), zap.Error(err))
		turns = nil
	}
	prompt := assembler.Assemble(results, turns, s.maxChars)
	if err := s.history.Append(ctx, s.threadID, domain.Turn{
		Role:      domain.RoleUser,
		Content:   message,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return prompt, results, err
	}
	return prompt, results, nil
}

// RecordAssistant appends the generator's reply to the thread history.
func (s *Session) RecordAssistant(ctx context.Context, content string) error {
	return s.history.Append(ctx, s.threadID, domain.Turn{
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
