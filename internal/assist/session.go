package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"itassist/internal/domain"
)

// systemPrompt instructs the model to keep runnable commands in fenced
// blocks so the extractor can find them.
const systemPrompt = `You are an expert IT professional assistant. Your role is to help users with technical requests while maintaining the highest standards of professionalism, security, and problem-solving expertise.

When providing solutions:
1. Analyze the request carefully and determine if it's actionable
2. Ask for specific information if needed
3. Provide step-by-step solutions with clear explanations
4. For executable commands, wrap them in ` + "```bash or ```shell" + ` code blocks
5. Explain what each command does and why it's needed
6. Mention any risks or side effects
7. Provide verification steps after execution

Always prioritize system stability and security. Be thorough, professional, and educational in your responses.`

// Session holds one conversation's rolling history. History is capped;
// the oldest turns fall off first. When a store is present every turn is
// also persisted.
type Session struct {
	id      string
	history []domain.Message
	limit   int
	store   domain.HistoryStore
	logger  *slog.Logger
}

func NewSession(ctx context.Context, id string, limit int, model string, store domain.HistoryStore, logger *slog.Logger) *Session {
	if limit <= 0 {
		limit = 50
	}
	s := &Session{
		id:     id,
		limit:  limit,
		store:  store,
		logger: logger,
	}
	if store != nil {
		if err := store.CreateConversation(ctx, domain.Conversation{ID: id, Model: model}); err != nil {
			logger.Warn("could not persist conversation", "id", id, "error", err)
		}
	}
	return s
}

// Add appends one turn, trimming the oldest turns past the cap.
func (s *Session) Add(ctx context.Context, role, content string) {
	s.history = append(s.history, domain.Message{Role: role, Content: content})
	if len(s.history) > s.limit {
		s.history = s.history[len(s.history)-s.limit:]
	}

	if s.store != nil {
		err := s.store.AddMessage(ctx, s.id, domain.MessageRecord{Role: role, Content: content})
		if err != nil {
			s.logger.Warn("could not persist message", "conversation", s.id, "error", err)
		}
	}
}

// ChatMessages returns the system prompt followed by the retained history.
func (s *Session) ChatMessages() []domain.Message {
	msgs := make([]domain.Message, 0, len(s.history)+1)
	msgs = append(msgs, domain.Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, s.history...)
	return msgs
}

func (s *Session) Len() int { return len(s.history) }

// Export writes the history as indented JSON. An empty filename picks a
// timestamped default in the working directory.
func (s *Session) Export(filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("conversation_%s.json", time.Now().Format("20060102_150405"))
	}

	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("write history: %w", err)
	}
	return filename, nil
}
