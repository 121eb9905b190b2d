package domain

import (
	"context"
	"time"
)

// HistoryStore handles persistent storage of conversations, their messages,
// and the audit trail produced by the safety pipeline.
type HistoryStore interface {
	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]Conversation, error)

	AddMessage(ctx context.Context, convID string, msg MessageRecord) error
	GetMessages(ctx context.Context, convID string, limit int) ([]MessageRecord, error)

	ListAuditRecords(ctx context.Context, limit int) ([]AuditRecord, error)

	AuditSink
	Close() error
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MessageRecord struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditRecord is the persisted form of a PipelineRecord.
type AuditRecord struct {
	ID         int64     `json:"id"`
	Command    string    `json:"command"`
	Position   int       `json:"position"`
	Tier       string    `json:"tier"`
	RuleID     string    `json:"rule_id"`
	Decision   string    `json:"decision"`
	Outcome    string    `json:"outcome,omitempty"`
	ExitCode   int       `json:"exit_code"`
	DurationMs int64     `json:"duration_ms"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
