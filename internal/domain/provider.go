package domain

import "context"

// Provider is the interface the conversation layer uses to talk to a
// language-model backend. The pipeline never sees it; it receives only
// the opaque response text.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
	Models(ctx context.Context) ([]string, error)
	Healthy(ctx context.Context) error
}

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}
