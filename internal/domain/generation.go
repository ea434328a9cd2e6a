package domain

import "context"

// Message roles for chat completion.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat turn sent to the generation provider.
type Message struct {
	Role    string
	Content string
}

// Completer is the text generation contract.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
