package llm

import "context"

// Provider is a chat-completion backend. The script generator holds two of
// these (primary/secondary) and escalates between them; it never depends on
// which concrete implementation sits behind the interface.
type Provider interface {
	// Name identifies the provider in logs and in the health cache.
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
	Close() error
}
