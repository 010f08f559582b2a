package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/secret-keeper/backend/internal/config"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
)

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Conversation is a provider-side chat session. History lives behind it; the
// caller only sends text and receives text.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
	Close() error
}

// Provider opens conversations bound to a persona.
type Provider interface {
	Start(ctx context.Context, credential string, p persona.Persona) (Conversation, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, credential string, p persona.Persona) (Conversation, error)

// Start calls f.
func (f ProviderFunc) Start(ctx context.Context, credential string, p persona.Persona) (Conversation, error) {
	return f(ctx, credential, p)
}

// NewProvider returns the provider selected by configuration.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiProvider(), nil
	case config.ProviderGenAI:
		return NewGenAIProvider(), nil
	case config.ProviderArk:
		return NewArkProvider(cfg.ArkBaseURL, cfg.ArkRegion), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
