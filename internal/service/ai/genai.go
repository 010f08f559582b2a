package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
)

// GenAIProvider uses the unified google.golang.org/genai SDK and its Chats
// service.
type GenAIProvider struct {
	backend genai.Backend
}

// NewGenAIProvider targets the Gemini Developer API.
func NewGenAIProvider() *GenAIProvider {
	return &GenAIProvider{backend: genai.BackendGeminiAPI}
}

// Start creates a chat with the persona's system instruction and sampling
// parameters.
func (g *GenAIProvider) Start(ctx context.Context, credential string, p persona.Persona) (Conversation, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: g.backend,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	chat, err := client.Chats.Create(ctx, p.Model, generateConfig(p), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai chat: %w", err)
	}
	return &genaiConversation{chat: chat}, nil
}

func generateConfig(p persona.Persona) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.Instruction, genai.RoleUser),
		Temperature:       genai.Ptr(p.Generation.Temperature),
		TopP:              genai.Ptr(p.Generation.TopP),
		TopK:              genai.Ptr(float32(p.Generation.TopK)),
		MaxOutputTokens:   p.Generation.MaxOutputTokens,
	}
}

type genaiConversation struct {
	chat *genai.Chat
}

func (c *genaiConversation) Send(ctx context.Context, text string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("genai send: %w", err)
	}

	reply := resp.Text()
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// Close is a no-op; the genai client holds no releasable resources.
func (c *genaiConversation) Close() error {
	return nil
}
