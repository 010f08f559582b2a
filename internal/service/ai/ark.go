package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
)

// ArkProvider runs the persona through an eino chain backed by a Volcengine
// Ark chat model. Ark has no server-side chat session, so history is kept in
// the conversation and replayed every turn. TopK is not supported by Ark and
// is ignored.
type ArkProvider struct {
	baseURL  string
	region   string
	newModel func(ctx context.Context, cfg *ark.ChatModelConfig) (model.ChatModel, error)
}

// NewArkProvider creates a provider for the given endpoint.
func NewArkProvider(baseURL, region string) *ArkProvider {
	return &ArkProvider{
		baseURL: baseURL,
		region:  region,
		newModel: func(ctx context.Context, cfg *ark.ChatModelConfig) (model.ChatModel, error) {
			return ark.NewChatModel(ctx, cfg)
		},
	}
}

// Start builds the chat model and compiles the chain.
func (a *ArkProvider) Start(ctx context.Context, credential string, p persona.Persona) (Conversation, error) {
	temperature := p.Generation.Temperature
	topP := p.Generation.TopP
	maxTokens := int(p.Generation.MaxOutputTokens)

	chatModel, err := a.newModel(ctx, &ark.ChatModelConfig{
		BaseURL:     a.baseURL,
		Region:      a.region,
		APIKey:      credential,
		Model:       p.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return newChainConversation(ctx, chatModel, p.Instruction)
}

// chainConversation holds client-side history for models without sessions.
type chainConversation struct {
	system  string
	chain   compose.Runnable[map[string]any, *schema.Message]
	history []*schema.Message
}

func newChainConversation(ctx context.Context, chatModel model.ChatModel, system string) (*chainConversation, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &chainConversation{system: system, chain: runnable}, nil
}

// Send runs one turn. History only grows when the model answers.
func (c *chainConversation) Send(ctx context.Context, text string) (string, error) {
	out, err := c.chain.Invoke(ctx, map[string]any{
		"system":  c.system,
		"history": append([]*schema.Message(nil), c.history...),
		"query":   text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyReply
	}

	c.history = append(c.history, schema.UserMessage(text), schema.AssistantMessage(out.Content, nil))
	return out.Content, nil
}

func (c *chainConversation) Close() error {
	c.history = nil
	return nil
}
