package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
)

// GeminiProvider talks to the Gemini API through generative-ai-go chat
// sessions. One client is created per conversation.
type GeminiProvider struct {
	opts []option.ClientOption
}

// NewGeminiProvider creates a provider. Extra client options are appended
// after the API key (for example option.WithHTTPClient in tests).
func NewGeminiProvider(opts ...option.ClientOption) *GeminiProvider {
	return &GeminiProvider{opts: opts}
}

// Start opens a chat session with empty history.
func (g *GeminiProvider) Start(ctx context.Context, credential string, p persona.Persona) (Conversation, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(credential)}, g.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(p.Model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.Instruction)}}
	model.SetTemperature(p.Generation.Temperature)
	model.SetTopP(p.Generation.TopP)
	model.SetTopK(p.Generation.TopK)
	model.SetMaxOutputTokens(p.Generation.MaxOutputTokens)

	chat := model.StartChat()
	chat.History = []*genai.Content{}

	return &geminiConversation{client: client, chat: chat}, nil
}

type geminiConversation struct {
	client *genai.Client
	chat   *genai.ChatSession
}

func (c *geminiConversation) Send(ctx context.Context, text string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini send: %w", err)
	}

	reply := replyText(resp)
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func (c *geminiConversation) Close() error {
	return c.client.Close()
}

// replyText concatenates the text parts of the first candidate.
func replyText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return b.String()
}
