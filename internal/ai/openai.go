package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sundai/hackathon-api/internal/config"
)

// DefaultModel is used when openai.model is not configured
const DefaultModel = openai.GPT3Dot5Turbo

// OpenAIClient implements Completer against the OpenAI chat-completions API or any
// server that speaks the same protocol.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client from configuration
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// New returns the instrumented Completer for the configuration; a missing API key
// yields the Disabled completer.
func New(cfg config.OpenAIConfig) Completer {
	if cfg.APIKey == "" {
		return Instrument(Disabled{})
	}
	return Instrument(NewOpenAIClient(cfg))
}

// Complete sends a single-turn chat completion and returns the first choice's content
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", req.Purpose, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return trimCompletion(resp.Choices[0].Message.Content)
}
