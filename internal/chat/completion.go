package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CompletionBackend forwards questions to an OpenAI-compatible chat
// completion API. Each request is attempted once.
type CompletionBackend struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewCompletionBackend creates a backend authenticated with apiKey.
// Zero option fields fall back to the Groq defaults.
func NewCompletionBackend(apiKey string, opts Options, logger *zap.Logger) *CompletionBackend {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &CompletionBackend{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		logger:      utils.Component(logger, "chat"),
	}
}

// Answer sends the system instruction and the question with its context, and
// returns the first completion's text verbatim.
func (b *CompletionBackend) Answer(ctx context.Context, req models.ChatRequest) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(req)},
		},
		Temperature: b.temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			b.logger.Error("chat completion rejected",
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.String("message", apiErr.Message))
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	b.logger.Debug("chat answered",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

// Configured returns true.
func (b *CompletionBackend) Configured() bool { return true }

// Model returns the model identifier sent with each request.
func (b *CompletionBackend) Model() string { return b.model }
