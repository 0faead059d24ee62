// Package chat answers agriculture questions through an OpenAI-compatible
// completion API, or with a fixed notice when no credential is configured.
package chat

import (
	"context"
	"net/http"

	"github.com/hyperjump/agrovision/internal/models"
	"go.uber.org/zap"
)

// NotConfiguredMessage is the answer given when no chat credential is set.
const NotConfiguredMessage = "Chatbot is not configured on the server (missing GROQ_API_KEY). Crop and disease predictions still work."

// Defaults for the Groq OpenAI-compatible endpoint.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.4
)

// Backend answers a chat request.
type Backend interface {
	Answer(ctx context.Context, req models.ChatRequest) (string, error)
	// Configured reports whether answers come from the completion API.
	Configured() bool
}

// Options configures the completion API client.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client // nil uses the library default
}

// NewBackend selects the backend once: a completion client when apiKey is
// set, otherwise the unconfigured fallback.
func NewBackend(apiKey string, opts Options, logger *zap.Logger) Backend {
	if apiKey == "" {
		if logger != nil {
			logger.Warn("chat credential missing; chat answers with the not-configured notice")
		}
		return Unconfigured{}
	}
	return NewCompletionBackend(apiKey, opts, logger)
}

// Unconfigured answers every request with NotConfiguredMessage and never
// touches the network.
type Unconfigured struct{}

// Answer returns NotConfiguredMessage.
func (Unconfigured) Answer(context.Context, models.ChatRequest) (string, error) {
	return NotConfiguredMessage, nil
}

// Configured returns false.
func (Unconfigured) Configured() bool { return false }
