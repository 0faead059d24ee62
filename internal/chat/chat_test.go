package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/agrovision/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failTransport struct{ t *testing.T }

func (f failTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected network call to %s", r.URL)
	return nil, errors.New("network disabled")
}

func TestNewBackend_Unconfigured(t *testing.T) {
	b := NewBackend("", Options{HTTPClient: &http.Client{Transport: failTransport{t}}}, zap.NewNop())
	assert.False(t, b.Configured())

	for _, q := range []string{"", "How do I treat leaf rust?"} {
		answer, err := b.Answer(context.Background(), models.ChatRequest{Question: q})
		require.NoError(t, err)
		assert.Equal(t, NotConfiguredMessage, answer)
	}
}

func TestCompletionBackend_Answer(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llama-3.1-8b-instant",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Spray neem oil weekly.\n"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	b := NewBackend("secret", Options{BaseURL: srv.URL}, zap.NewNop())
	require.True(t, b.Configured())

	answer, err := b.Answer(context.Background(), models.ChatRequest{
		Question:      "How do I treat early blight?",
		DiseaseResult: json.RawMessage(`{"disease": "Tomato   Early blight", "confidence": 91.5}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "  Spray neem oil weekly.\n", answer, "answer must be returned verbatim")

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.4, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "How do I treat early blight?")
	assert.Contains(t, got.Messages[1].Content, `Disease Detection:`+"\n"+`{"disease":"Tomato   Early blight","confidence":91.5}`)
	assert.NotContains(t, got.Messages[1].Content, "Crop Recommendation")
}

func TestCompletionBackend_APIErrorIsReturned(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	b := NewCompletionBackend("secret", Options{BaseURL: srv.URL, Model: "custom-model", Temperature: 0.9}, nil)
	assert.Equal(t, "custom-model", b.Model())
	_, err := b.Answer(context.Background(), models.ChatRequest{Question: "hi"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "no retries")
}

func TestCompletionBackend_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer srv.Close()

	b := NewCompletionBackend("secret", Options{BaseURL: srv.URL}, nil)
	_, err := b.Answer(context.Background(), models.ChatRequest{Question: "hi"})
	require.Error(t, err)
}

func TestUserPrompt(t *testing.T) {
	p := UserPrompt(models.ChatRequest{Question: "Which fertilizer?"})
	assert.Equal(t, "Farmer Question:\nWhich fertilizer?\n\nContext:\n", p)

	p = UserPrompt(models.ChatRequest{
		Question:      "q",
		CropResult:    json.RawMessage(`{"recommendations": [{"crop": "rice", "confidence": 80.1}]}`),
		DiseaseResult: json.RawMessage(`null`),
	})
	assert.True(t, strings.HasSuffix(p, "\nCrop Recommendation:\n"+`{"recommendations":[{"crop":"rice","confidence":80.1}]}`))
	assert.NotContains(t, p, "Disease Detection")

	p = UserPrompt(models.ChatRequest{Question: "q", CropResult: json.RawMessage(`{}`)})
	assert.NotContains(t, p, "Crop Recommendation", "empty object is no context")
}
