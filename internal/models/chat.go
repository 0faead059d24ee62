package models

import (
	"bytes"
	"encoding/json"
)

// ChatRequest is the body of POST /chat. The optional results are forwarded
// as context exactly as the client sent them.
type ChatRequest struct {
	Question      string          `json:"question"`
	CropResult    json.RawMessage `json:"crop_result,omitempty"`
	DiseaseResult json.RawMessage `json:"disease_result,omitempty"`
}

// ChatResponse is the answer of POST /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// Role is the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message of a transcript.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HasContext reports whether raw holds a non-empty JSON value. null, {}, []
// and "" count as empty.
func HasContext(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return false
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	}
	return true
}
