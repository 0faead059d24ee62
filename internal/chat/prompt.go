package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hyperjump/agrovision/internal/models"
)

// SystemPrompt keeps the assistant on agriculture topics in plain language.
const SystemPrompt = `You are a professional agriculture expert and farmer assistant.
Answer only agriculture-related questions.
Use simple, farmer-friendly language.`

// UserPrompt embeds the question and any non-empty prior results.
func UserPrompt(req models.ChatRequest) string {
	var b strings.Builder
	b.WriteString("Farmer Question:\n")
	b.WriteString(req.Question)
	b.WriteString("\n\nContext:\n")
	b.WriteString(renderContext(req))
	return b.String()
}

func renderContext(req models.ChatRequest) string {
	var b strings.Builder
	if models.HasContext(req.CropResult) {
		b.WriteString("\nCrop Recommendation:\n")
		b.WriteString(compactJSON(req.CropResult))
	}
	if models.HasContext(req.DiseaseResult) {
		b.WriteString("\nDisease Detection:\n")
		b.WriteString(compactJSON(req.DiseaseResult))
	}
	return b.String()
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
