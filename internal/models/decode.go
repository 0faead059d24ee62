package models

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeCropRequest reads a CropRequest from JSON, requiring all five fields.
func DecodeCropRequest(r io.Reader) (CropRequest, error) {
	var body cropRequestBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return CropRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	return body.complete()
}

// DecodeChatRequest reads a ChatRequest from JSON; the question is required.
func DecodeChatRequest(r io.Reader) (ChatRequest, error) {
	var body struct {
		Question      *string         `json:"question"`
		CropResult    json.RawMessage `json:"crop_result"`
		DiseaseResult json.RawMessage `json:"disease_result"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ChatRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	if body.Question == nil {
		return ChatRequest{}, fmt.Errorf("field required: question")
	}
	return ChatRequest{
		Question:      *body.Question,
		CropResult:    body.CropResult,
		DiseaseResult: body.DiseaseResult,
	}, nil
}
