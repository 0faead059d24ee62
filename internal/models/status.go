package models

import (
	"encoding/json"
	"time"
)

// StatusResponse is the answer of GET /status.
type StatusResponse struct {
	Status         string           `json:"status"`
	Crop           ModelStatus      `json:"crop"`
	Disease        ModelStatus      `json:"disease"`
	Chat           ChatStatus       `json:"chat"`
	PredictionLog  LogStatus        `json:"prediction_log"`
	DiskUsageBytes int64            `json:"disk_usage_bytes"`
	Artifacts      []ArtifactStatus `json:"artifacts"`
}

// ModelStatus describes one loaded classifier.
type ModelStatus struct {
	ModelPath string `json:"model_path"`
	Classes   int    `json:"classes"`
}

// ChatStatus reports whether the completion API is in use.
type ChatStatus struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model,omitempty"`
}

// LogStatus reports the prediction log and its per-kind counts.
type LogStatus struct {
	Enabled bool  `json:"enabled"`
	Crop    int64 `json:"crop"`
	Disease int64 `json:"disease"`
}

// ArtifactStatus is the on-disk footprint of one configured file.
type ArtifactStatus struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes"`
	Missing bool   `json:"missing,omitempty"`
}

// PredictionRecord is one entry of GET /history.
type PredictionRecord struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryResponse is the answer of GET /history, newest first.
type HistoryResponse struct {
	Predictions []PredictionRecord `json:"predictions"`
}
