// Package storage defines the persistence interface for the prediction log.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Kind identifies which service produced a prediction.
type Kind string

const (
	KindCrop    Kind = "crop"
	KindDisease Kind = "disease"
)

// Prediction is one served prediction.
type Prediction struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"created_at"`
}

// PredictionLog records served predictions. Chat transcripts are never stored.
type PredictionLog interface {
	Record(ctx context.Context, p *Prediction) error
	Recent(ctx context.Context, kind Kind, limit int) ([]*Prediction, error)
	Count(ctx context.Context, kind Kind) (int64, error)
	Close() error
}
