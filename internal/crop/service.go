// Package crop recommends crops from five categorical field descriptions.
package crop

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/agrovision/internal/inference"
	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/pkg/utils"
	"go.uber.org/zap"
)

// TopN is the number of recommendations returned.
const TopN = 3

// InvalidInputMessage is reported to clients when a field does not resolve.
const InvalidInputMessage = "Invalid input value provided"

// ErrInvalidInput is returned when any request field matches no canonical category.
var ErrInvalidInput = errors.New("invalid input value provided")

// Service turns categorical field descriptions into ranked crop recommendations.
// It is safe for concurrent use; labels and classifier are read-only after construction.
type Service struct {
	classifier inference.Classifier
	labels     []string
	cache      *probabilityCache
	logger     *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug output (resolved inputs, cache hits).
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = utils.Component(l, "crop") }
}

// WithCacheSize memoizes up to n probability vectors; n <= 0 disables caching.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) { s.cache = newProbabilityCache(n) }
}

// NewService creates a service over classifier whose output column i is labels[i].
func NewService(classifier inference.Classifier, labels []string, opts ...ServiceOption) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("crop classifier is required")
	}
	if len(labels) == 0 {
		return nil, errors.New("crop labels are required")
	}
	if n := classifier.InputSize(); n > 0 && n != len(FeatureColumns) {
		return nil, fmt.Errorf("%w: crop model takes %d features, want %d", inference.ErrShapeMismatch, n, len(FeatureColumns))
	}
	if n := classifier.OutputSize(); n > 0 && n != len(labels) {
		return nil, fmt.Errorf("%w: crop model has %d classes but %d labels", inference.ErrShapeMismatch, n, len(labels))
	}
	s := &Service{
		classifier: classifier,
		labels:     append([]string(nil), labels...),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Labels returns the crop classes in model column order.
func (s *Service) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Recommend resolves req, runs the classifier and returns the TopN crops.
// ErrInvalidInput is returned without invoking the model.
func (s *Service) Recommend(ctx context.Context, req models.CropRequest) (*models.CropResponse, error) {
	resolved, err := Resolve(req)
	if err != nil {
		s.logger.Debug("crop input rejected", zap.Any("request", req))
		return nil, err
	}
	features, err := resolved.Features()
	if err != nil {
		return nil, err
	}
	probs, err := s.probabilities(ctx, features)
	if err != nil {
		return nil, err
	}

	top := TopK(probs, TopN)
	recs := make([]models.CropRecommendation, 0, len(top))
	for _, i := range top {
		recs = append(recs, models.CropRecommendation{
			Crop:       s.labels[i],
			Confidence: Confidence(float64(probs[i])),
		})
	}
	s.logger.Debug("crop recommended",
		zap.Any("resolved", resolved),
		zap.Any("features", features.Named()),
		zap.String("top", recs[0].Crop),
	)
	return &models.CropResponse{Recommendations: recs}, nil
}

func (s *Service) probabilities(ctx context.Context, features FeatureVector) ([]float32, error) {
	if cached, ok := s.cache.Get(features); ok {
		return cached, nil
	}
	probs, err := s.classifier.Predict(ctx, features[:])
	if err != nil {
		return nil, fmt.Errorf("crop prediction failed: %w", err)
	}
	if len(probs) != len(s.labels) {
		return nil, fmt.Errorf("%w: crop model returned %d probabilities for %d labels", inference.ErrShapeMismatch, len(probs), len(s.labels))
	}
	s.cache.Set(features, probs)
	return probs, nil
}
