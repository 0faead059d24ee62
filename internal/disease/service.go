// Package disease classifies plant leaf images.
package disease

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hyperjump/agrovision/internal/inference"
	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/pkg/utils"
	"go.uber.org/zap"
)

// ErrClassMismatch is returned when the class list and the model output disagree in size.
var ErrClassMismatch = errors.New("disease class list does not match model output")

// Service detects the most likely disease in an uploaded image.
// It is safe for concurrent use.
type Service struct {
	classifier inference.Classifier
	classes    []string
	size       int
	logger     *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = utils.Component(l, "disease") }
}

// WithImageSize overrides the square input resolution (default 224).
func WithImageSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.size = size
		}
	}
}

// NewService creates a service whose model output column i is classes[i].
// A classifier that declares a different output width is rejected.
func NewService(classifier inference.Classifier, classes []string, opts ...ServiceOption) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("disease classifier is required")
	}
	if len(classes) == 0 {
		return nil, errors.New("disease classes are required")
	}
	s := &Service{
		classifier: classifier,
		classes:    append([]string(nil), classes...),
		size:       DefaultImageSize,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if n := classifier.OutputSize(); n > 0 && n != len(classes) {
		return nil, fmt.Errorf("%w: model has %d outputs, %d class names", ErrClassMismatch, n, len(classes))
	}
	if n := classifier.InputSize(); n > 0 && n != s.size*s.size*3 {
		return nil, fmt.Errorf("%w: disease model takes %d values, want %dx%dx3", inference.ErrShapeMismatch, n, s.size, s.size)
	}
	return s, nil
}

// ImageSize returns the square input resolution.
func (s *Service) ImageSize() int { return s.size }

// Classes returns the raw class names in model order.
func (s *Service) Classes() []string {
	return append([]string(nil), s.classes...)
}

// Detect decodes the image in r and returns the most probable class with its
// probability as a percentage rounded to two decimals.
func (s *Service) Detect(ctx context.Context, r io.Reader) (*models.DiseaseResponse, error) {
	img, format, err := Decode(r)
	if err != nil {
		return nil, err
	}
	input := Preprocess(img, s.size)
	probs, err := s.classifier.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("disease prediction failed: %w", err)
	}
	if len(probs) != len(s.classes) {
		return nil, fmt.Errorf("%w: model returned %d probabilities, %d class names", ErrClassMismatch, len(probs), len(s.classes))
	}

	idx := utils.ArgMax(probs)
	resp := &models.DiseaseResponse{
		Disease:    CleanName(s.classes[idx]),
		Confidence: utils.Round2(float64(probs[idx]) * 100),
	}
	s.logger.Debug("disease detected",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.String("disease", resp.Disease),
		zap.Float64("confidence", resp.Confidence),
	)
	return resp, nil
}
