package inference

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockClassifier is a deterministic classifier for tests. By default it returns
// the same probabilities for every input; set Fn to compute them from the input.
type MockClassifier struct {
	inputSize int
	probs     []float32
	Fn        func(input []float32) []float32
	calls     atomic.Int64
}

// NewMockClassifier returns a classifier that always answers probs.
func NewMockClassifier(inputSize int, probs []float32) *MockClassifier {
	return &MockClassifier{inputSize: inputSize, probs: append([]float32(nil), probs...)}
}

// Predict returns the configured probabilities.
func (m *MockClassifier) Predict(_ context.Context, input []float32) ([]float32, error) {
	m.calls.Add(1)
	if m.inputSize > 0 && len(input) != m.inputSize {
		return nil, fmt.Errorf("%w: input has %d values, model expects %d", ErrShapeMismatch, len(input), m.inputSize)
	}
	if m.Fn != nil {
		return m.Fn(input), nil
	}
	return append([]float32(nil), m.probs...), nil
}

// Calls reports how many times Predict was invoked.
func (m *MockClassifier) Calls() int64 { return m.calls.Load() }

// InputSize returns the expected input length (0 accepts any).
func (m *MockClassifier) InputSize() int { return m.inputSize }

// OutputSize returns the number of configured probabilities.
func (m *MockClassifier) OutputSize() int { return len(m.probs) }

// Close is a no-op for MockClassifier.
func (m *MockClassifier) Close() error { return nil }
