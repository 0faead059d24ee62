// Package inference runs pretrained classifiers exported to ONNX.
package inference

import (
	"context"
	"errors"
)

// ErrShapeMismatch is returned when an input or output does not have the size
// the classifier was built for.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

// Classifier maps a flat float32 input to one probability per class.
type Classifier interface {
	Predict(ctx context.Context, input []float32) ([]float32, error)
	// InputSize is the flattened length Predict expects.
	InputSize() int
	// OutputSize is the number of classes Predict returns.
	OutputSize() int
	Close() error
}
