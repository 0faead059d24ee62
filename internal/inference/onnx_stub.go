//go:build !cgo
// +build !cgo

package inference

import (
	"context"
	"errors"
)

// ONNXClassifier stub type when built without CGO (see onnx.go for real implementation).
type ONNXClassifier struct{}

// NewONNXClassifier returns an error when built without CGO (ONNX not available).
func NewONNXClassifier(opts ONNXOptions) (*ONNXClassifier, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return nil, errors.New("ONNX classifier requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (c *ONNXClassifier) Predict(context.Context, []float32) ([]float32, error) {
	return nil, errors.New("ONNX classifier requires CGO")
}

func (c *ONNXClassifier) InputSize() int  { return 0 }
func (c *ONNXClassifier) OutputSize() int { return 0 }
func (c *ONNXClassifier) Close() error    { return nil }
