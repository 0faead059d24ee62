package inference

import (
	"errors"
	"fmt"
)

// ONNXOptions describes how to bind a model's single input and output.
type ONNXOptions struct {
	ModelPath   string
	LibraryPath string // onnxruntime shared library; empty uses the platform default
	InputName   string
	OutputName  string
	InputShape  []int64 // including the leading batch dimension of 1
	OutputSize  int
}

func (o ONNXOptions) validate() error {
	if o.ModelPath == "" {
		return errors.New("model path is required")
	}
	if o.InputName == "" || o.OutputName == "" {
		return errors.New("model input and output names are required")
	}
	if len(o.InputShape) == 0 || o.InputShape[0] != 1 {
		return fmt.Errorf("input shape %v must start with a batch dimension of 1", o.InputShape)
	}
	for _, d := range o.InputShape {
		if d <= 0 {
			return fmt.Errorf("input shape %v has a non-positive dimension", o.InputShape)
		}
	}
	if o.OutputSize <= 0 {
		return fmt.Errorf("output size must be positive, got %d", o.OutputSize)
	}
	return nil
}
