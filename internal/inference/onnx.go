//go:build cgo
// +build cgo

package inference

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment initializes the ONNX Runtime once per process; both models share it.
func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	if envErr != nil {
		return fmt.Errorf("failed to initialize ONNX runtime: %w", envErr)
	}
	return nil
}

// ONNXClassifier runs a single-output classification model with ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type ONNXClassifier struct {
	session    *ort.AdvancedSession
	inputSize  int
	outputSize int
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXClassifier loads the model at opts.ModelPath. The input tensor has
// opts.InputShape (batch of one) and the output tensor is [1, opts.OutputSize];
// ONNX Runtime rejects a model whose output width differs.
func NewONNXClassifier(opts ONNXOptions) (*ONNXClassifier, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(opts.InputShape...)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.OutputSize)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", opts.ModelPath, err)
	}

	return &ONNXClassifier{
		session:      session,
		inputSize:    int(inputShape.FlattenedSize()),
		outputSize:   opts.OutputSize,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict copies input into the session tensor, runs the model and returns a
// copy of the output row.
func (c *ONNXClassifier) Predict(ctx context.Context, input []float32) ([]float32, error) {
	if len(input) != c.inputSize {
		return nil, fmt.Errorf("%w: input has %d values, model expects %d", ErrShapeMismatch, len(input), c.inputSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputTensor.GetData(), input)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	probs := make([]float32, c.outputSize)
	copy(probs, c.outputTensor.GetData())
	return probs, nil
}

// InputSize returns the flattened input length.
func (c *ONNXClassifier) InputSize() int { return c.inputSize }

// OutputSize returns the number of classes.
func (c *ONNXClassifier) OutputSize() int { return c.outputSize }

// Close destroys the session and tensors.
func (c *ONNXClassifier) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Destroy()
		c.session = nil
	}
	if c.inputTensor != nil {
		_ = c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		_ = c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	return err
}
