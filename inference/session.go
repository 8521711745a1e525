// Package inference provides ONNX Runtime integration for SED model inference.
package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Result holds the two model outputs for one batch, copied out of the ONNX
// tensors. Strong is clip x frame x class row-major, Tags is clip x class.
type Result struct {
	Strong  []float32
	Tags    []float32
	Frames  int
	Classes int
}

// Session wraps an ONNX Runtime session for SED inference.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string) (*Session, error) {
	// Check file exists
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	// Create session options
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	// Define input/output names (from model inspection)
	inputNames := []string{"input"}
	outputNames := []string{"strong", "at"}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Infer runs the model on one feature batch with shape [clips, frames, mels]
// and returns frame-level and clip-level probabilities.
func (s *Session) Infer(ctx context.Context, data []float32, shape []int64) (*Result, error) {
	// Check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("expected shape [clips, frames, mels], got %v", shape)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(shape...), data)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	inputs := []ort.Value{inputTensor}

	// Output slots - nil entries will be allocated by Run
	outputs := []ort.Value{nil, nil}

	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}

	strong, strongShape, err := copyOutput(outputs[0], "strong")
	if err != nil {
		return nil, err
	}
	tags, tagsShape, err := copyOutput(outputs[1], "at")
	if err != nil {
		return nil, err
	}

	if len(strongShape) != 3 {
		return nil, fmt.Errorf("strong output: expected rank 3, got shape %v", strongShape)
	}
	if len(tagsShape) != 2 {
		return nil, fmt.Errorf("at output: expected rank 2, got shape %v", tagsShape)
	}
	if strongShape[2] != tagsShape[1] {
		return nil, fmt.Errorf("class dimension mismatch: strong %d vs at %d", strongShape[2], tagsShape[1])
	}

	return &Result{
		Strong:  strong,
		Tags:    tags,
		Frames:  int(strongShape[1]),
		Classes: int(strongShape[2]),
	}, nil
}

// copyOutput extracts and copies one float32 output tensor.
func copyOutput(v ort.Value, name string) ([]float32, []int64, error) {
	if v == nil {
		return nil, nil, fmt.Errorf("no %s output produced", name)
	}
	defer func() { _ = v.Destroy() }()

	tensor, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("unexpected %s output tensor type", name)
	}

	src := tensor.GetData()
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst, tensor.GetShape(), nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
