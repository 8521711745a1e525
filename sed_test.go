package sed

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jamesainslie/go-sed/inference"
)

const testModelPath = "testdata/crnn.onnx"

var testLabels = []string{"Alarm_bell_ringing", "Dog", "Speech"}

// skipIfNoModel skips the test if the ONNX model is not available.
func skipIfNoModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testModelPath); err != nil {
		t.Skipf("Skipping: ONNX model not available at %s", testModelPath)
	}
}

func TestNew(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = det.Close() }()

	if det == nil {
		t.Error("expected non-nil detector")
	}
	if det.pool == nil {
		t.Error("expected non-nil pool")
	}
	if len(det.Labels()) != len(testLabels) {
		t.Errorf("expected %d labels, got %d", len(testLabels), len(det.Labels()))
	}
}

func TestNew_ModelNotFound(t *testing.T) {
	_, err := New("nonexistent/model.onnx", testLabels)
	if err == nil {
		t.Fatal("expected error for nonexistent model")
	}
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got: %v", err)
	}
}

func TestNew_NoLabels(t *testing.T) {
	_, err := New(testModelPath, nil)
	if err == nil {
		t.Fatal("expected error for empty vocabulary")
	}
	if !errors.Is(err, ErrNoLabels) {
		t.Errorf("expected ErrNoLabels, got: %v", err)
	}
}

func TestNew_InvalidModel(t *testing.T) {
	// A temp file passes the existence check but is not a valid ONNX model.
	tmpModel, err := os.CreateTemp("", "fake_model_*.onnx")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer func() { _ = os.Remove(tmpModel.Name()) }()
	_ = tmpModel.Close()

	_, err = New(tmpModel.Name(), testLabels)
	if err == nil {
		t.Fatal("expected error for invalid model")
	}
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("expected ErrInvalidModel, got: %v", err)
	}
}

func TestNew_WithOptions(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels,
		WithThreshold(0.3),
		WithMaxClipLength(8.0),
		WithPoolSize(2),
	)
	if err != nil {
		t.Fatalf("New() with options failed: %v", err)
	}
	defer func() { _ = det.Close() }()

	if det.Threshold() != 0.3 {
		t.Errorf("expected threshold 0.3, got %f", det.Threshold())
	}
	if det.MaxClipLength() != 8.0 {
		t.Errorf("expected max clip length 8.0, got %f", det.MaxClipLength())
	}
}

func TestBatch_Clips(t *testing.T) {
	tests := []struct {
		name  string
		batch Batch
		want  int
	}{
		{"empty", Batch{}, 0},
		{"single", Batch{Shape: []int64{1, 628, 128}}, 1},
		{"multi", Batch{Shape: []int64{24, 628, 128}}, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.batch.Clips(); got != tt.want {
				t.Errorf("Clips() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetector_Forward_EmptyBatch(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = det.Close() }()

	out, err := det.Forward(context.Background(), &Batch{})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(out.Strong) != 0 || len(out.Tags) != 0 {
		t.Errorf("expected empty outputs, got %+v", out)
	}
}

func TestDetector_Forward_BadShape(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = det.Close() }()

	batch := &Batch{
		Data:  make([]float32, 8),
		Shape: []int64{2, 4},
	}
	if _, err := det.Forward(context.Background(), batch); err == nil {
		t.Error("expected error for rank-2 batch shape")
	}
}

func TestDetector_Forward(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = det.Close() }()

	const (
		clips  = 2
		frames = 628
		mels   = 128
	)
	batch := &Batch{
		Data:    make([]float32, clips*frames*mels),
		Shape:   []int64{clips, frames, mels},
		Indexes: []int{0, 1},
	}

	out, err := det.Forward(context.Background(), batch)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(out.Strong) != clips {
		t.Fatalf("expected %d strong outputs, got %d", clips, len(out.Strong))
	}
	if len(out.Tags) != clips {
		t.Fatalf("expected %d tag vectors, got %d", clips, len(out.Tags))
	}
	for i := range out.Tags {
		if len(out.Tags[i]) != len(testLabels) {
			t.Errorf("clip %d: expected %d tag probabilities, got %d", i, len(testLabels), len(out.Tags[i]))
		}
	}
}

func TestDetector_Forward_ContextCancelled(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = det.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	batch := &Batch{
		Data:  make([]float32, 1*4*4),
		Shape: []int64{1, 4, 4},
	}
	_, err = det.Forward(ctx, batch)
	if err == nil {
		t.Error("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestSplitOutputs(t *testing.T) {
	res := &inference.Result{
		Strong:  make([]float32, 2*4*3),
		Tags:    make([]float32, 2*3),
		Frames:  4,
		Classes: 3,
	}

	out, err := splitOutputs(res, 2, 3)
	if err != nil {
		t.Fatalf("splitOutputs failed: %v", err)
	}
	if len(out.Strong) != 2 || len(out.Tags) != 2 {
		t.Fatalf("expected outputs for 2 clips, got %d strong, %d tags", len(out.Strong), len(out.Tags))
	}
	if len(out.Strong[1]) != 4 || len(out.Strong[1][3]) != 3 || len(out.Tags[1]) != 3 {
		t.Errorf("unexpected output geometry: %+v", out)
	}

	// A batch dimension disagreeing with the input must error, not panic.
	if _, err := splitOutputs(res, 3, 3); err == nil {
		t.Error("expected error for clip count mismatch")
	}
	if _, err := splitOutputs(res, 2, 4); err == nil {
		t.Error("expected error for class count mismatch")
	}
}

func TestDetector_Close(t *testing.T) {
	skipIfNoModel(t)

	det, err := New(testModelPath, testLabels)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := det.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	// Double close should not panic
	if err := det.Close(); err != nil {
		t.Logf("Second Close() returned: %v", err)
	}
}
