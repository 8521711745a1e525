package inference

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

const testModelPath = "../testdata/crnn.onnx"

// skipIfNoTestModel skips the test when the SED test model is not checked in.
func skipIfNoTestModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testModelPath); err != nil {
		t.Skipf("Skipping: model not available at %s", testModelPath)
	}
}

// newTestSession creates a session over the test model, skipping when the
// ONNX runtime is unavailable.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	skipIfNoTestModel(t)

	session, err := NewSession(testModelPath)
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewSession failed: %v", err)
	}
	return session
}

// testBatch returns a feature batch of the given geometry.
func testBatch(clips, frames, mels int) ([]float32, []int64) {
	data := make([]float32, clips*frames*mels)
	for i := range data {
		data[i] = float32(i%7) * 0.1
	}
	return data, []int64{int64(clips), int64(frames), int64(mels)}
}

func TestNewSession_FileNotFound(t *testing.T) {
	_, err := NewSession("../testdata/nonexistent.onnx")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}

func TestSession_Infer(t *testing.T) {
	session := newTestSession(t)
	defer func() { _ = session.Close() }()

	data, shape := testBatch(1, 128, 64)

	ctx := context.Background()
	res, err := session.Infer(ctx, data, shape)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	if res.Frames <= 0 || res.Classes <= 0 {
		t.Errorf("expected positive output geometry, got frames=%d classes=%d", res.Frames, res.Classes)
	}
	if len(res.Strong) != res.Frames*res.Classes {
		t.Errorf("strong output length %d does not match %dx%d", len(res.Strong), res.Frames, res.Classes)
	}
	if len(res.Tags) != res.Classes {
		t.Errorf("tag output length %d does not match %d classes", len(res.Tags), res.Classes)
	}
}

func TestSession_Infer_BadShape(t *testing.T) {
	session := newTestSession(t)
	defer func() { _ = session.Close() }()

	data, _ := testBatch(1, 4, 4)
	_, err := session.Infer(context.Background(), data, []int64{4, 4})
	if err == nil {
		t.Error("expected error for rank-2 input shape")
	}
}

func TestSession_Infer_ContextCancellation(t *testing.T) {
	session := newTestSession(t)
	defer func() { _ = session.Close() }()

	// Create an already-cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, shape := testBatch(1, 8, 8)
	_, err := session.Infer(ctx, data, shape)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled error, got: %v", err)
	}
}

func TestSession_Infer_ContextTimeout(t *testing.T) {
	session := newTestSession(t)
	defer func() { _ = session.Close() }()

	// Create an already-expired context
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	data, shape := testBatch(1, 8, 8)
	_, err := session.Infer(ctx, data, shape)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded error, got: %v", err)
	}
}

func TestSession_Close_Idempotent(t *testing.T) {
	session := newTestSession(t)

	// First close should succeed
	if err := session.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}

	// Second close should also succeed (idempotent)
	if err := session.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestSession_Infer_AfterClose(t *testing.T) {
	session := newTestSession(t)

	if err := session.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, shape := testBatch(1, 8, 8)
	_, err := session.Infer(context.Background(), data, shape)
	if err == nil {
		t.Error("expected error when calling Infer on closed session")
	}
}

// isORTUnavailableError checks if the error indicates ONNX runtime is not available.
func isORTUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// Common ONNX runtime unavailability indicators
	return strings.Contains(errStr, "onnxruntime") ||
		strings.Contains(errStr, "shared library") ||
		strings.Contains(errStr, "dylib") ||
		strings.Contains(errStr, ".so") ||
		strings.Contains(errStr, ".dll") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "cannot open") ||
		strings.Contains(errStr, "initializing ONNX runtime")
}
