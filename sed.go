package sed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jamesainslie/go-sed/inference"
)

// Batch is one batch of feature frames fed to the model.
//
// Data holds log-mel features in row-major clip x frame x mel order, with
// Shape = [clips, frames, mels]. Indexes maps each clip in the batch back to
// its dataset position so predictions can be attributed to filenames.
type Batch struct {
	Data    []float32
	Shape   []int64
	Indexes []int

	// OrigSizes holds the original clip length in seconds per clip, used by
	// post-processors to rescale normalized event boundaries.
	OrigSizes []float64

	// Targets holds clip-level reference tags per clip, consumed only by
	// loss functions for diagnostic logging.
	Targets [][]float64
}

// Clips returns the number of clips in the batch.
func (b *Batch) Clips() int {
	if len(b.Shape) == 0 {
		return 0
	}
	return int(b.Shape[0])
}

// Outputs holds the raw model outputs for one batch.
type Outputs struct {
	// Strong holds frame-level class probabilities per clip, indexed as
	// Strong[clip][frame][class].
	Strong [][][]float32

	// Tags holds clip-level tag probabilities, indexed as Tags[clip][class].
	Tags [][]float32
}

// Detector runs a trained sound event detection ONNX model.
// It is safe for concurrent use.
type Detector struct {
	pool    *inference.Pool
	labels  []string
	thr     float64
	maxClip float64
	logger  *slog.Logger
}

// New creates a Detector from a model file and an ordered class vocabulary.
func New(modelPath string, labels []string, opts ...Option) (*Detector, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(labels) == 0 {
		return nil, ErrNoLabels
	}

	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	pool, err := inference.NewPool(modelPath, cfg.poolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	return &Detector{
		pool:    pool,
		labels:  append([]string(nil), labels...),
		thr:     cfg.threshold,
		maxClip: cfg.maxClip,
		logger:  cfg.logger,
	}, nil
}

// Labels returns the class vocabulary in model output order.
func (d *Detector) Labels() []string {
	return d.labels
}

// Threshold returns the configured decoding threshold.
func (d *Detector) Threshold() float64 {
	return d.thr
}

// MaxClipLength returns the maximum clip length in seconds.
func (d *Detector) MaxClipLength() float64 {
	return d.maxClip
}

// Forward runs inference on one batch and returns per-clip frame-level and
// clip-level probabilities. No gradients are involved; the model is assumed
// to be exported for evaluation.
func (d *Detector) Forward(ctx context.Context, batch *Batch) (*Outputs, error) {
	if batch == nil || batch.Clips() == 0 {
		return &Outputs{}, nil
	}
	if len(batch.Shape) != 3 {
		return nil, fmt.Errorf("sed: batch shape must be [clips, frames, mels], got %v", batch.Shape)
	}

	session, err := d.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, inference.ErrPoolClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	defer d.pool.Release(session)

	res, err := session.Infer(ctx, batch.Data, batch.Shape)
	if err != nil {
		return nil, fmt.Errorf("forward pass: %w", err)
	}

	clips := batch.Clips()
	out, err := splitOutputs(res, clips, len(d.labels))
	if err != nil {
		return nil, err
	}

	d.logger.Debug("forward pass", "clips", clips, "frames", res.Frames, "classes", len(d.labels))
	return out, nil
}

// splitOutputs validates the flat result tensors against the batch geometry
// and reshapes them into per-clip slices.
func splitOutputs(res *inference.Result, clips, classes int) (*Outputs, error) {
	if res.Classes != classes {
		return nil, fmt.Errorf("sed: model emits %d classes, vocabulary has %d", res.Classes, classes)
	}
	if len(res.Tags) != clips*classes || len(res.Strong) != clips*res.Frames*classes {
		return nil, fmt.Errorf("sed: model output covers %d clips, batch has %d", len(res.Tags)/classes, clips)
	}

	out := &Outputs{
		Strong: make([][][]float32, clips),
		Tags:   make([][]float32, clips),
	}
	for i := 0; i < clips; i++ {
		frames := make([][]float32, res.Frames)
		for f := 0; f < res.Frames; f++ {
			off := (i*res.Frames + f) * classes
			frames[f] = res.Strong[off : off+classes]
		}
		out.Strong[i] = frames
		out.Tags[i] = res.Tags[i*classes : (i+1)*classes]
	}
	return out, nil
}

// Close releases the underlying ONNX sessions.
func (d *Detector) Close() error {
	return d.pool.Close()
}
