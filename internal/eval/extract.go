package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	sed "github.com/jamesainslie/go-sed"
	"github.com/jamesainslie/go-sed/decode"
)

// Thresholds fixed by the evaluation protocol: tag probabilities and decoded
// detection scores are both binarized at 0.5.
const (
	tagThreshold    = 0.5
	decodeThreshold = 0.5
)

// ErrExhausted signals a batch source has no more input.
var ErrExhausted = errors.New("eval: batch source exhausted")

// Model runs a forward pass over one feature batch.
type Model interface {
	Forward(ctx context.Context, batch *sed.Batch) (*sed.Outputs, error)
}

// BatchSource yields feature batches until exhaustion, signaled by
// ErrExhausted. Filenames resolves dataset indexes carried in each batch.
type BatchSource interface {
	Next(ctx context.Context) (*sed.Batch, error)
	Filenames() []string
}

// LossFunc computes named diagnostic loss terms for one batch. Values are
// accumulated into a running average and logged; nothing downstream consumes
// them.
type LossFunc func(outputs *sed.Outputs, batch *sed.Batch) map[string]float64

// PostProcessor fuses frame-level outputs with clip-level tags under one
// fusion strategy and returns per-clip raw detections.
type PostProcessor func(outputs *sed.Outputs, origSizes []float64, tags [][]int, fusion float64) []decode.RawDetection

// meter keeps running averages of named diagnostic values.
type meter struct {
	sums  map[string]float64
	count int
}

func newMeter() *meter {
	return &meter{sums: make(map[string]float64)}
}

func (m *meter) update(vals map[string]float64) {
	for k, v := range vals {
		m.sums[k] += v
	}
	m.count++
}

func (m *meter) String() string {
	if m.count == 0 {
		return "no batches"
	}
	keys := make([]string, 0, len(m.sums))
	for k := range m.sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %.4f", k, m.sums[k]/float64(m.count))
	}
	return strings.Join(parts, "  ")
}

// ExtractPredictions runs a trained model over a batch source and decodes
// its outputs into a clip-level tag table plus one event table per fusion
// strategy. Inference and decoding errors abort the run; there is no
// meaningful way to continue a half-extracted evaluation.
func ExtractPredictions(
	ctx context.Context,
	model Model,
	loss LossFunc,
	post PostProcessor,
	source BatchSource,
	dec *decode.Decoder,
	fusion []float64,
	audioTagging bool,
	maxClipLength float64,
	logger *slog.Logger,
) (EventTable, map[float64]EventTable, error) {
	if len(fusion) == 0 {
		fusion = []float64{1}
	}
	predictions := make(map[float64]EventTable, len(fusion))
	for _, f := range fusion {
		predictions[f] = EventTable{}
	}
	var tagTable EventTable

	filenames := source.Filenames()
	stats := newMeter()
	started := time.Now()
	var decoding time.Duration

	for {
		batch, err := source.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading batch: %w", err)
		}

		outputs, err := model.Forward(ctx, batch)
		if err != nil {
			return nil, nil, fmt.Errorf("forward pass: %w", err)
		}
		if loss != nil {
			stats.update(loss(outputs, batch))
		}

		var tags [][]int
		if audioTagging {
			tags = make([][]int, len(outputs.Tags))
			for j, probs := range outputs.Tags {
				tags[j] = decode.Binarize(probs, tagThreshold)
				name, err := clipName(filenames, batch.Indexes, j)
				if err != nil {
					return nil, nil, err
				}
				for _, label := range dec.DecodeWeak(tags[j]) {
					// Onset and offset are zero by convention for clip tags.
					tagTable = append(tagTable, Event{Filename: name, Label: label})
				}
			}
		}

		decStart := time.Now()
		for _, f := range fusion {
			results := post(outputs, batch.OrigSizes, tags, f)
			for j, res := range results {
				name, err := clipName(filenames, batch.Indexes, j)
				if err != nil {
					return nil, nil, err
				}
				for _, ev := range dec.DecodeStrong(res, decodeThreshold) {
					predictions[f] = append(predictions[f], Event{
						Filename: name,
						Label:    ev.Label,
						Onset:    clamp(ev.Onset, 0, maxClipLength),
						Offset:   clamp(ev.Offset, 0, maxClipLength),
						Score:    ev.Score,
					})
				}
			}
		}
		decoding += time.Since(decStart)
	}

	logger.Info("val averaged stats: " + stats.String())
	logger.Info("prediction extraction finished",
		"epoch_time", time.Since(started).Seconds(),
		"decoding_time", decoding.Seconds())
	return tagTable, predictions, nil
}

// clipName resolves the j-th clip of a batch to its dataset filename.
func clipName(filenames []string, indexes []int, j int) (string, error) {
	if j >= len(indexes) {
		return "", fmt.Errorf("eval: batch clip %d has no dataset index", j)
	}
	idx := indexes[j]
	if idx < 0 || idx >= len(filenames) {
		return "", fmt.Errorf("eval: dataset index %d out of range", idx)
	}
	return filenames[idx], nil
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
