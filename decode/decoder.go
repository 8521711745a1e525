// Package decode converts raw SED model outputs into labeled events and
// clip-level tags over a fixed class vocabulary.
package decode

import (
	"fmt"
	"sort"
)

// Decoder maps between class labels and their positions in the model output,
// and turns raw detection structures into scored events. The vocabulary order
// is fixed at construction.
type Decoder struct {
	labels []string
	index  map[string]int
}

// New creates a Decoder over an ordered vocabulary. Labels must be unique.
func New(labels []string) (*Decoder, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("decode: empty vocabulary")
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, fmt.Errorf("decode: duplicate label %q", l)
		}
		index[l] = i
	}
	return &Decoder{labels: append([]string(nil), labels...), index: index}, nil
}

// FromClasses creates a Decoder from an unordered class set. The vocabulary
// is the sorted set, so the same set always yields the same decoder.
func FromClasses(classes []string) (*Decoder, error) {
	seen := make(map[string]bool, len(classes))
	var labels []string
	for _, c := range classes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		labels = append(labels, c)
	}
	sort.Strings(labels)
	return New(labels)
}

// Labels returns the vocabulary in output order.
func (d *Decoder) Labels() []string {
	return d.labels
}

// Size returns the vocabulary size.
func (d *Decoder) Size() int {
	return len(d.labels)
}

// EncodeWeak encodes a label set as a multi-hot vector over the vocabulary.
// Unknown labels are ignored.
func (d *Decoder) EncodeWeak(labels []string) []int {
	vec := make([]int, len(d.labels))
	for _, l := range labels {
		if i, ok := d.index[l]; ok {
			vec[i] = 1
		}
	}
	return vec
}

// DecodeWeak returns the labels whose positions are set in a multi-hot vector.
func (d *Decoder) DecodeWeak(tags []int) []string {
	var labels []string
	for i, v := range tags {
		if v != 0 && i < len(d.labels) {
			labels = append(labels, d.labels[i])
		}
	}
	return labels
}

// Binarize thresholds a probability vector into a multi-hot vector.
func Binarize(probs []float32, threshold float64) []int {
	vec := make([]int, len(probs))
	for i, p := range probs {
		if float64(p) > threshold {
			vec[i] = 1
		}
	}
	return vec
}

// RawDetection is the per-clip output of a post-processor: parallel slices of
// class indexes, time spans in seconds and confidence scores.
type RawDetection struct {
	Labels  []int
	Onsets  []float64
	Offsets []float64
	Scores  []float64
}

// Len returns the number of raw detections.
func (r RawDetection) Len() int {
	return len(r.Labels)
}

// ScoredEvent is one decoded detection.
type ScoredEvent struct {
	Label  string
	Onset  float64
	Offset float64
	Score  float64
}

// DecodeStrong converts a raw detection structure into scored events, keeping
// only detections whose score exceeds the threshold. Class indexes outside
// the vocabulary are dropped.
func (d *Decoder) DecodeStrong(det RawDetection, threshold float64) []ScoredEvent {
	var events []ScoredEvent
	for i := 0; i < det.Len(); i++ {
		if det.Scores[i] <= threshold {
			continue
		}
		cls := det.Labels[i]
		if cls < 0 || cls >= len(d.labels) {
			continue
		}
		events = append(events, ScoredEvent{
			Label:  d.labels[cls],
			Onset:  det.Onsets[i],
			Offset: det.Offsets[i],
			Score:  det.Scores[i],
		})
	}
	return events
}
