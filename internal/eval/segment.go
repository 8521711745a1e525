package eval

import "math"

// DefaultResolution is the segment length in seconds for segment-based
// evaluation.
const DefaultResolution = 1.0

// SegmentMetrics accumulates segment-based matching results: each file is
// discretized into fixed-length segments and the active class sets of
// reference and estimate are compared per segment.
type SegmentMetrics struct {
	resolution float64
	classes    []string
	tp         map[string]int
	fp         map[string]int
	fn         map[string]int
	tn         map[string]int
}

// NewSegmentMetrics creates an accumulator over a fixed class list.
func NewSegmentMetrics(classes []string, resolution float64) *SegmentMetrics {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &SegmentMetrics{
		resolution: resolution,
		classes:    classes,
		tp:         make(map[string]int, len(classes)),
		fp:         make(map[string]int, len(classes)),
		fn:         make(map[string]int, len(classes)),
		tn:         make(map[string]int, len(classes)),
	}
}

// Evaluate submits one file's paired event lists. The file extent is the
// largest offset seen on either side.
func (m *SegmentMetrics) Evaluate(reference, estimated []Event) {
	var extent float64
	for _, e := range reference {
		extent = math.Max(extent, e.Offset)
	}
	for _, e := range estimated {
		extent = math.Max(extent, e.Offset)
	}
	segments := int(math.Ceil(extent / m.resolution))
	if segments == 0 {
		return
	}

	refActive := m.activity(reference, segments)
	estActive := m.activity(estimated, segments)

	for s := 0; s < segments; s++ {
		for _, c := range m.classes {
			r := refActive[s][c]
			e := estActive[s][c]
			switch {
			case r && e:
				m.tp[c]++
			case e:
				m.fp[c]++
			case r:
				m.fn[c]++
			default:
				m.tn[c]++
			}
		}
	}
}

// activity marks which classes are active in each segment. A class is active
// in a segment when any of its events overlaps the segment.
func (m *SegmentMetrics) activity(events []Event, segments int) []map[string]bool {
	active := make([]map[string]bool, segments)
	for s := range active {
		active[s] = make(map[string]bool)
	}
	for _, e := range events {
		if e.Label == "" {
			continue
		}
		first := int(math.Floor(e.Onset / m.resolution))
		last := int(math.Ceil(e.Offset / m.resolution))
		for s := first; s < last && s < segments; s++ {
			if s >= 0 {
				active[s][e.Label] = true
			}
		}
	}
	return active
}

// ClassWise returns the scores for one class.
func (m *SegmentMetrics) ClassWise(label string) ClassScores {
	tp, fp, fn := m.tp[label], m.fp[label], m.fn[label]
	return ClassScores{
		FMeasure:  fMeasure(tp, fp, fn),
		Precision: safeRate(tp, tp+fp),
		Recall:    safeRate(tp, tp+fn),
	}
}

// MacroAverage returns the unweighted mean of class-wise scores.
func (m *SegmentMetrics) MacroAverage() ClassScores {
	return macroAverage(m.classes, m.ClassWise)
}

// String renders a class-wise score table with a trailing macro row.
func (m *SegmentMetrics) String() string {
	return renderScores("Segment based metrics", m.classes, m.ClassWise, m.MacroAverage())
}

// SegmentBasedEvaluation scores an estimated table against a reference table
// on fixed-length segments. Files are taken from the reference table.
func SegmentBasedEvaluation(reference, estimated EventTable, resolution float64) *SegmentMetrics {
	m := NewSegmentMetrics(Classes(reference, estimated), resolution)
	for _, name := range reference.Filenames() {
		m.Evaluate(reference.FileEvents(name), estimated.FileEvents(name))
	}
	return m
}
