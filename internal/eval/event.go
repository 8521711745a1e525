package eval

import (
	"fmt"
	"math"
	"strings"
)

// Default matching tolerances for event-based evaluation.
const (
	// DefaultCollar is the onset/offset tolerance in seconds.
	DefaultCollar = 0.200

	// DefaultPercentageOfLength is the offset tolerance as a fraction of the
	// reference event length.
	DefaultPercentageOfLength = 0.2
)

// ClassScores holds F-measure, precision and recall for one class or for a
// macro average.
type ClassScores struct {
	FMeasure  float64
	Precision float64
	Recall    float64
}

// classCounts accumulates instance-level matching counts for one class.
type classCounts struct {
	tp   int
	nRef int // reference events
	nSys int // system events
}

func (c classCounts) scores() ClassScores {
	fp := c.nSys - c.tp
	fn := c.nRef - c.tp
	return ClassScores{
		FMeasure:  fMeasure(c.tp, fp, fn),
		Precision: safeRate(c.tp, c.nSys),
		Recall:    safeRate(c.tp, c.nRef),
	}
}

// fMeasure computes 2tp/(2tp+fp+fn) with zero-denominator masking.
func fMeasure(tp, fp, fn int) float64 {
	denom := 2*tp + fp + fn
	if denom == 0 {
		return 0
	}
	return 2 * float64(tp) / float64(denom)
}

// EventMetrics accumulates event-based matching results across files.
// Detected events match reference events of the same class when both the
// onset and the offset fall within tolerance.
type EventMetrics struct {
	collar    float64
	pctLength float64
	classes   []string
	counts    map[string]*classCounts
}

// NewEventMetrics creates an accumulator over a fixed class list.
func NewEventMetrics(classes []string, collar, pctLength float64) *EventMetrics {
	m := &EventMetrics{
		collar:    collar,
		pctLength: pctLength,
		classes:   classes,
		counts:    make(map[string]*classCounts, len(classes)),
	}
	for _, c := range classes {
		m.counts[c] = &classCounts{}
	}
	return m
}

// Evaluate submits one file's paired reference and estimated event lists.
// Estimated events without a reference match count as false positives; a file
// with empty system output scores zero rather than being skipped.
func (m *EventMetrics) Evaluate(reference, estimated []Event) {
	used := make([]bool, len(estimated))

	for _, ref := range reference {
		counts, ok := m.counts[ref.Label]
		if !ok {
			continue
		}
		counts.nRef++

		offsetTol := math.Max(m.collar, m.pctLength*ref.Duration())
		for i, est := range estimated {
			if used[i] || est.Label != ref.Label {
				continue
			}
			if math.Abs(est.Onset-ref.Onset) <= m.collar &&
				math.Abs(est.Offset-ref.Offset) <= offsetTol {
				used[i] = true
				counts.tp++
				break
			}
		}
	}

	for _, est := range estimated {
		if counts, ok := m.counts[est.Label]; ok {
			counts.nSys++
		}
	}
}

// ClassWise returns the scores for one class.
func (m *EventMetrics) ClassWise(label string) ClassScores {
	if c, ok := m.counts[label]; ok {
		return c.scores()
	}
	return ClassScores{}
}

// MacroAverage returns the unweighted mean of class-wise scores.
func (m *EventMetrics) MacroAverage() ClassScores {
	return macroAverage(m.classes, m.ClassWise)
}

// String renders a class-wise score table with a trailing macro row.
func (m *EventMetrics) String() string {
	return renderScores("Event based metrics", m.classes, m.ClassWise, m.MacroAverage())
}

// macroAverage averages class-wise scores; an empty class list yields zeros.
func macroAverage(classes []string, classWise func(string) ClassScores) ClassScores {
	if len(classes) == 0 {
		return ClassScores{}
	}
	var sum ClassScores
	for _, c := range classes {
		s := classWise(c)
		sum.FMeasure += s.FMeasure
		sum.Precision += s.Precision
		sum.Recall += s.Recall
	}
	n := float64(len(classes))
	return ClassScores{
		FMeasure:  sum.FMeasure / n,
		Precision: sum.Precision / n,
		Recall:    sum.Recall / n,
	}
}

// renderScores formats a class-wise score table.
func renderScores(title string, classes []string, classWise func(string) ClassScores, macro ClassScores) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "%-24s %8s %8s %8s\n", "class", "f", "p", "r")
	for _, c := range classes {
		s := classWise(c)
		fmt.Fprintf(&b, "%-24s %8.3f %8.3f %8.3f\n", c, s.FMeasure, s.Precision, s.Recall)
	}
	fmt.Fprintf(&b, "%-24s %8.3f %8.3f %8.3f\n", "macro", macro.FMeasure, macro.Precision, macro.Recall)
	return b.String()
}

// EventBasedEvaluation scores an estimated table against a reference table
// with collar-based matching. The class set is the union of labels on both
// sides; files are taken from the reference table. A file whose single row
// has an empty label is treated as containing no events.
func EventBasedEvaluation(reference, estimated EventTable, collar, pctLength float64) *EventMetrics {
	m := NewEventMetrics(Classes(reference, estimated), collar, pctLength)
	for _, name := range reference.Filenames() {
		m.Evaluate(reference.FileEvents(name), estimated.FileEvents(name))
	}
	return m
}
