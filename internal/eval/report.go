package eval

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ComputeSEDMetrics scores predictions against ground truth, optionally
// adding segment-based scores. Non-positive tolerances fall back to the
// protocol defaults. When report is set the class-wise tables are written
// to w.
func ComputeSEDMetrics(w io.Writer, predictions, groundTruth EventTable, collar, pctLength, resolution float64, report, withSegments bool) (*EventMetrics, *SegmentMetrics) {
	if collar <= 0 {
		collar = DefaultCollar
	}
	if pctLength <= 0 {
		pctLength = DefaultPercentageOfLength
	}
	events := EventBasedEvaluation(groundTruth, predictions, collar, pctLength)
	if report {
		fmt.Fprintln(w, events)
	}
	var segments *SegmentMetrics
	if withSegments {
		segments = SegmentBasedEvaluation(groundTruth, predictions, resolution)
		if report {
			fmt.Fprintln(w, segments)
		}
	}
	return events, segments
}

// pct formats a ratio as a percentage string truncated to five characters,
// e.g. 0.04321 -> "4.321%".
func pct(v float64) string {
	s := strconv.FormatFloat(v*100, 'f', -1, 64)
	if len(s) > 5 {
		s = s[:5]
	}
	return s + "%"
}

// ComputeMetrics assembles the evaluation report for one prediction table:
// event-based macro metrics, optionally segment-based and clip-level
// (audio tagging) macro metrics, written to w as a single summary row.
// Non-positive tolerances fall back to the protocol defaults. It returns
// the three headline scalars (event F1, event precision, clip F1). Empty
// predictions short-circuit to all zeros.
func ComputeMetrics(w io.Writer, predictions, groundTruth EventTable, collar, pctLength, resolution float64, withSegments, withClips bool) (eventF1, eventP, clipF1 float64) {
	if predictions.Empty() {
		return 0, 0, 0
	}

	events, segments := ComputeSEDMetrics(w, predictions, groundTruth, collar, pctLength, resolution, true, withSegments)
	eventsMacro := events.MacroAverage()
	eventF1 = eventsMacro.FMeasure
	eventP = eventsMacro.Precision

	if withClips {
		clips, err := AudioTaggingResults(groundTruth, predictions)
		if err != nil {
			fmt.Fprintf(w, "clip metrics unavailable: %v\n", err)
		} else {
			clipF1 = clips.Avg.FMeasure
			fmt.Fprintln(w, "Class-wise clip metrics")
			fmt.Fprintln(w, strings.Repeat("=", 50))
			fmt.Fprint(w, clips)
		}
	}

	if segments != nil {
		segMacro := segments.MacroAverage()
		fmt.Fprintf(w, "%-8s %-8s %-8s %-8s %-8s %-8s %-8s\n",
			"eve_F", "eve_P", "eve_R", "seg_F", "seg_P", "seg_R", "clip_F")
		fmt.Fprintf(w, "%-8s %-8s %-8s %-8s %-8s %-8s %-8s\n",
			pct(eventF1), pct(eventP), pct(eventsMacro.Recall),
			pct(segMacro.FMeasure), pct(segMacro.Precision), pct(segMacro.Recall),
			pct(clipF1))
	}
	return eventF1, eventP, clipF1
}
