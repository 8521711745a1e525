package eval

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/jamesainslie/go-sed/decode"
)

// IntermediateCounts accumulates per-class confusion counts from paired
// multi-hot matrices (rows are instances, columns classes). Both matrices
// must have the same shape; the caller aligns tables first.
func IntermediateCounts(ref, est [][]int) (tp, fp, fn, tn []int) {
	if len(ref) == 0 {
		return nil, nil, nil, nil
	}
	classes := len(ref[0])
	tp = make([]int, classes)
	fp = make([]int, classes)
	fn = make([]int, classes)
	tn = make([]int, classes)

	for i := range ref {
		for c := 0; c < classes; c++ {
			r, e := ref[i][c], est[i][c]
			switch {
			case r+e == 2:
				tp[c]++
			case e-r == 1:
				fp[c]++
			case r-e == 1:
				fn[c]++
			default:
				tn[c]++
			}
		}
	}
	return tp, fp, fn, tn
}

// MacroFMeasure computes the per-class F-measure from confusion counts.
// Classes with 2*tp+fp+fn == 0 score 0.
func MacroFMeasure(tp, fp, fn []int) []float64 {
	f := make([]float64, len(tp))
	for c := range tp {
		denom := 2*tp[c] + fp[c] + fn[c]
		if denom != 0 {
			f[c] = 2 * float64(tp[c]) / float64(denom)
		}
	}
	return f
}

// safeRate returns num/denom, or 0 when denom is 0. Precision and recall are
// masked the same way as the F-measure so report rows never carry NaN.
func safeRate(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// TaggingScores holds one row of an audio tagging report.
type TaggingScores struct {
	FMeasure  float64
	Precision float64
	Recall    float64
}

// TaggingReport holds per-class audio tagging scores plus their unweighted
// average.
type TaggingReport struct {
	Classes []string
	Scores  []TaggingScores
	Avg     TaggingScores
}

// String renders the report as a class-wise table with a trailing avg row.
func (r TaggingReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %8s %8s %8s\n", "class", "f", "p", "r")
	for i, c := range r.Classes {
		s := r.Scores[i]
		fmt.Fprintf(&b, "%-24s %8.3f %8.3f %8.3f\n", c, s.FMeasure, s.Precision, s.Recall)
	}
	fmt.Fprintf(&b, "%-24s %8.3f %8.3f %8.3f\n", "avg", r.Avg.FMeasure, r.Avg.Precision, r.Avg.Recall)
	return b.String()
}

// AudioTaggingResults computes clip-level tagging metrics for a reference and
// an estimated table. The class set is the union of labels seen on both
// sides; both tables are reduced to weak form, outer-joined on filename and
// scored per class with a trailing unweighted average.
func AudioTaggingResults(reference, estimated EventTable) (TaggingReport, error) {
	classes := Classes(reference, estimated)
	dec, err := decode.FromClasses(classes)
	if err != nil {
		return TaggingReport{}, fmt.Errorf("audio tagging: %w", err)
	}

	report := TaggingReport{
		Classes: dec.Labels(),
		Scores:  make([]TaggingScores, dec.Size()),
	}
	if estimated.Empty() {
		return report, nil
	}

	refWeak := FormatWeak(reference, dec)
	estWeak := FormatWeak(estimated, dec)
	refM, estM := OuterJoin(refWeak, estWeak, dec.Size())

	tp, fp, fn, _ := IntermediateCounts(refM, estM)
	f := MacroFMeasure(tp, fp, fn)

	fs := make([]float64, dec.Size())
	ps := make([]float64, dec.Size())
	rs := make([]float64, dec.Size())
	for c := 0; c < dec.Size(); c++ {
		fs[c] = f[c]
		ps[c] = safeRate(tp[c], tp[c]+fp[c])
		rs[c] = safeRate(tp[c], tp[c]+fn[c])
		report.Scores[c] = TaggingScores{FMeasure: fs[c], Precision: ps[c], Recall: rs[c]}
	}
	report.Avg = TaggingScores{
		FMeasure:  stat.Mean(fs, nil),
		Precision: stat.Mean(ps, nil),
		Recall:    stat.Mean(rs, nil),
	}
	return report, nil
}
