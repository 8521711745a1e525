package eval

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Default PSDS parameters.
const (
	DefaultDTCThreshold  = 0.5
	DefaultGTCThreshold  = 0.5
	DefaultCTTCThreshold = 0.3
	DefaultMaxEFPR       = 100.0
)

// ErrPSDS marks evaluator errors the caller may log and skip rather than
// abort on.
var ErrPSDS = errors.New("eval: psds")

// DurationTable maps filename to clip duration in seconds. It serves as the
// dataset metadata for PSDS false-positive-rate normalization.
type DurationTable map[string]float64

// TotalHours returns the summed dataset duration in hours.
func (d DurationTable) TotalHours() float64 {
	var seconds float64
	for _, s := range d {
		seconds += s
	}
	return seconds / 3600
}

// operatingPoint holds the per-class rates of one prediction table.
type operatingPoint struct {
	tpr  map[string]float64 // true positive ratio
	efpr map[string]float64 // false positives per hour
	ctr  map[string]float64 // mean cross-trigger rate per hour
}

// PSDSEval computes polyphonic sound detection scores from a mutable set of
// operating points over one immutable ground truth and metadata pair.
type PSDSEval struct {
	dtc  float64
	gtc  float64
	cttc float64

	groundTruth EventTable
	durations   DurationTable
	classes     []string
	nRef        map[string]int
	hours       float64

	ops []operatingPoint
}

// NewPSDSEval creates an evaluator with fixed detection, ground-truth and
// cross-trigger tolerance thresholds. Ground truth and durations are not
// modified after construction.
func NewPSDSEval(dtc, gtc, cttc float64, groundTruth EventTable, durations DurationTable) (*PSDSEval, error) {
	if dtc <= 0 || dtc > 1 || gtc <= 0 || gtc > 1 || cttc <= 0 || cttc > 1 {
		return nil, fmt.Errorf("%w: tolerance thresholds must be in (0, 1]", ErrPSDS)
	}
	if groundTruth.Empty() {
		return nil, fmt.Errorf("%w: empty ground truth", ErrPSDS)
	}
	hours := durations.TotalHours()
	if hours <= 0 {
		return nil, fmt.Errorf("%w: dataset duration metadata missing", ErrPSDS)
	}

	classes := Classes(groundTruth)
	nRef := make(map[string]int, len(classes))
	for _, e := range groundTruth {
		if e.Label != "" {
			nRef[e.Label]++
		}
	}

	return &PSDSEval{
		dtc:         dtc,
		gtc:         gtc,
		cttc:        cttc,
		groundTruth: groundTruth,
		durations:   durations,
		classes:     classes,
		nRef:        nRef,
		hours:       hours,
	}, nil
}

// OperatingPoints returns the number of registered operating points.
func (p *PSDSEval) OperatingPoints() int {
	return len(p.ops)
}

// overlap returns the intersection length of two intervals.
func overlap(aOn, aOff, bOn, bOff float64) float64 {
	return math.Max(0, math.Min(aOff, bOff)-math.Max(aOn, bOn))
}

// AddOperatingPoint registers one prediction table (one decision threshold)
// as an operating point. A detection counts toward true positives when the
// overlapped fraction of its span reaches the detection tolerance and the
// covered fraction of a reference event reaches the ground-truth tolerance;
// rejected detections count as false positives and, where they intersect
// other classes' references beyond the cross-trigger tolerance, as
// cross-triggers.
func (p *PSDSEval) AddOperatingPoint(predictions EventTable) error {
	tps := make(map[string]int, len(p.classes))
	fps := make(map[string]int, len(p.classes))
	cts := make(map[string]map[string]int, len(p.classes))

	for _, name := range p.groundTruth.Filenames() {
		refs := p.groundTruth.FileEvents(name)
		dets := predictions.FileEvents(name)
		p.scoreFile(refs, dets, tps, fps, cts)
	}
	// Detections in clips absent from the ground truth are false positives.
	refNames := make(map[string]bool)
	for _, n := range p.groundTruth.Filenames() {
		refNames[n] = true
	}
	for _, name := range predictions.Filenames() {
		if refNames[name] {
			continue
		}
		for _, det := range predictions.FileEvents(name) {
			if det.Label != "" {
				fps[det.Label]++
			}
		}
	}

	op := operatingPoint{
		tpr:  make(map[string]float64, len(p.classes)),
		efpr: make(map[string]float64, len(p.classes)),
		ctr:  make(map[string]float64, len(p.classes)),
	}
	for _, c := range p.classes {
		if n := p.nRef[c]; n > 0 {
			op.tpr[c] = float64(tps[c]) / float64(n)
		}
		op.efpr[c] = float64(fps[c]) / p.hours

		if len(p.classes) > 1 {
			var sum float64
			for _, k := range p.classes {
				if k != c {
					sum += float64(cts[c][k]) / p.hours
				}
			}
			op.ctr[c] = sum / float64(len(p.classes)-1)
		}
	}
	p.ops = append(p.ops, op)
	return nil
}

// scoreFile applies the intersection criteria to one clip.
func (p *PSDSEval) scoreFile(refs, dets []Event, tps, fps map[string]int, cts map[string]map[string]int) {
	// Group references by class once per clip.
	refByClass := make(map[string][]Event)
	for _, r := range refs {
		refByClass[r.Label] = append(refByClass[r.Label], r)
	}

	supported := make([]bool, len(dets))
	for i, det := range dets {
		dur := det.Duration()
		if dur <= 0 {
			continue
		}
		var inter float64
		for _, r := range refByClass[det.Label] {
			inter += overlap(det.Onset, det.Offset, r.Onset, r.Offset)
		}
		supported[i] = inter/dur >= p.dtc
	}

	// Ground-truth coverage by supported detections.
	for cls, classRefs := range refByClass {
		for _, r := range classRefs {
			dur := r.Duration()
			if dur <= 0 {
				continue
			}
			var inter float64
			for i, det := range dets {
				if supported[i] && det.Label == cls {
					inter += overlap(det.Onset, det.Offset, r.Onset, r.Offset)
				}
			}
			if inter/dur >= p.gtc {
				tps[cls]++
			}
		}
	}

	// Rejected detections: false positives and cross-triggers.
	for i, det := range dets {
		if supported[i] || det.Label == "" {
			continue
		}
		fps[det.Label]++

		dur := det.Duration()
		if dur <= 0 {
			continue
		}
		for cls, classRefs := range refByClass {
			if cls == det.Label {
				continue
			}
			var inter float64
			for _, r := range classRefs {
				inter += overlap(det.Onset, det.Offset, r.Onset, r.Offset)
			}
			if inter/dur >= p.cttc {
				if cts[det.Label] == nil {
					cts[det.Label] = make(map[string]int)
				}
				cts[det.Label][cls]++
			}
		}
	}
}

// Score is one PSDS result: the scalar value plus the effective ROC curve it
// integrates, kept for plotting.
type Score struct {
	Value   float64
	AlphaCT float64
	AlphaST float64
	MaxEFPR float64
	EFPR    []float64
	ETPR    []float64
}

// PSDS integrates the effective true-positive-ratio curve over registered
// operating points up to the false-positive-rate ceiling. alphaCT weights
// cross-trigger rates into the effective FPR; alphaST penalizes
// class-to-class spread of the true positive ratios.
func (p *PSDSEval) PSDS(alphaCT, alphaST, maxEFPR float64) (Score, error) {
	if len(p.ops) == 0 {
		return Score{}, fmt.Errorf("%w: no operating points", ErrPSDS)
	}
	if maxEFPR <= 0 {
		return Score{}, fmt.Errorf("%w: maxEFPR must be positive", ErrPSDS)
	}

	// Per-class ROC as a monotone step envelope over operating points.
	curves := make(map[string]rocCurve, len(p.classes))
	gridSet := map[float64]bool{0: true, maxEFPR: true}
	for _, c := range p.classes {
		var pts rocCurve
		for _, op := range p.ops {
			e := op.efpr[c] + alphaCT*op.ctr[c]
			pts = append(pts, rocPoint{e, op.tpr[c]})
			if e <= maxEFPR {
				gridSet[e] = true
			}
		}
		curves[c] = pts.envelope()
	}

	grid := make([]float64, 0, len(gridSet))
	for e := range gridSet {
		grid = append(grid, e)
	}
	sort.Float64s(grid)

	// Effective TPR at each grid point: class mean minus weighted spread,
	// floored at zero.
	etpr := make([]float64, len(grid))
	tprs := make([]float64, len(p.classes))
	for i, e := range grid {
		for j, c := range p.classes {
			tprs[j] = curves[c].at(e)
		}
		v := stat.Mean(tprs, nil) - alphaST*stat.PopStdDev(tprs, nil)
		etpr[i] = math.Max(0, v)
	}

	// Step integration normalized by the ceiling.
	var area float64
	for i := 0; i+1 < len(grid); i++ {
		area += (grid[i+1] - grid[i]) * etpr[i]
	}

	return Score{
		Value:   area / maxEFPR,
		AlphaCT: alphaCT,
		AlphaST: alphaST,
		MaxEFPR: maxEFPR,
		EFPR:    grid,
		ETPR:    etpr,
	}, nil
}

// rocPoint is one (effective FPR, TPR) sample.
type rocPoint struct {
	efpr float64
	tpr  float64
}

type rocCurve []rocPoint

// envelope sorts the curve by FPR and makes the TPR monotone non-decreasing,
// starting from an implicit origin.
func (c rocCurve) envelope() rocCurve {
	pts := append(rocCurve{{0, 0}}, c...)
	sort.Slice(pts, func(i, j int) bool { return pts[i].efpr < pts[j].efpr })
	best := 0.0
	for i := range pts {
		best = math.Max(best, pts[i].tpr)
		pts[i].tpr = best
	}
	return pts
}

// at returns the envelope TPR at the largest sampled FPR not exceeding e.
func (c rocCurve) at(e float64) float64 {
	var v float64
	for _, p := range c {
		if p.efpr > e {
			break
		}
		v = p.tpr
	}
	return v
}

// PSDSScore computes the three standard weighting regimes (0,0), (1,0) and
// (0,1) with the default ceiling, logging each value. Evaluator errors are
// logged and skipped so one failing regime does not abort the run. When
// rocBase is non-empty, one ROC plot per regime is written to
// {base}_{alphaCT}_{alphaST}_100{ext}, creating directories as needed.
func PSDSScore(p *PSDSEval, rocBase string, logger *slog.Logger) {
	regimes := []struct{ alphaCT, alphaST float64 }{
		{0, 0},
		{1, 0},
		{0, 1},
	}

	if rocBase != "" {
		if dir := filepath.Dir(rocBase); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Error("creating roc output directory", "dir", dir, "err", err)
				rocBase = ""
			}
		}
	}

	for _, r := range regimes {
		score, err := p.PSDS(r.alphaCT, r.alphaST, DefaultMaxEFPR)
		if err != nil {
			logger.Error("psds score failed",
				"alpha_ct", r.alphaCT, "alpha_st", r.alphaST, "err", err)
			continue
		}
		logger.Info(fmt.Sprintf("PSD-Score (%g, %g, %g): %.5f",
			r.alphaCT, r.alphaST, DefaultMaxEFPR, score.Value))

		if rocBase == "" {
			continue
		}
		ext := filepath.Ext(rocBase)
		base := strings.TrimSuffix(rocBase, ext)
		name := fmt.Sprintf("%s_%g_%g_%g%s", base, r.alphaCT, r.alphaST, DefaultMaxEFPR, ext)
		if err := PlotPSDROC(score, name); err != nil {
			logger.Error("writing roc plot", "file", name, "err", err)
		}
	}
}
