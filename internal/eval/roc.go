package eval

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotPSDROC renders the effective ROC curve of one PSDS score as a step
// plot and saves it to filename. The image format follows the file
// extension.
func PlotPSDROC(score Score, filename string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("PSD-ROC (alpha_ct=%g, alpha_st=%g): %.5f",
		score.AlphaCT, score.AlphaST, score.Value)
	p.X.Label.Text = "eFPR (per hour)"
	p.Y.Label.Text = "eTPR"
	p.X.Max = score.MaxEFPR
	p.Y.Min = 0
	p.Y.Max = 1

	pts := make(plotter.XYs, len(score.EFPR))
	for i := range score.EFPR {
		pts[i].X = score.EFPR[i]
		pts[i].Y = score.ETPR[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building roc line: %w", err)
	}
	line.StepStyle = plotter.PostStep
	p.Add(line, plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("saving roc plot: %w", err)
	}
	return nil
}
