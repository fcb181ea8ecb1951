package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrEmptyTrace is returned when rendering a trace with no samples.
var ErrEmptyTrace = errors.New("score trace is empty")

var (
	scoreColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	confirmColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// newPlot lays out score, threshold and confirmed frames on one chart.
func (t *ScoreTrace) newPlot() (*plot.Plot, error) {
	samples := t.Samples()
	if len(samples) == 0 {
		return nil, ErrEmptyTrace
	}

	p := plot.New()
	p.Title.Text = t.title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Confidence"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Add(plotter.NewGrid())

	scores := make(plotter.XYs, 0, len(samples))
	confirmed := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		scores = append(scores, plotter.XY{X: float64(s.Frame), Y: s.Score})
		if s.Confirmed {
			confirmed = append(confirmed, plotter.XY{X: float64(s.Frame), Y: s.Score})
		}
	}

	scoreLine, err := plotter.NewLine(scores)
	if err != nil {
		return nil, fmt.Errorf("score line: %w", err)
	}
	scoreLine.Color = scoreColor
	scoreLine.Width = vg.Points(1.5)
	p.Add(scoreLine)
	p.Legend.Add("score", scoreLine)

	last := float64(samples[len(samples)-1].Frame)
	thresholdLine, err := plotter.NewLine(plotter.XYs{{X: 0, Y: t.threshold}, {X: last, Y: t.threshold}})
	if err != nil {
		return nil, fmt.Errorf("threshold line: %w", err)
	}
	thresholdLine.Color = thresholdColor
	thresholdLine.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(thresholdLine)
	p.Legend.Add(fmt.Sprintf("threshold %.2f", t.threshold), thresholdLine)

	if len(confirmed) > 0 {
		marks, err := plotter.NewScatter(confirmed)
		if err != nil {
			return nil, fmt.Errorf("confirmed marks: %w", err)
		}
		marks.GlyphStyle.Color = confirmColor
		marks.GlyphStyle.Radius = vg.Points(3)
		p.Add(marks)
		p.Legend.Add("confirmed", marks)
	}
	p.Legend.Top = true
	return p, nil
}

// WritePNG renders the trace as a PNG image to w.
func (t *ScoreTrace) WritePNG(w io.Writer) error {
	p, err := t.newPlot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG renders the trace to a PNG file.
func (t *ScoreTrace) SavePNG(path string) error {
	p, err := t.newPlot()
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
