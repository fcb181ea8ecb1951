package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// echartsAssetsHost serves the echarts JavaScript for rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// WriteHTML renders the trace as a standalone interactive HTML page.
func (t *ScoreTrace) WriteHTML(w io.Writer) error {
	samples := t.Samples()
	if len(samples) == 0 {
		return ErrEmptyTrace
	}

	frames := make([]int, len(samples))
	scores := make([]opts.LineData, len(samples))
	threshold := make([]opts.LineData, len(samples))
	confirmed := make([]opts.LineData, len(samples))
	matches := 0
	for i, s := range samples {
		frames[i] = s.Frame
		scores[i] = opts.LineData{Value: s.Score, Name: s.Reason}
		threshold[i] = opts.LineData{Value: t.threshold}
		if s.Confirmed {
			confirmed[i] = opts.LineData{Value: s.Score}
			matches++
		} else {
			confirmed[i] = opts.LineData{Value: "-"}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: t.title, Width: "100%", Height: "480px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: t.title, Subtitle: fmt.Sprintf("frames=%d confirmed=%d threshold=%.2f", len(samples), matches, t.threshold)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Confidence", Min: 0, Max: 1}),
	)
	line.SetXAxis(frames).
		AddSeries("score", scores).
		AddSeries("threshold", threshold, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})).
		AddSeries("confirmed", confirmed, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
