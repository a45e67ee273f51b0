package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes a one-page HTML bar chart of the report's final counts.
func (r *Report) RenderChart(w io.Writer, title string) error {
	lanes := make([]string, 0, len(r.Entries))
	data := make([]opts.BarData, 0, len(r.Entries))
	for _, e := range r.Entries {
		lanes = append(lanes, e.Lane)
		data = append(data, opts.BarData{Value: e.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("total vehicles=%d", r.Total()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lane"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "vehicles"}),
	)
	bar.SetXAxis(lanes).AddSeries("vehicles", data)

	return bar.Render(w)
}

// RenderChartFile writes the chart to path, replacing any existing file.
func (r *Report) RenderChartFile(path, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := r.RenderChart(f, title); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart: %w", err)
	}
	return nil
}
