package output

import (
	"fmt"
	"os"
	"path/filepath"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/domain/entities"
)

const (
	chartWidth  = 1200
	chartHeight = 400
	chartTheme  = "light"
)

// WriteCharts renders the PNG charts that apply to a run into dir and returns their paths
func WriteCharts(run *dto.PipelineRun, dir string) ([]string, error) {
	type chart struct {
		name   string
		render func() ([]byte, error)
	}
	var pending []chart

	if len(run.Volume) > 0 {
		pending = append(pending, chart{"volume_before_after.png", func() ([]byte, error) { return VolumeChart(run.Volume) }})
	}
	if run.Heatmap != nil && len(run.Heatmap.Months) > 0 {
		pending = append(pending, chart{"factor_per_month.png", func() ([]byte, error) { return FactorChart(run.Heatmap) }})
	}
	if run.Smoothing != nil {
		if series, ok := run.Smoothing.MostAnomalous(); ok {
			pending = append(pending, chart{"smoothing_example.png", func() ([]byte, error) { return SmoothingChart(series) }})
		}
	}
	if run.Analysis != nil && len(run.Analysis.Trend) > 0 {
		pending = append(pending, chart{"market_trend.png", func() ([]byte, error) { return TrendChart(run.Analysis) }})
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	paths := make([]string, 0, len(pending))
	for _, c := range pending {
		buf, err := c.render()
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, c.name)
		if err := os.WriteFile(path, buf, 0644); err != nil {
			return paths, fmt.Errorf("failed to write chart %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// VolumeChart compares the monthly volume before and after reconciliation
func VolumeChart(points []dto.VolumePoint) ([]byte, error) {
	labels := make([]string, len(points))
	original := make([]float64, len(points))
	reconciled := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Month.Label()
		original[i] = p.Original
		reconciled[i] = p.Reconciled
	}
	return renderLines("Volume before and after reconciliation", labels,
		[][]float64{original, reconciled}, []string{"Forecast", "Reconciled"})
}

// FactorChart plots the mean reconciliation factor per month
func FactorChart(heatmap *dto.FactorHeatmap) ([]byte, error) {
	return renderLines("Mean correction factor per month", monthLabels(heatmap.Months),
		[][]float64{heatmap.MonthlyMean()}, []string{"Factor"})
}

// SmoothingChart plots one series with its moving average and smoothed values
func SmoothingChart(series entities.SmoothedSeries) ([]byte, error) {
	labels := make([]string, len(series.Points))
	values := make([]float64, len(series.Points))
	averages := make([]float64, len(series.Points))
	smoothed := make([]float64, len(series.Points))
	for i, p := range series.Points {
		labels[i] = p.Month.Label()
		values[i] = p.Value
		averages[i] = p.MovingAverage
		smoothed[i] = p.Smoothed
	}
	return renderLines(fmt.Sprintf("Outlier smoothing: %s", series.Key), labels,
		[][]float64{values, averages, smoothed}, []string{"Observed", "Moving average", "Smoothed"})
}

// TrendChart plots the market total per month with its rolling mean
func TrendChart(report *dto.AnalysisReport) ([]byte, error) {
	labels := make([]string, len(report.Trend))
	totals := make([]float64, len(report.Trend))
	rolling := make([]float64, len(report.Trend))
	for i, p := range report.Trend {
		labels[i] = p.Month.Label()
		totals[i] = p.Total
		rolling[i] = p.RollingMean
	}
	return renderLines("Market trend", labels,
		[][]float64{totals, rolling}, []string{"Total", fmt.Sprintf("Rolling mean (%d)", report.TrendWindow)})
}

func renderLines(title string, labels []string, values [][]float64, legend []string) ([]byte, error) {
	p, err := charts.LineRender(
		values,
		charts.PNGTypeOption(),
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legend, charts.PositionRight),
		charts.ThemeOptionFunc(chartTheme),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render %q chart: %w", title, err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate %q chart bytes: %w", title, err)
	}
	return buf, nil
}

func monthLabels(months []entities.MonthCode) []string {
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.Label()
	}
	return labels
}
