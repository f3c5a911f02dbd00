package output

import (
	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
	xlsxrepo "github.com/vsinha/planrecon/pkg/infrastructure/repositories/xlsx"
)

// ReportTables lays out the summary sections of a run as named tables
func ReportTables(run *dto.PipelineRun) []xlsxrepo.Sheet {
	var sheets []xlsxrepo.Sheet

	if len(run.Loads) > 0 {
		sheets = append(sheets, xlsxrepo.Sheet{Name: "loads", Table: loadTable(run)})
	}
	if run.Reconciliation != nil {
		sheets = append(sheets, xlsxrepo.Sheet{Name: "reconciliation", Table: reconciliationTable(run.Reconciliation)})
	}
	if len(run.Volume) > 0 {
		sheets = append(sheets, xlsxrepo.Sheet{Name: "volume", Table: volumeTable(run.Volume)})
	}
	if run.Heatmap != nil && len(run.Heatmap.Groups) > 0 {
		sheets = append(sheets, xlsxrepo.Sheet{Name: "factor_heatmap", Table: heatmapTable(run.Heatmap)})
	}
	if run.Verification != nil {
		sheets = append(sheets, xlsxrepo.Sheet{Name: "verification", Table: verificationTable(run.Verification)})
	}
	if run.Smoothing != nil {
		sheets = append(sheets, xlsxrepo.Sheet{Name: "anomalies", Table: anomalyTable(run.Smoothing)})
	}
	if run.Analysis != nil {
		sheets = append(sheets,
			xlsxrepo.Sheet{Name: "trend", Table: trendTable(run.Analysis)},
			xlsxrepo.Sheet{Name: "volatility", Table: volatilityTable(run.Analysis)},
			xlsxrepo.Sheet{Name: "top_groups", Table: topGroupsTable(run.Analysis)},
		)
	}
	return sheets
}

func loadTable(run *dto.PipelineRun) tabular.Table {
	t := tabular.Table{Header: []string{"dataset", "path", "rows_read", "rows_accepted", "rows_rejected", "merged"}}
	for _, l := range run.Loads {
		t.Rows = append(t.Rows, []any{l.Dataset, l.Path, l.RowsRead, l.RowsAccepted, l.RowsRejected, l.Merged})
	}
	return t
}

func reconciliationTable(r *dto.ReconciliationResult) tabular.Table {
	s := r.Stats
	return tabular.Table{
		Header: []string{"metric", "value"},
		Rows: [][]any{
			{"forecast_records", s.ForecastRecords},
			{"excluded_records", s.ExcludedRecords},
			{"joined_pairs", s.JoinedPairs},
			{"forecast_only_pairs", s.ForecastOnlyPairs},
			{"plan_only_pairs", s.PlanOnlyPairs},
			{"arithmetic_mean_factor", s.ArithmeticMeanFactor},
			{"weighted_factor", s.WeightedFactor},
			{"plausibility_warning", s.PlausibilityWarning},
			{"fallback_records", s.FallbackRecords},
			{"total_original", s.TotalOriginal},
			{"total_scaled", s.TotalScaled},
			{"rounding_mode", s.RoundingMode},
		},
	}
}

func volumeTable(points []dto.VolumePoint) tabular.Table {
	t := tabular.Table{Header: []string{"month_code", "original", "reconciled"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []any{int(p.Month), p.Original, p.Reconciled})
	}
	return t
}

func heatmapTable(h *dto.FactorHeatmap) tabular.Table {
	header := []string{"group_key"}
	for _, m := range h.Months {
		header = append(header, m.String())
	}
	t := tabular.Table{Header: header}
	for i, g := range h.Groups {
		row := []any{string(g)}
		for j := range h.Months {
			if h.Present[i][j] {
				row = append(row, h.Values[i][j])
			} else {
				row = append(row, nil)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func verificationTable(r *dto.VerificationReport) tabular.Table {
	s := r.Summary
	return tabular.Table{
		Header: []string{"metric", "value"},
		Rows: [][]any{
			{"verdict", string(r.Verdict)},
			{"pairs_checked", s.PairsChecked},
			{"unexplained_targets", s.UnexplainedTargets},
			{"pairs_outside_tolerance", s.PairsOutsideTolerance},
			{"total_absolute_difference", s.TotalAbsoluteDifference},
			{"max_absolute_difference", s.MaxAbsoluteDifference},
			{"tolerance_mode", s.ToleranceMode},
			{"tolerance", s.Tolerance},
		},
	}
}

func anomalyTable(r *dto.SmoothingResult) tabular.Table {
	t := tabular.Table{Header: []string{
		tabular.FieldSeriesKey, "month_code", tabular.FieldValue, tabular.FieldMovingAverage,
		tabular.FieldRelativeDeviation, tabular.FieldSmoothed, tabular.FieldRule,
	}}
	for _, s := range r.Series {
		for _, p := range s.Points {
			if !p.Anomaly {
				continue
			}
			t.Rows = append(t.Rows, []any{s.Key, int(p.Month), p.Value, p.MovingAverage, p.RelativeDeviation, p.Smoothed, p.Rule.String()})
		}
	}
	return t
}

func trendTable(r *dto.AnalysisReport) tabular.Table {
	t := tabular.Table{Header: []string{"month_code", "total", "rolling_mean"}}
	for _, p := range r.Trend {
		t.Rows = append(t.Rows, []any{int(p.Month), p.Total, p.RollingMean})
	}
	return t
}

func volatilityTable(r *dto.AnalysisReport) tabular.Table {
	t := tabular.Table{Header: []string{"key", "mean", "std_dev", "coefficient_of_variation", "months"}}
	for _, v := range r.Volatility {
		t.Rows = append(t.Rows, []any{v.Key, v.Mean, v.StdDev, v.CoefficientOfVariation, v.Months})
	}
	return t
}

func topGroupsTable(r *dto.AnalysisReport) tabular.Table {
	t := tabular.Table{Header: []string{"key", "total", "share"}}
	for _, g := range r.TopGroups {
		t.Rows = append(t.Rows, []any{g.Key, g.Total, g.Share})
	}
	return t
}
