package tabular

import (
	"fmt"
	"strconv"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	"github.com/vsinha/planrecon/pkg/domain/services"
)

// Additional output columns beyond the canonical field set
const (
	FieldBottomUpSum       = "bottom_up_sum"
	FieldRecordCount       = "record_count"
	FieldWithinTolerance   = "within_tolerance"
	FieldSeriesKey         = "series_key"
	FieldValue             = "value"
	FieldMovingAverage     = "moving_average"
	FieldRelativeDeviation = "relative_deviation"
	FieldSmoothed          = "smoothed"
	FieldAnomaly           = "anomaly"
	FieldRule              = "rule"
)

// Table is a format-neutral dataset. Cells hold string, int, int64, float64 or bool.
type Table struct {
	Header []string
	Rows   [][]any
}

// ReconciledTable lays out reconciled records with the canonical output fields
func ReconciledTable(records []entities.ReconciledRecord) Table {
	t := Table{Header: services.ReconciledFields, Rows: make([][]any, len(records))}
	for i, r := range records {
		t.Rows[i] = []any{
			string(r.ArticleID),
			string(r.GroupKey),
			r.CategoryTag,
			int(r.MonthCode),
			float64(r.Quantity),
			r.Factor,
			r.ScaledQuantity,
		}
	}
	return t
}

// FactorTable lays out the per-(group, month) factors
func FactorTable(factors []entities.ReconciliationFactor) Table {
	t := Table{
		Header: []string{services.FieldGroupKey, services.FieldMonthCode, FieldBottomUpSum, services.FieldTargetQuantity, services.FieldFactor},
		Rows:   make([][]any, len(factors)),
	}
	for i, f := range factors {
		t.Rows[i] = []any{string(f.GroupKey), int(f.MonthCode), float64(f.BottomUpSum), float64(f.TargetQuantity), f.Factor}
	}
	return t
}

// DiscrepancyTable lays out the verification report
func DiscrepancyTable(discrepancies []entities.Discrepancy) Table {
	header := append(append([]string{}, services.DiscrepancyFields...), FieldRecordCount, FieldWithinTolerance)
	t := Table{Header: header, Rows: make([][]any, len(discrepancies))}
	for i, d := range discrepancies {
		t.Rows[i] = []any{
			string(d.GroupKey),
			int(d.MonthCode),
			d.ReconciledSum,
			float64(d.TargetQuantity),
			d.AbsoluteDifference,
			d.RecordCount,
			d.WithinTolerance,
		}
	}
	return t
}

// PlanTable lays out plan targets in long format
func PlanTable(targets []entities.PlanTarget) Table {
	t := Table{Header: services.PlanFields, Rows: make([][]any, len(targets))}
	for i, p := range targets {
		t.Rows[i] = []any{string(p.GroupKey), int(p.MonthCode), float64(p.TargetQuantity)}
	}
	return t
}

// SmoothedTable lays out every point of every smoothed series
func SmoothedTable(series []entities.SmoothedSeries) Table {
	t := Table{Header: []string{
		FieldSeriesKey, services.FieldMonthCode, FieldValue, FieldMovingAverage,
		FieldRelativeDeviation, FieldSmoothed, FieldAnomaly, FieldRule,
	}}
	for _, s := range series {
		for _, p := range s.Points {
			t.Rows = append(t.Rows, []any{
				s.Key, int(p.Month), p.Value, p.MovingAverage, p.RelativeDeviation, p.Smoothed, p.Anomaly, p.Rule.String(),
			})
		}
	}
	return t
}

// FormatCell renders a cell value as text
func FormatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// StringRows renders every cell of the table as text
func (t Table) StringRows() [][]string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = FormatCell(v)
		}
	}
	return rows
}
