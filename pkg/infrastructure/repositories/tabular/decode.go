package tabular

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/domain/services"
)

// Reject reasons reported in a LoadReport
const (
	ReasonMissingGroup    = "missing group_key"
	ReasonInvalidMonth    = "invalid month_code"
	ReasonInvalidQuantity = "invalid quantity"
	ReasonInvalidFactor   = "invalid factor"
	ReasonHeaderRow       = "header row"
	ReasonBlankRow        = "blank row"
)

var validator = services.NewSchemaValidator()

// DecodeForecast converts header and rows into forecast records. Rows with an
// empty group, an unparseable month or an invalid quantity are excluded and
// counted in the report.
func DecodeForecast(dataset string, header []string, rows [][]string, layout ForecastLayout) ([]entities.ForecastRecord, *repositories.LoadReport, error) {
	identity, err := validator.ResolveColumns(dataset, header,
		[]string{services.FieldArticleID, services.FieldGroupKey, services.FieldCategoryTag}, layout.Columns)
	if err != nil {
		return nil, nil, err
	}

	horizons, err := resolveHorizons(dataset, header, layout)
	if err != nil {
		return nil, nil, err
	}

	report := &repositories.LoadReport{Dataset: dataset}
	records := make([]entities.ForecastRecord, 0, len(rows)*len(horizons))

	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		for _, h := range horizons {
			report.RowsRead++

			group, err := entities.NormalizeGroupKey(cell(row, identity[services.FieldGroupKey]))
			if err != nil {
				report.Reject(ReasonMissingGroup)
				continue
			}
			month, err := entities.ParseMonthCode(cell(row, h[services.FieldMonthCode]))
			if err != nil {
				report.Reject(ReasonInvalidMonth)
				continue
			}
			qty, err := parseQuantity(cell(row, h[services.FieldQuantity]))
			if err != nil {
				report.Reject(ReasonInvalidQuantity)
				continue
			}

			records = append(records, entities.ForecastRecord{
				ArticleID:   entities.ArticleID(strings.TrimSpace(cell(row, identity[services.FieldArticleID]))),
				GroupKey:    group,
				CategoryTag: strings.TrimSpace(cell(row, identity[services.FieldCategoryTag])),
				MonthCode:   month,
				Quantity:    entities.Quantity(qty),
			})
			report.RowsAccepted++
		}
	}

	return records, report, nil
}

func resolveHorizons(dataset string, header []string, layout ForecastLayout) ([]map[string]int, error) {
	required := []string{services.FieldMonthCode, services.FieldQuantity}
	if len(layout.Horizons) == 0 {
		cols, err := validator.ResolveColumns(dataset, header, required, layout.Columns)
		if err != nil {
			return nil, err
		}
		return []map[string]int{cols}, nil
	}

	horizons := make([]map[string]int, 0, len(layout.Horizons))
	for _, h := range layout.Horizons {
		mapping := services.ColumnMapping{
			services.FieldMonthCode: h.MonthColumn,
			services.FieldQuantity:  h.QuantityColumn,
		}
		cols, err := validator.ResolveColumns(dataset, header, required, mapping)
		if err != nil {
			return nil, err
		}
		horizons = append(horizons, cols)
	}
	return horizons, nil
}

// DecodePlan converts a long-format plan into targets. Duplicate (group, month)
// targets are summed and counted as merged.
func DecodePlan(dataset string, header []string, rows [][]string, layout PlanLayout) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	cols, err := validator.ResolveColumns(dataset, header, services.PlanFields, layout.Columns)
	if err != nil {
		return nil, nil, err
	}

	scale := multiplier(layout.UnitMultiplier)
	report := &repositories.LoadReport{Dataset: dataset}
	targets := make([]entities.PlanTarget, 0, len(rows))

	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		report.RowsRead++

		group, err := entities.NormalizeGroupKey(cell(row, cols[services.FieldGroupKey]))
		if err != nil {
			report.Reject(ReasonMissingGroup)
			continue
		}
		month, err := entities.ParseMonthCode(cell(row, cols[services.FieldMonthCode]))
		if err != nil {
			report.Reject(ReasonInvalidMonth)
			continue
		}
		qty, err := parseQuantity(cell(row, cols[services.FieldTargetQuantity]))
		if err != nil {
			report.Reject(ReasonInvalidQuantity)
			continue
		}

		targets = append(targets, entities.PlanTarget{GroupKey: group, MonthCode: month, TargetQuantity: entities.Quantity(qty * scale)})
		report.RowsAccepted++
	}

	collapsed, merged := entities.CollapsePlanTargets(targets)
	report.Merged = merged
	return collapsed, report, nil
}

// DecodeReconciled reads reconciliation output back for verification
func DecodeReconciled(dataset string, header []string, rows [][]string, mapping services.ColumnMapping) ([]entities.ReconciledRecord, *repositories.LoadReport, error) {
	cols, err := validator.ResolveColumns(dataset, header, services.ReconciledFields, mapping)
	if err != nil {
		return nil, nil, err
	}

	report := &repositories.LoadReport{Dataset: dataset}
	records := make([]entities.ReconciledRecord, 0, len(rows))

	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		report.RowsRead++

		group, err := entities.NormalizeGroupKey(cell(row, cols[services.FieldGroupKey]))
		if err != nil {
			report.Reject(ReasonMissingGroup)
			continue
		}
		month, err := entities.ParseMonthCode(cell(row, cols[services.FieldMonthCode]))
		if err != nil {
			report.Reject(ReasonInvalidMonth)
			continue
		}
		qty, err := parseQuantity(cell(row, cols[services.FieldQuantity]))
		if err != nil {
			report.Reject(ReasonInvalidQuantity)
			continue
		}
		factor, err := ParseNumber(cell(row, cols[services.FieldFactor]))
		if err != nil || factor < 0 {
			report.Reject(ReasonInvalidFactor)
			continue
		}
		scaled, err := ParseNumber(cell(row, cols[services.FieldScaledQuantity]))
		if err != nil || scaled != math.Trunc(scaled) {
			report.Reject(ReasonInvalidQuantity)
			continue
		}

		records = append(records, entities.ReconciledRecord{
			ForecastRecord: entities.ForecastRecord{
				ArticleID:   entities.ArticleID(strings.TrimSpace(cell(row, cols[services.FieldArticleID]))),
				GroupKey:    group,
				CategoryTag: strings.TrimSpace(cell(row, cols[services.FieldCategoryTag])),
				MonthCode:   month,
				Quantity:    entities.Quantity(qty),
			},
			Factor:         factor,
			ScaledQuantity: int64(scaled),
		})
		report.RowsAccepted++
	}

	return records, report, nil
}

// DecodeWidePlan converts a wide plan sheet into long targets. Blank month
// cells count as zero; label rows and rows without a group are skipped.
func DecodeWidePlan(dataset string, rows [][]string, layout WidePlanLayout) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	if len(layout.YearBlocks) == 0 {
		return nil, nil, fmt.Errorf("%s: wide plan layout has no year blocks", dataset)
	}

	years := make([]int, 0, len(layout.YearBlocks))
	for year := range layout.YearBlocks {
		if _, err := entities.NewMonthCode(year, time.January); err != nil {
			return nil, nil, fmt.Errorf("%s: year block %d: %w", dataset, year, err)
		}
		years = append(years, year)
	}
	sort.Ints(years)

	skip := make(map[string]struct{}, len(layout.SkipLabels))
	for _, label := range layout.SkipLabels {
		skip[strings.ToUpper(strings.TrimSpace(label))] = struct{}{}
	}

	scale := multiplier(layout.UnitMultiplier)
	report := &repositories.LoadReport{Dataset: dataset}
	var targets []entities.PlanTarget

	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		report.RowsRead++

		group, err := entities.NormalizeGroupKey(cell(row, layout.GroupColumn))
		if err != nil {
			report.Reject(ReasonBlankRow)
			continue
		}
		if _, ok := skip[string(group)]; ok {
			report.Reject(ReasonHeaderRow)
			continue
		}

		// A row is taken whole or not at all
		accepted := true
		rowTargets := make([]entities.PlanTarget, 0, 12*len(years))
		for _, year := range years {
			first := layout.YearBlocks[year]
			for m := 0; m < 12; m++ {
				raw := strings.TrimSpace(cell(row, first+m))
				var qty float64
				if raw != "" {
					qty, err = parseQuantity(raw)
					if err != nil {
						accepted = false
						continue
					}
				}
				month, _ := entities.NewMonthCode(year, time.Month(m+1))
				rowTargets = append(rowTargets, entities.PlanTarget{GroupKey: group, MonthCode: month, TargetQuantity: entities.Quantity(qty * scale)})
			}
		}
		if !accepted {
			report.Reject(ReasonInvalidQuantity)
			continue
		}
		report.RowsAccepted++
		targets = append(targets, rowTargets...)
	}

	collapsed, merged := entities.CollapsePlanTargets(targets)
	report.Merged = merged
	return collapsed, report, nil
}

// ParseNumber parses a decimal number written with either a dot or a comma
// as decimal separator. Thousands separators are accepted only when both
// appear: a lone comma is always the decimal separator, so "1,000" is 1.0,
// and several commas without a dot ("1,000,000") are rejected.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func parseQuantity(raw string) (float64, error) {
	v, err := ParseNumber(raw)
	if err != nil {
		return 0, err
	}
	if err := entities.ValidateQuantity(v); err != nil {
		return 0, err
	}
	return v, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
