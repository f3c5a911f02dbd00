package tabular

import (
	"github.com/vsinha/planrecon/pkg/domain/services"
)

// Horizon names the month and quantity columns of one forecast horizon.
// Workbooks that carry several horizons side by side yield one record per
// horizon and row.
type Horizon struct {
	MonthColumn    string `yaml:"month_column" json:"month_column" validate:"required"`
	QuantityColumn string `yaml:"quantity_column" json:"quantity_column" validate:"required"`
}

// ForecastLayout maps a forecast dataset onto the canonical fields
type ForecastLayout struct {
	Columns  services.ColumnMapping
	Horizons []Horizon
}

// PlanLayout maps a long-format plan dataset onto the canonical fields
type PlanLayout struct {
	Columns services.ColumnMapping
	// UnitMultiplier scales every target, e.g. 1000 for plans kept in thousands
	UnitMultiplier float64
}

// WidePlanLayout describes a plan sheet with one row per group and twelve
// month columns per year.
type WidePlanLayout struct {
	// GroupColumn is the zero-based column holding the group key
	GroupColumn int
	// YearBlocks maps a year to the zero-based column of its January
	YearBlocks map[int]int
	// SkipLabels are group cell values marking header rows (case-insensitive)
	SkipLabels []string
	// UnitMultiplier scales every target
	UnitMultiplier float64
}

// DefaultWidePlanLayout returns the layout of the annual customer program
// workbook: groups in column A, 2025 in E-P, 2026 in R-AC, 2027 in AE-AP and
// 2028 in AR-BC.
func DefaultWidePlanLayout() WidePlanLayout {
	return WidePlanLayout{
		GroupColumn: 0,
		YearBlocks: map[int]int{
			2025: 4,
			2026: 17,
			2027: 30,
			2028: 43,
		},
		SkipLabels:     []string{"baumarkt", "group_key", "customer"},
		UnitMultiplier: 1,
	}
}

func multiplier(m float64) float64 {
	if m == 0 {
		return 1
	}
	return m
}
