package dto

import "github.com/vsinha/planrecon/pkg/domain/entities"

// AnalysisReport contains the descriptive statistics of a demand history
type AnalysisReport struct {
	Trend       []TrendPoint      `json:"trend"`
	TrendWindow int               `json:"trend_window"`
	Volatility  []VolatilityEntry `json:"volatility"`
	TopGroups   []GroupVolume     `json:"top_groups"`
	TotalVolume float64           `json:"total_volume"`
	Excluded    int               `json:"excluded_records"`
}

// TrendPoint is the market total of one month with its rolling mean
type TrendPoint struct {
	Month       entities.MonthCode `json:"month_code"`
	Total       float64            `json:"total"`
	RollingMean float64            `json:"rolling_mean"`
}

// VolatilityEntry ranks a series by its coefficient of variation
type VolatilityEntry struct {
	Key                    string  `json:"key"`
	Mean                   float64 `json:"mean"`
	StdDev                 float64 `json:"std_dev"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	Months                 int     `json:"months"`
}

// GroupVolume is the total volume of one series key
type GroupVolume struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
	Share float64 `json:"share"`
}

// VolumePoint compares original and reconciled volume for one month
type VolumePoint struct {
	Month      entities.MonthCode `json:"month_code"`
	Original   float64            `json:"original"`
	Reconciled float64            `json:"reconciled"`
}

// FactorHeatmap is the mean reconciliation factor per group and month.
// Present marks the cells that carry a factor.
type FactorHeatmap struct {
	Groups  []entities.GroupKey  `json:"groups"`
	Months  []entities.MonthCode `json:"months"`
	Values  [][]float64          `json:"values"`
	Present [][]bool             `json:"present"`
}

// MonthlyMean returns the mean factor of every month column over the present cells
func (h *FactorHeatmap) MonthlyMean() []float64 {
	means := make([]float64, len(h.Months))
	for j := range h.Months {
		var sum float64
		n := 0
		for i := range h.Groups {
			if h.Present[i][j] {
				sum += h.Values[i][j]
				n++
			}
		}
		if n > 0 {
			means[j] = sum / float64(n)
		}
	}
	return means
}
