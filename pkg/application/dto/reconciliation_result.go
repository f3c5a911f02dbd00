package dto

import "github.com/vsinha/planrecon/pkg/domain/entities"

// ReconciliationResult contains the complete output of a reconciliation run
type ReconciliationResult struct {
	Records []entities.ReconciledRecord     `json:"records"`
	Factors []entities.ReconciliationFactor `json:"factors"`
	Stats   ReconciliationStats             `json:"stats"`
}

// ReconciliationStats carries the diagnostics of a reconciliation run.
// Data-quality findings are reported here rather than as errors.
type ReconciliationStats struct {
	ForecastRecords   int `json:"forecast_records"`
	ExcludedRecords   int `json:"excluded_records"`
	ForecastPairs     int `json:"forecast_pairs"`
	PlanPairs         int `json:"plan_pairs"`
	JoinedPairs       int `json:"joined_pairs"`
	ForecastOnlyPairs int `json:"forecast_only_pairs"`
	PlanOnlyPairs     int `json:"plan_only_pairs"`

	ArithmeticMeanFactor float64    `json:"arithmetic_mean_factor"`
	WeightedFactor       float64    `json:"weighted_factor"`
	PlausibilityRange    [2]float64 `json:"plausibility_range"`
	PlausibilityWarning  bool       `json:"plausibility_warning"`

	FallbackRecords int `json:"fallback_records"`

	TotalBottomUp float64 `json:"total_bottom_up"`
	TotalTarget   float64 `json:"total_target"`
	TotalOriginal float64 `json:"total_original"`
	TotalScaled   int64   `json:"total_scaled"`
	RoundingMode  string  `json:"rounding_mode"`
}

// FactorIndex maps each joined (group, month) key to its factor
func (r *ReconciliationResult) FactorIndex() map[entities.Key]entities.ReconciliationFactor {
	index := make(map[entities.Key]entities.ReconciliationFactor, len(r.Factors))
	for _, f := range r.Factors {
		index[f.Key()] = f
	}
	return index
}
