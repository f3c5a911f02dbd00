package repositories

import "github.com/vsinha/planrecon/pkg/domain/entities"

// LoadReport summarizes rows excluded while normalizing an input dataset
type LoadReport struct {
	Dataset      string         `json:"dataset"`
	Path         string         `json:"path"`
	RowsRead     int            `json:"rows_read"`
	RowsAccepted int            `json:"rows_accepted"`
	RowsRejected int            `json:"rows_rejected"`
	Reasons      map[string]int `json:"reasons,omitempty"`
	Merged       int            `json:"merged,omitempty"`
}

// Reject counts an excluded row under the given reason
func (r *LoadReport) Reject(reason string) {
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	r.RowsRejected++
	r.Reasons[reason]++
}

// ForecastSource reads granular forecast (or history) records from a dataset
type ForecastSource interface {
	LoadForecast(path string) ([]entities.ForecastRecord, *LoadReport, error)
}

// PlanSource reads plan targets from a dataset
type PlanSource interface {
	LoadPlan(path string) ([]entities.PlanTarget, *LoadReport, error)
}

// ReconciledSource reads previously written reconciliation output
type ReconciledSource interface {
	LoadReconciled(path string) ([]entities.ReconciledRecord, *LoadReport, error)
}

// RecordSink writes result datasets
type RecordSink interface {
	WriteReconciled(path string, records []entities.ReconciledRecord) error
	WriteFactors(path string, factors []entities.ReconciliationFactor) error
	WriteDiscrepancies(path string, discrepancies []entities.Discrepancy) error
	WritePlan(path string, targets []entities.PlanTarget) error
	WriteSmoothed(path string, series []entities.SmoothedSeries) error
}

// WidePlanSource reads plan sheets laid out with one row per group and month columns per year
type WidePlanSource interface {
	LoadWidePlan(path string) ([]entities.PlanTarget, *LoadReport, error)
}
