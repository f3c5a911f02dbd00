package events

import (
	"github.com/google/uuid"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
)

const (
	ForecastLoadedEvent = "forecast.loaded"
	PlanLoadedEvent     = "plan.loaded"

	ReconciliationCompletedEvent = "reconciliation.completed"
	PlausibilityWarningEvent     = "reconciliation.plausibility_warning"
	FallbackAppliedEvent         = "reconciliation.fallback_applied"
	VerificationCompletedEvent   = "verification.completed"
	AnomalyDetectedEvent         = "smoothing.anomaly_detected"
	OutputWrittenEvent           = "output.written"
)

// AllEventTypes lists every event type a pipeline run can journal
var AllEventTypes = []string{
	ForecastLoadedEvent,
	PlanLoadedEvent,
	ReconciliationCompletedEvent,
	PlausibilityWarningEvent,
	FallbackAppliedEvent,
	VerificationCompletedEvent,
	AnomalyDetectedEvent,
	OutputWrittenEvent,
}

// NewRunID returns a fresh stream ID for one pipeline run
func NewRunID() string {
	return uuid.NewString()
}

type DatasetLoaded struct {
	Report repositories.LoadReport `json:"report"`
}

type ReconciliationCompleted struct {
	JoinedPairs     int     `json:"joined_pairs"`
	WeightedFactor  float64 `json:"weighted_factor"`
	FallbackRecords int     `json:"fallback_records"`
	TotalOriginal   float64 `json:"total_original"`
	TotalScaled     int64   `json:"total_scaled"`
}

type PlausibilityWarning struct {
	WeightedFactor float64    `json:"weighted_factor"`
	Range          [2]float64 `json:"range"`
}

type FallbackApplied struct {
	Records int `json:"records"`
}

type VerificationCompleted struct {
	Verdict               string  `json:"verdict"`
	PairsChecked          int     `json:"pairs_checked"`
	PairsOutsideTolerance int     `json:"pairs_outside_tolerance"`
	MaxAbsoluteDifference float64 `json:"max_absolute_difference"`
}

type AnomalyDetected struct {
	SeriesKey string               `json:"series_key"`
	Months    []entities.MonthCode `json:"months"`
}

type OutputWritten struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}
