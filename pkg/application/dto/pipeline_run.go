package dto

import (
	"time"

	"github.com/vsinha/planrecon/pkg/domain/repositories"
)

// OutputFile is a dataset or artifact written by a run
type OutputFile struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// PipelineRun collects everything one command produced
type PipelineRun struct {
	RunID          string                    `json:"run_id"`
	Command        string                    `json:"command"`
	StartedAt      time.Time                 `json:"started_at"`
	FinishedAt     time.Time                 `json:"finished_at"`
	Loads          []repositories.LoadReport `json:"loads"`
	Reconciliation *ReconciliationResult     `json:"reconciliation,omitempty"`
	Verification   *VerificationReport       `json:"verification,omitempty"`
	Smoothing      *SmoothingResult          `json:"smoothing,omitempty"`
	Analysis       *AnalysisReport           `json:"analysis,omitempty"`
	Volume         []VolumePoint             `json:"volume,omitempty"`
	Heatmap        *FactorHeatmap            `json:"heatmap,omitempty"`
	ImportedPlan   int                       `json:"imported_plan_targets,omitempty"`
	Outputs        []OutputFile              `json:"outputs,omitempty"`
}

// Duration returns the wall time of the run
func (r *PipelineRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the run ended with a failing verification
func (r *PipelineRun) Failed() bool {
	return r.Verification != nil && !r.Verification.Passed()
}
