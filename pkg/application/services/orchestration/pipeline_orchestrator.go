package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/aggregation"
	"github.com/vsinha/planrecon/pkg/application/services/analysis"
	"github.com/vsinha/planrecon/pkg/application/services/reconciliation"
	"github.com/vsinha/planrecon/pkg/application/services/smoothing"
	"github.com/vsinha/planrecon/pkg/application/services/verification"
	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/infrastructure/events"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/memory"
)

// Output kinds journaled with every written file
const (
	OutputReconciled    = "reconciled"
	OutputFactors       = "factors"
	OutputDiscrepancies = "discrepancies"
	OutputSmoothed      = "smoothed"
	OutputPlan          = "plan"
)

// Stage names used for timing
const (
	stageLoad      = "load"
	stageReconcile = "reconcile"
	stageVerify    = "verify"
	stageSmooth    = "smooth"
	stageAnalyze   = "analyze"
	stageWrite     = "write"
)

// Store reads and writes every dataset a run touches
type Store interface {
	repositories.ForecastSource
	repositories.PlanSource
	repositories.ReconciledSource
	repositories.WidePlanSource
	repositories.RecordSink
}

// MetricsRecorder receives the run metrics
type MetricsRecorder interface {
	RecordLoaded(dataset string, accepted, rejected int)
	RecordReconciliation(joinedPairs, fallbackRecords int, weightedFactor float64)
	RecordVerification(passed bool, maxAbsDifference float64)
	RecordAnomalies(n int)
	ObserveStage(stage string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordLoaded(string, int, int) {}
func (noopMetrics) RecordReconciliation(int, int, float64) {}
func (noopMetrics) RecordVerification(bool, float64) {}
func (noopMetrics) RecordAnomalies(int) {}
func (noopMetrics) ObserveStage(string, float64) {}

// PipelineOrchestrator coordinates loading, reconciliation, verification,
// smoothing, analysis and writing for one command invocation
type PipelineOrchestrator struct {
	store      Store
	engine     *reconciliation.Engine
	verifier   *verification.Verifier
	smoother   *smoothing.Smoother
	analyzer   *analysis.Analyzer
	eventStore events.EventStore
	metrics    MetricsRecorder
}

// NewPipelineOrchestrator creates a new pipeline orchestrator. A nil recorder disables metrics.
func NewPipelineOrchestrator(
	store Store,
	engine *reconciliation.Engine,
	verifier *verification.Verifier,
	smoother *smoothing.Smoother,
	analyzer *analysis.Analyzer,
	eventStore events.EventStore,
	recorder MetricsRecorder,
) *PipelineOrchestrator {
	if recorder == nil {
		recorder = noopMetrics{}
	}
	if eventStore == nil {
		eventStore = events.NewInMemoryEventStore()
	}
	return &PipelineOrchestrator{
		store:      store,
		engine:     engine,
		verifier:   verifier,
		smoother:   smoother,
		analyzer:   analyzer,
		eventStore: eventStore,
		metrics:    recorder,
	}
}

// ReconcileRequest names the inputs and outputs of a reconciliation run.
// Empty output paths are skipped.
type ReconcileRequest struct {
	ForecastPath      string
	PlanPath          string
	WidePlan          bool
	ReconciledPath    string
	FactorsPath       string
	DiscrepanciesPath string
	HeatmapGroups     int
}

// VerifyRequest names the inputs and outputs of a verification run
type VerifyRequest struct {
	ReconciledPath    string
	PlanPath          string
	WidePlan          bool
	DiscrepanciesPath string
}

// SmoothRequest names the inputs and outputs of a smoothing run
type SmoothRequest struct {
	HistoryPath string
	KeyFields   aggregation.KeyFields
	OutputPath  string
}

// ImportRequest names the wide plan workbook and the long plan file to write
type ImportRequest struct {
	WidePlanPath string
	OutputPath   string
}

// RunReconciliation loads forecast and plan, reconciles, verifies the result
// against the same plan and writes the requested outputs.
//
// An empty join returns the partial run together with an EmptyJoin error.
func (po *PipelineOrchestrator) RunReconciliation(ctx context.Context, req ReconcileRequest) (*dto.PipelineRun, error) {
	run := po.newRun("reconcile")

	forecast, err := po.loadForecast(run, req.ForecastPath)
	if err != nil {
		return nil, err
	}
	plan, err := po.loadPlan(run, req.PlanPath, req.WidePlan)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := po.engine.Reconcile(ctx, forecast, plan)
	po.metrics.ObserveStage(stageReconcile, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domainerrors.ErrEmptyJoin) && result != nil {
			run.Reconciliation = result
			po.finish(run)
			return run, err
		}
		return nil, fmt.Errorf("failed to reconcile: %w", err)
	}
	run.Reconciliation = result
	po.publishReconciliation(run.RunID, result)

	report, err := po.verify(ctx, run, result.Records, plan)
	if err != nil {
		return nil, err
	}
	run.Verification = report

	run.Volume = analysis.VolumeByMonth(result.Records)
	run.Heatmap = analysis.BuildFactorHeatmap(result.Factors, largestTargetGroups(result.Factors, req.HeatmapGroups))

	start = time.Now()
	if err := po.write(run, OutputReconciled, req.ReconciledPath, func(path string) error {
		return po.store.WriteReconciled(path, result.Records)
	}); err != nil {
		return nil, err
	}
	if err := po.write(run, OutputFactors, req.FactorsPath, func(path string) error {
		return po.store.WriteFactors(path, result.Factors)
	}); err != nil {
		return nil, err
	}
	if err := po.write(run, OutputDiscrepancies, req.DiscrepanciesPath, func(path string) error {
		return po.store.WriteDiscrepancies(path, report.Discrepancies)
	}); err != nil {
		return nil, err
	}
	po.metrics.ObserveStage(stageWrite, time.Since(start).Seconds())

	po.finish(run)
	return run, nil
}

// RunVerification checks an existing reconciled dataset against a plan
func (po *PipelineOrchestrator) RunVerification(ctx context.Context, req VerifyRequest) (*dto.PipelineRun, error) {
	run := po.newRun("verify")

	start := time.Now()
	reconciled, report, err := po.store.LoadReconciled(req.ReconciledPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciled dataset: %w", err)
	}
	po.recordLoad(run, events.ForecastLoadedEvent, report)
	po.metrics.ObserveStage(stageLoad, time.Since(start).Seconds())

	plan, err := po.loadPlan(run, req.PlanPath, req.WidePlan)
	if err != nil {
		return nil, err
	}

	verified, err := po.verify(ctx, run, reconciled, plan)
	if err != nil {
		return nil, err
	}
	run.Verification = verified

	if err := po.write(run, OutputDiscrepancies, req.DiscrepanciesPath, func(path string) error {
		return po.store.WriteDiscrepancies(path, verified.Discrepancies)
	}); err != nil {
		return nil, err
	}

	po.finish(run)
	return run, nil
}

// RunSmoothing aggregates a demand history into series and smooths every series
func (po *PipelineOrchestrator) RunSmoothing(ctx context.Context, req SmoothRequest) (*dto.PipelineRun, error) {
	run := po.newRun("smooth")

	history, err := po.loadForecast(run, req.HistoryPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	agg := aggregation.Aggregate(history, req.KeyFields)
	series, err := agg.BuildSeries(ctx, po.smoother.Config().Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to build series: %w", err)
	}
	result, err := po.smoother.SmoothAll(ctx, series)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth series: %w", err)
	}
	result.KeyFields = req.KeyFields.String()
	po.metrics.ObserveStage(stageSmooth, time.Since(start).Seconds())
	po.metrics.RecordAnomalies(result.TotalAnomalies)
	run.Smoothing = result

	for _, s := range result.Series {
		months := s.AnomalyMonths()
		if len(months) == 0 {
			continue
		}
		po.publish(run.RunID, events.AnomalyDetectedEvent, events.AnomalyDetected{
			SeriesKey: s.Key,
			Months:    months,
		})
	}

	if err := po.write(run, OutputSmoothed, req.OutputPath, func(path string) error {
		return po.store.WriteSmoothed(path, result.Series)
	}); err != nil {
		return nil, err
	}

	po.finish(run)
	return run, nil
}

// RunAnalysis computes trend, volatility and volume rankings of a demand history
func (po *PipelineOrchestrator) RunAnalysis(ctx context.Context, historyPath string) (*dto.PipelineRun, error) {
	run := po.newRun("analyze")

	history, err := po.loadForecast(run, historyPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := po.analyzer.Analyze(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze history: %w", err)
	}
	po.metrics.ObserveStage(stageAnalyze, time.Since(start).Seconds())
	run.Analysis = report

	po.finish(run)
	return run, nil
}

// ImportPlan converts a wide plan workbook into a long plan dataset
func (po *PipelineOrchestrator) ImportPlan(ctx context.Context, req ImportRequest) (*dto.PipelineRun, error) {
	run := po.newRun("import-plan")

	plan, err := po.loadPlan(run, req.WidePlanPath, true)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run.ImportedPlan = len(plan)

	if err := po.write(run, OutputPlan, req.OutputPath, func(path string) error {
		return po.store.WritePlan(path, plan)
	}); err != nil {
		return nil, err
	}

	po.finish(run)
	return run, nil
}

// EventStore returns the journal the orchestrator publishes to
func (po *PipelineOrchestrator) EventStore() events.EventStore {
	return po.eventStore
}

func (po *PipelineOrchestrator) newRun(command string) *dto.PipelineRun {
	run := &dto.PipelineRun{
		RunID:     events.NewRunID(),
		Command:   command,
		StartedAt: time.Now().UTC(),
	}
	log.Debug().Str("run_id", run.RunID).Str("command", command).Msg("Pipeline run started")
	return run
}

func (po *PipelineOrchestrator) finish(run *dto.PipelineRun) {
	run.FinishedAt = time.Now().UTC()
	log.Info().
		Str("run_id", run.RunID).
		Str("command", run.Command).
		Dur("duration", run.Duration()).
		Int("outputs", len(run.Outputs)).
		Msg("Pipeline run finished")
}

func (po *PipelineOrchestrator) loadForecast(run *dto.PipelineRun, path string) ([]entities.ForecastRecord, error) {
	start := time.Now()
	records, report, err := po.store.LoadForecast(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast: %w", err)
	}

	repo := memory.NewForecastRepository()
	if err := repo.LoadForecast(records); err != nil {
		return nil, fmt.Errorf("failed to store forecast: %w", err)
	}
	po.recordLoad(run, events.ForecastLoadedEvent, report)
	po.metrics.ObserveStage(stageLoad, time.Since(start).Seconds())

	return repo.GetForecast()
}

func (po *PipelineOrchestrator) loadPlan(run *dto.PipelineRun, path string, wide bool) ([]entities.PlanTarget, error) {
	start := time.Now()
	var (
		targets []entities.PlanTarget
		report  *repositories.LoadReport
		err     error
	)
	if wide {
		targets, report, err = po.store.LoadWidePlan(path)
	} else {
		targets, report, err = po.store.LoadPlan(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	// The repository collapses duplicate (group, month) targets by summing
	repo := memory.NewPlanRepository()
	if err := repo.LoadTargets(targets); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}
	report.Merged += repo.Merged()
	po.recordLoad(run, events.PlanLoadedEvent, report)
	po.metrics.ObserveStage(stageLoad, time.Since(start).Seconds())

	return repo.GetTargets()
}

func (po *PipelineOrchestrator) recordLoad(run *dto.PipelineRun, eventType string, report *repositories.LoadReport) {
	run.Loads = append(run.Loads, *report)
	po.metrics.RecordLoaded(report.Dataset, report.RowsAccepted, report.RowsRejected)
	po.publish(run.RunID, eventType, events.DatasetLoaded{Report: *report})
}

func (po *PipelineOrchestrator) verify(
	ctx context.Context,
	run *dto.PipelineRun,
	reconciled []entities.ReconciledRecord,
	plan []entities.PlanTarget,
) (*dto.VerificationReport, error) {
	start := time.Now()
	report, err := po.verifier.Verify(ctx, reconciled, plan)
	po.metrics.ObserveStage(stageVerify, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to verify: %w", err)
	}

	po.metrics.RecordVerification(report.Passed(), report.Summary.MaxAbsoluteDifference)
	po.publish(run.RunID, events.VerificationCompletedEvent, events.VerificationCompleted{
		Verdict:               string(report.Verdict),
		PairsChecked:          report.Summary.PairsChecked,
		PairsOutsideTolerance: report.Summary.PairsOutsideTolerance,
		MaxAbsoluteDifference: report.Summary.MaxAbsoluteDifference,
	})
	return report, nil
}

func (po *PipelineOrchestrator) publishReconciliation(runID string, result *dto.ReconciliationResult) {
	stats := result.Stats
	po.metrics.RecordReconciliation(stats.JoinedPairs, stats.FallbackRecords, stats.WeightedFactor)

	po.publish(runID, events.ReconciliationCompletedEvent, events.ReconciliationCompleted{
		JoinedPairs:     stats.JoinedPairs,
		WeightedFactor:  stats.WeightedFactor,
		FallbackRecords: stats.FallbackRecords,
		TotalOriginal:   stats.TotalOriginal,
		TotalScaled:     stats.TotalScaled,
	})
	if stats.PlausibilityWarning {
		po.publish(runID, events.PlausibilityWarningEvent, events.PlausibilityWarning{
			WeightedFactor: stats.WeightedFactor,
			Range:          stats.PlausibilityRange,
		})
	}
	if stats.FallbackRecords > 0 {
		po.publish(runID, events.FallbackAppliedEvent, events.FallbackApplied{Records: stats.FallbackRecords})
	}
}

func (po *PipelineOrchestrator) write(run *dto.PipelineRun, kind, path string, write func(string) error) error {
	if path == "" {
		return nil
	}
	if err := write(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", kind, err)
	}
	run.Outputs = append(run.Outputs, dto.OutputFile{Kind: kind, Path: path})
	po.publish(run.RunID, events.OutputWrittenEvent, events.OutputWritten{Kind: kind, Path: path})
	log.Info().Str("kind", kind).Str("path", path).Msg("Output written")
	return nil
}

func (po *PipelineOrchestrator) publish(runID, eventType string, data interface{}) {
	if err := po.eventStore.AppendEvent(runID, events.NewEvent(eventType, runID, data)); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to journal event")
	}
}

// largestTargetGroups returns the n groups with the largest total target, or nil for n <= 0
func largestTargetGroups(factors []entities.ReconciliationFactor, n int) []entities.GroupKey {
	if n <= 0 {
		return nil
	}
	totals := make(map[entities.GroupKey]float64)
	for _, f := range factors {
		totals[f.GroupKey] += float64(f.TargetQuantity)
	}
	groups := make([]entities.GroupKey, 0, len(totals))
	for g := range totals {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if totals[groups[i]] != totals[groups[j]] {
			return totals[groups[i]] > totals[groups[j]]
		}
		return groups[i] < groups[j]
	})
	if len(groups) > n {
		groups = groups[:n]
	}
	return groups
}
