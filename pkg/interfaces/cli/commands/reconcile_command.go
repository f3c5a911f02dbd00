package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vsinha/planrecon/pkg/application/services/orchestration"
	"github.com/vsinha/planrecon/pkg/config"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

// verificationFlags override the verification section of the configuration
type verificationFlags struct {
	toleranceMode string
	maxDiff       float64
	unmatched     bool
}

func (f *verificationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.toleranceMode, "tolerance-mode", "", "Tolerance mode: fixed or auto (0.5 per record in the aggregate)")
	cmd.Flags().Float64Var(&f.maxDiff, "max-diff", 0, "Largest absolute difference that still passes in fixed mode")
	cmd.Flags().BoolVar(&f.unmatched, "report-unmatched", true, "Report plan targets without forecast as discrepancies")
}

func (f *verificationFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("tolerance-mode") {
		cfg.Verification.ToleranceMode = f.toleranceMode
	}
	if cmd.Flags().Changed("max-diff") {
		cfg.Verification.MaxAllowedAbsoluteDiff = f.maxDiff
	}
	if cmd.Flags().Changed("report-unmatched") {
		cfg.Verification.ReportUnmatchedTargets = f.unmatched
	}
}

type reconcileOptions struct {
	forecast      string
	plan          string
	widePlan      bool
	reconciled    string
	factors       string
	discrepancies string
	roundingMode  string
	verification  verificationFlags
}

func newReconcileCommand(global *GlobalOptions) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Scale the forecast so it matches the plan per group and month",
		Long: `Reconcile loads the article-level forecast and the customer-level plan,
computes one correction factor per (group, month) present in both, applies it
to every forecast record and verifies the reconciled sums against the plan.

Writes the reconciled dataset, the factor table and the discrepancy report
into the output directory, plus charts when enabled.`,
		Example: `  # Reconcile with default settings
  planrecon reconcile --forecast data/forecast.xlsx --plan data/plan.csv

  # Import the plan from the wide plan workbook and write xlsx outputs
  planrecon reconcile --forecast data/forecast.xlsx --plan data/BAUMARKTPROGRAMM.xlsx --wide-plan -f xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.forecast, "forecast", "", "Forecast dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&opts.plan, "plan", "", "Plan dataset (.csv or .xlsx)")
	cmd.Flags().BoolVar(&opts.widePlan, "wide-plan", false, "Read the plan as a wide workbook with month columns per year")
	cmd.Flags().StringVar(&opts.reconciled, "reconciled", "", "Reconciled dataset path (default <output>/reconciled.<ext>)")
	cmd.Flags().StringVar(&opts.factors, "factors", "", "Factor table path (default <output>/factors.<ext>)")
	cmd.Flags().StringVar(&opts.discrepancies, "discrepancies", "", "Discrepancy report path (default <output>/discrepancies.<ext>)")
	cmd.Flags().StringVar(&opts.roundingMode, "rounding-mode", "", "Rounding of scaled quantities: half_even or half_away_from_zero")
	opts.verification.register(cmd)
	_ = cmd.MarkFlagRequired("forecast")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runReconcile(cmd *cobra.Command, global *GlobalOptions, opts *reconcileOptions) error {
	a, err := newApp(cmd, global, func(cfg *config.Config) error {
		if cmd.Flags().Changed("rounding-mode") {
			cfg.Reconciliation.RoundingMode = opts.roundingMode
		}
		opts.verification.apply(cmd, cfg)
		return nil
	})
	if err != nil {
		return err
	}

	run, err := a.orchestrator.RunReconciliation(cmd.Context(), orchestration.ReconcileRequest{
		ForecastPath:      opts.forecast,
		PlanPath:          opts.plan,
		WidePlan:          opts.widePlan,
		ReconciledPath:    a.datasetPath(opts.reconciled, "reconciled"),
		FactorsPath:       a.datasetPath(opts.factors, "factors"),
		DiscrepanciesPath: a.datasetPath(opts.discrepancies, "discrepancies"),
		HeatmapGroups:     a.cfg.Analysis.HeatmapGroups,
	})
	if err != nil {
		// Nothing to reconcile: still show what was loaded
		if run != nil && errors.Is(err, domainerrors.ErrEmptyJoin) {
			if finishErr := a.finish(cmd, run); finishErr != nil {
				return finishErr
			}
		}
		return err
	}
	return a.finish(cmd, run)
}
