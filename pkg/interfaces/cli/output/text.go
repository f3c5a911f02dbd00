package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vsinha/planrecon/pkg/application/dto"
)

const worstDiscrepancies = 10

// WriteText prints a human-readable summary of a run
func WriteText(w io.Writer, run *dto.PipelineRun) error {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 %s Results Summary\n", strings.ToUpper(run.Command))
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 24+len(run.Command)))
	fmt.Fprintf(&b, "Run ID: %s\n", run.RunID)
	fmt.Fprintf(&b, "Duration: %v\n\n", run.Duration())

	if len(run.Loads) > 0 {
		writeLoads(&b, run)
	}
	if run.Reconciliation != nil {
		writeReconciliation(&b, run.Reconciliation)
	}
	if run.Verification != nil {
		writeVerification(&b, run.Verification)
	}
	if run.Smoothing != nil {
		writeSmoothing(&b, run.Smoothing)
	}
	if run.Analysis != nil {
		writeAnalysis(&b, run.Analysis)
	}
	if run.ImportedPlan > 0 {
		fmt.Fprintf(&b, "📥 Imported plan targets: %d\n\n", run.ImportedPlan)
	}
	if len(run.Outputs) > 0 {
		fmt.Fprintf(&b, "💾 Outputs:\n")
		for _, out := range run.Outputs {
			fmt.Fprintf(&b, "  %-15s %s\n", out.Kind, out.Path)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeLoads(b *strings.Builder, run *dto.PipelineRun) {
	fmt.Fprintf(b, "📂 Inputs:\n")
	fmt.Fprintf(b, "%-12s %-10s %-10s %-10s %s\n", "Dataset", "Accepted", "Rejected", "Merged", "Path")
	fmt.Fprintf(b, "%-12s %-10s %-10s %-10s %s\n", "------------", "----------", "----------", "----------", "----")
	for _, l := range run.Loads {
		fmt.Fprintf(b, "%-12s %-10d %-10d %-10d %s\n", l.Dataset, l.RowsAccepted, l.RowsRejected, l.Merged, l.Path)
		reasons := make([]string, 0, len(l.Reasons))
		for reason := range l.Reasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(b, "  ⚠️  %s: %d\n", reason, l.Reasons[reason])
		}
	}
	b.WriteString("\n")
}

func writeReconciliation(b *strings.Builder, r *dto.ReconciliationResult) {
	s := r.Stats
	fmt.Fprintf(b, "⚖️  Reconciliation:\n")
	fmt.Fprintf(b, "  Joined pairs: %d (forecast only: %d, plan only: %d)\n", s.JoinedPairs, s.ForecastOnlyPairs, s.PlanOnlyPairs)
	fmt.Fprintf(b, "  Mean factor: %.4f\n", s.ArithmeticMeanFactor)
	fmt.Fprintf(b, "  Weighted factor: %.4f\n", s.WeightedFactor)
	if s.PlausibilityWarning {
		fmt.Fprintf(b, "  ⚠️  Weighted factor outside [%.2f, %.2f], review input data\n", s.PlausibilityRange[0], s.PlausibilityRange[1])
	}
	if s.FallbackRecords > 0 {
		fmt.Fprintf(b, "  ⚠️  %d records without plan target kept with factor 1.0\n", s.FallbackRecords)
	}
	if s.ExcludedRecords > 0 {
		fmt.Fprintf(b, "  ⚠️  %d records excluded for missing group or month\n", s.ExcludedRecords)
	}
	fmt.Fprintf(b, "  Volume: %.0f → %d (%s)\n\n", s.TotalOriginal, s.TotalScaled, s.RoundingMode)
}

func writeVerification(b *strings.Builder, r *dto.VerificationReport) {
	s := r.Summary
	icon := "✅"
	if !r.Passed() {
		icon = "❌"
	}
	fmt.Fprintf(b, "%s Verification: %s\n", icon, r.Verdict)
	fmt.Fprintf(b, "  Pairs checked: %d\n", s.PairsChecked)
	fmt.Fprintf(b, "  Unexplained targets: %d\n", s.UnexplainedTargets)
	fmt.Fprintf(b, "  Outside tolerance: %d (%s, %.1f)\n", s.PairsOutsideTolerance, s.ToleranceMode, s.Tolerance)
	fmt.Fprintf(b, "  Max absolute difference: %.2f\n", s.MaxAbsoluteDifference)
	fmt.Fprintf(b, "  Total absolute difference: %.2f\n", s.TotalAbsoluteDifference)

	worst := r.Worst(worstDiscrepancies)
	if len(worst) > 0 {
		fmt.Fprintf(b, "\n%-15s %-8s %-14s %-14s %-12s\n", "Group", "Month", "Reconciled", "Target", "Difference")
		fmt.Fprintf(b, "%-15s %-8s %-14s %-14s %-12s\n", "---------------", "--------", "--------------", "--------------", "------------")
		for _, d := range worst {
			fmt.Fprintf(b, "%-15s %-8s %-14.2f %-14.2f %-12.2f\n",
				d.GroupKey, d.MonthCode, d.ReconciledSum, float64(d.TargetQuantity), d.AbsoluteDifference)
		}
	}
	b.WriteString("\n")
}

func writeSmoothing(b *strings.Builder, r *dto.SmoothingResult) {
	fmt.Fprintf(b, "🧹 Smoothing (by %s, window %d):\n", r.KeyFields, r.Window)
	fmt.Fprintf(b, "  Series: %d\n", len(r.Series))
	fmt.Fprintf(b, "  Points: %d\n", r.TotalPoints)
	fmt.Fprintf(b, "  Anomalies: %d\n", r.TotalAnomalies)

	for _, s := range r.Series {
		for _, p := range s.Points {
			if p.Anomaly {
				fmt.Fprintf(b, "  ⚠️  %-15s %s %10.1f → %10.1f (%s, %+.2f)\n",
					s.Key, p.Month, p.Value, p.Smoothed, p.Rule, p.RelativeDeviation)
			}
		}
	}
	b.WriteString("\n")
}

func writeAnalysis(b *strings.Builder, r *dto.AnalysisReport) {
	fmt.Fprintf(b, "📈 Market trend (rolling mean, window %d):\n", r.TrendWindow)
	for _, p := range r.Trend {
		fmt.Fprintf(b, "  %s %14.1f %14.1f\n", p.Month.Label(), p.Total, p.RollingMean)
	}
	fmt.Fprintf(b, "  Total volume: %.1f\n\n", r.TotalVolume)

	if len(r.Volatility) > 0 {
		fmt.Fprintf(b, "🌪️  Most volatile:\n")
		fmt.Fprintf(b, "%-20s %-12s %-12s %-8s\n", "Key", "Mean", "Std Dev", "CV")
		for _, v := range r.Volatility {
			fmt.Fprintf(b, "%-20s %-12.1f %-12.1f %-8.3f\n", v.Key, v.Mean, v.StdDev, v.CoefficientOfVariation)
		}
		b.WriteString("\n")
	}

	if len(r.TopGroups) > 0 {
		fmt.Fprintf(b, "🏆 Top by volume:\n")
		for i, g := range r.TopGroups {
			fmt.Fprintf(b, "  %2d. %-20s %14.1f %6.1f%%\n", i+1, g.Key, g.Total, g.Share*100)
		}
		b.WriteString("\n")
	}
}
