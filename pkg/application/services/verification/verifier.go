package verification

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/aggregation"
	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

// ToleranceMode selects how the pass/fail threshold is derived
type ToleranceMode int

const (
	// FixedTolerance passes when every absolute difference is below MaxAllowedAbsoluteDiff
	FixedTolerance ToleranceMode = iota
	// RoundingBoundTolerance allows 0.5 units per record folded into each aggregate
	RoundingBoundTolerance
)

// String method for ToleranceMode enum
func (m ToleranceMode) String() string {
	switch m {
	case FixedTolerance:
		return "fixed"
	case RoundingBoundTolerance:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseToleranceMode parses the textual form used in configuration and flags
func ParseToleranceMode(s string) (ToleranceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return FixedTolerance, nil
	case "auto", "rounding":
		return RoundingBoundTolerance, nil
	default:
		return FixedTolerance, fmt.Errorf("invalid tolerance mode: %s (expected fixed or auto)", s)
	}
}

// Config holds the consistency check policy
type Config struct {
	ToleranceMode          ToleranceMode
	MaxAllowedAbsoluteDiff float64
	// ReportUnmatchedTargets lists plan targets without any reconciled record as
	// discrepancies with a reconciled sum of zero instead of dropping them.
	ReportUnmatchedTargets bool
}

// DefaultConfig returns the default consistency check policy
func DefaultConfig() Config {
	return Config{
		ToleranceMode:          FixedTolerance,
		MaxAllowedAbsoluteDiff: 1000,
		ReportUnmatchedTargets: true,
	}
}

// RoundingTolerance is the largest aggregate error that rounding n records to whole units can produce
func RoundingTolerance(records int) float64 {
	return 0.5 * float64(records)
}

// roundingSlack absorbs float noise when comparing against the rounding bound
const roundingSlack = 1e-9

// Verifier re-aggregates reconciled records and compares them with the plan
type Verifier struct {
	config Config
}

// NewVerifier creates a verifier with the default policy
func NewVerifier() *Verifier {
	return NewVerifierWithConfig(DefaultConfig())
}

// NewVerifierWithConfig creates a verifier with a custom policy
func NewVerifierWithConfig(config Config) *Verifier {
	return &Verifier{config: config}
}

// Verify produces the discrepancy table and verdict for reconciled records against the plan
func (v *Verifier) Verify(
	ctx context.Context,
	reconciled []entities.ReconciledRecord,
	plan []entities.PlanTarget,
) (*dto.VerificationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sums, counts, _ := aggregation.AggregateScaled(reconciled)
	targets := entities.PlanIndex(plan)

	keys := make([]entities.Key, 0, len(targets))
	for key := range targets {
		_, matched := sums[key]
		if matched || v.config.ReportUnmatchedTargets {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, domainerrors.NewEmptyJoinError(len(sums), len(targets))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	report := &dto.VerificationReport{
		Discrepancies: make([]entities.Discrepancy, 0, len(keys)),
		Verdict:       dto.VerdictPass,
		Summary: dto.VerificationSummary{
			ToleranceMode: v.config.ToleranceMode.String(),
		},
	}
	summary := &report.Summary

	for _, key := range keys {
		sum := sums[key]
		target := targets[key]
		diff := math.Abs(sum - float64(target))

		d := entities.Discrepancy{
			GroupKey:           key.Group,
			MonthCode:          key.Month,
			ReconciledSum:      sum,
			TargetQuantity:     target,
			AbsoluteDifference: diff,
			RecordCount:        counts[key],
		}
		d.WithinTolerance = v.within(d)

		if d.Unexplained() {
			summary.UnexplainedTargets++
		}
		if !d.WithinTolerance {
			summary.PairsOutsideTolerance++
		}
		summary.TotalAbsoluteDifference += diff
		summary.MaxAbsoluteDifference = math.Max(summary.MaxAbsoluteDifference, diff)
		if d.RecordCount > summary.MaxGroupSize {
			summary.MaxGroupSize = d.RecordCount
		}

		report.Discrepancies = append(report.Discrepancies, d)
	}
	summary.PairsChecked = len(report.Discrepancies)

	switch v.config.ToleranceMode {
	case RoundingBoundTolerance:
		summary.Tolerance = RoundingTolerance(summary.MaxGroupSize)
		if summary.PairsOutsideTolerance > 0 {
			report.Verdict = dto.VerdictFail
		}
	default:
		summary.Tolerance = v.config.MaxAllowedAbsoluteDiff
		if summary.MaxAbsoluteDifference >= v.config.MaxAllowedAbsoluteDiff {
			report.Verdict = dto.VerdictFail
		}
	}

	event := log.Info()
	if !report.Passed() {
		event = log.Warn()
	}
	event.
		Int("pairs", summary.PairsChecked).
		Int("unexplained_targets", summary.UnexplainedTargets).
		Float64("total_abs_diff", summary.TotalAbsoluteDifference).
		Float64("max_abs_diff", summary.MaxAbsoluteDifference).
		Float64("tolerance", summary.Tolerance).
		Str("verdict", string(report.Verdict)).
		Msg("Consistency check completed")

	return report, nil
}

func (v *Verifier) within(d entities.Discrepancy) bool {
	if v.config.ToleranceMode == RoundingBoundTolerance {
		return d.AbsoluteDifference <= RoundingTolerance(d.RecordCount)+roundingSlack
	}
	return d.AbsoluteDifference < v.config.MaxAllowedAbsoluteDiff
}
