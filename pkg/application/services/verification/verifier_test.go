package verification_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/reconciliation"
	"github.com/vsinha/planrecon/pkg/application/services/verification"
	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

func record(article, group string, month entities.MonthCode, qty float64) entities.ForecastRecord {
	return entities.ForecastRecord{
		ArticleID: entities.ArticleID(article),
		GroupKey:  entities.GroupKey(group),
		MonthCode: month,
		Quantity:  entities.Quantity(qty),
	}
}

func target(group string, month entities.MonthCode, qty float64) entities.PlanTarget {
	return entities.PlanTarget{GroupKey: entities.GroupKey(group), MonthCode: month, TargetQuantity: entities.Quantity(qty)}
}

func TestVerify_ScenarioReconciledAndUnexplained(t *testing.T) {
	ctx := context.Background()
	forecast := []entities.ForecastRecord{
		record("A1", "A", 202601, 10),
		record("A2", "A", 202601, 20),
	}
	plan := []entities.PlanTarget{
		target("A", 202601, 45),
		target("B", 202602, 100),
	}

	result, err := reconciliation.NewEngine().Reconcile(ctx, forecast, plan)
	require.NoError(t, err)

	report, err := verification.NewVerifier().Verify(ctx, result.Records, plan)
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 2)

	a := report.Discrepancies[0]
	assert.Equal(t, entities.GroupKey("A"), a.GroupKey)
	assert.Equal(t, 45.0, a.ReconciledSum)
	assert.Equal(t, 0.0, a.AbsoluteDifference)
	assert.True(t, a.WithinTolerance)

	b := report.Discrepancies[1]
	assert.Equal(t, entities.GroupKey("B"), b.GroupKey)
	assert.Equal(t, 0.0, b.ReconciledSum)
	assert.Equal(t, 100.0, b.AbsoluteDifference)
	assert.True(t, b.Unexplained())
	assert.Equal(t, 1, report.Summary.UnexplainedTargets)

	// the fixed default tolerance of 1000 units absorbs a gap of 100, the rounding bound does not
	assert.Equal(t, dto.VerdictPass, report.Verdict)

	strict := verification.NewVerifierWithConfig(verification.Config{
		ToleranceMode:          verification.RoundingBoundTolerance,
		ReportUnmatchedTargets: true,
	})
	report, err = strict.Verify(ctx, result.Records, plan)
	require.NoError(t, err)
	assert.Equal(t, dto.VerdictFail, report.Verdict)
	assert.Equal(t, 1, report.Summary.PairsOutsideTolerance)
	worst := report.Worst(5)
	require.Len(t, worst, 1)
	assert.Equal(t, entities.GroupKey("B"), worst[0].GroupKey)
}

func TestVerify_InnerJoinWhenUnmatchedTargetsNotReported(t *testing.T) {
	reconciled := []entities.ReconciledRecord{
		{ForecastRecord: record("A1", "A", 202601, 10), Factor: 1, ScaledQuantity: 10},
	}
	plan := []entities.PlanTarget{target("A", 202601, 10), target("B", 202602, 100)}

	v := verification.NewVerifierWithConfig(verification.Config{MaxAllowedAbsoluteDiff: 1})
	report, err := v.Verify(context.Background(), reconciled, plan)
	require.NoError(t, err)

	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, dto.VerdictPass, report.Verdict)
}

func TestVerify_FixedToleranceIsStrict(t *testing.T) {
	reconciled := []entities.ReconciledRecord{
		{ForecastRecord: record("A1", "A", 202601, 10), Factor: 1, ScaledQuantity: 10},
	}
	plan := []entities.PlanTarget{target("A", 202601, 12)}

	testCases := []struct {
		tolerance float64
		expected  dto.Verdict
	}{
		{3, dto.VerdictPass},
		{2, dto.VerdictFail},
		{1, dto.VerdictFail},
	}
	for _, tc := range testCases {
		v := verification.NewVerifierWithConfig(verification.Config{MaxAllowedAbsoluteDiff: tc.tolerance})
		report, err := v.Verify(context.Background(), reconciled, plan)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, report.Verdict, "tolerance %v", tc.tolerance)
		assert.Equal(t, 2.0, report.Summary.MaxAbsoluteDifference)
	}
}

func TestVerify_NothingToCheck(t *testing.T) {
	_, err := verification.NewVerifier().Verify(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrEmptyJoin))
}

func TestRoundingTolerance_ScalesWithGroupSize(t *testing.T) {
	assert.Equal(t, 0.0, verification.RoundingTolerance(0))
	assert.Equal(t, 0.5, verification.RoundingTolerance(1))
	assert.Equal(t, 500.0, verification.RoundingTolerance(1000))
}

// Reconciling against a plan and verifying against the same plan stays within
// half a unit per record folded into each aggregate.
func TestVerify_RoundTripWithinRoundingBound(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for _, mode := range []reconciliation.RoundingMode{reconciliation.HalfEven, reconciliation.HalfAwayFromZero} {
		t.Run(mode.String(), func(t *testing.T) {
			var forecast []entities.ForecastRecord
			var plan []entities.PlanTarget

			for g := 0; g < 12; g++ {
				group := string(rune('A' + g))
				for m := entities.MonthCode(202601); m <= 202606; m = m.Next() {
					size := 1 + rng.Intn(25)
					for i := 0; i < size; i++ {
						forecast = append(forecast, record("ART", group, m, float64(1+rng.Intn(500))))
					}
					plan = append(plan, target(group, m, float64(1+rng.Intn(20000))))
				}
			}

			engine := reconciliation.NewEngineWithConfig(reconciliation.Config{
				RoundingMode:    mode,
				PlausibilityMin: 0.1,
				PlausibilityMax: 10,
			})
			result, err := engine.Reconcile(ctx, forecast, plan)
			require.NoError(t, err)

			v := verification.NewVerifierWithConfig(verification.Config{
				ToleranceMode:          verification.RoundingBoundTolerance,
				ReportUnmatchedTargets: true,
			})
			report, err := v.Verify(ctx, result.Records, plan)
			require.NoError(t, err)

			assert.Equal(t, dto.VerdictPass, report.Verdict)
			assert.LessOrEqual(t, report.Summary.MaxAbsoluteDifference,
				verification.RoundingTolerance(report.Summary.MaxGroupSize))
			for _, d := range report.Discrepancies {
				assert.LessOrEqual(t, d.AbsoluteDifference, verification.RoundingTolerance(d.RecordCount)+1e-9, d.Key().String())
			}
		})
	}
}
