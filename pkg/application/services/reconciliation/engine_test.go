package reconciliation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

func forecastRecord(article, group string, month entities.MonthCode, qty float64) entities.ForecastRecord {
	return entities.ForecastRecord{
		ArticleID: entities.ArticleID(article),
		GroupKey:  entities.GroupKey(group),
		MonthCode: month,
		Quantity:  entities.Quantity(qty),
	}
}

func planTarget(group string, month entities.MonthCode, target float64) entities.PlanTarget {
	return entities.PlanTarget{GroupKey: entities.GroupKey(group), MonthCode: month, TargetQuantity: entities.Quantity(target)}
}

func TestComputeFactor_EdgeCases(t *testing.T) {
	testCases := []struct {
		name     string
		bottomUp float64
		target   float64
		expected float64
	}{
		{"zero basis with target", 0, 100, 0.0},
		{"zero basis and zero target", 0, 0, 0.0},
		{"zero target keeps forecast", 50, 0, 1.0},
		{"scale up", 30, 45, 1.5},
		{"scale down", 200, 50, 0.25},
		{"thirds", 3, 1, 1.0 / 3.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeFactor(tc.bottomUp, tc.target))
		})
	}
}

func TestReconcile_ScalesToTarget(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{
		forecastRecord("A1", "A", 202601, 10),
		forecastRecord("A2", "A", 202601, 20),
	}
	plan := []entities.PlanTarget{planTarget("A", 202601, 45)}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	require.Len(t, result.Factors, 1)
	assert.Equal(t, entities.Quantity(30), result.Factors[0].BottomUpSum)
	assert.Equal(t, 1.5, result.Factors[0].Factor)

	require.Len(t, result.Records, 2)
	assert.Equal(t, int64(15), result.Records[0].ScaledQuantity)
	assert.Equal(t, int64(30), result.Records[1].ScaledQuantity)
	assert.Equal(t, int64(45), result.Stats.TotalScaled)
	assert.Equal(t, 0, result.Stats.FallbackRecords)
	assert.False(t, result.Stats.PlausibilityWarning)
}

func TestReconcile_FallbackForForecastOnlyPairs(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{
		forecastRecord("A1", "A", 202601, 10),
		forecastRecord("A1", "A", 202602, 8),
		forecastRecord("A2", "A", 202602, 4),
	}
	plan := []entities.PlanTarget{planTarget("A", 202601, 20)}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.FallbackRecords)
	assert.Equal(t, 1, result.Stats.ForecastOnlyPairs)
	assert.Equal(t, entities.FactorFallback, result.Records[1].FactorSource)
	assert.Equal(t, 1.0, result.Records[1].Factor)
	assert.Equal(t, int64(8), result.Records[1].ScaledQuantity)
	assert.Equal(t, int64(20), result.Records[0].ScaledQuantity)
}

func TestReconcile_ZeroTargetAndZeroBasis(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{
		forecastRecord("A1", "ZEROPLAN", 202601, 12),
		forecastRecord("A1", "NOBASIS", 202601, 0),
	}
	plan := []entities.PlanTarget{
		planTarget("ZEROPLAN", 202601, 0),
		planTarget("NOBASIS", 202601, 500),
	}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	index := result.FactorIndex()
	assert.Equal(t, 1.0, index[entities.Key{Group: "ZEROPLAN", Month: 202601}].Factor)
	assert.Equal(t, 0.0, index[entities.Key{Group: "NOBASIS", Month: 202601}].Factor)
	assert.Equal(t, int64(12), result.Records[0].ScaledQuantity)
	assert.Equal(t, int64(0), result.Records[1].ScaledQuantity)
}

func TestReconcile_PlanOnlyPairsExcludedFromJoin(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{forecastRecord("A1", "A", 202601, 10)}
	plan := []entities.PlanTarget{
		planTarget("A", 202601, 10),
		planTarget("B", 202602, 100),
	}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.JoinedPairs)
	assert.Equal(t, 1, result.Stats.PlanOnlyPairs)
	for _, f := range result.Factors {
		assert.NotEqual(t, entities.GroupKey("B"), f.GroupKey)
	}
}

func TestReconcile_DegeneratePlanIsIdentity(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{
		forecastRecord("A1", "A", 202601, 7),
		forecastRecord("A2", "A", 202601, 13),
		forecastRecord("A1", "B", 202601, 4),
		forecastRecord("A1", "B", 202602, 9),
	}
	plan := []entities.PlanTarget{
		planTarget("A", 202601, 20),
		planTarget("B", 202601, 4),
		planTarget("B", 202602, 9),
	}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	for _, f := range result.Factors {
		assert.Equal(t, 1.0, f.Factor, f.Key().String())
	}
	for i, r := range result.Records {
		assert.Equal(t, int64(forecast[i].Quantity), r.ScaledQuantity)
	}
	assert.Equal(t, 1.0, result.Stats.WeightedFactor)
	assert.Equal(t, 1.0, result.Stats.ArithmeticMeanFactor)
}

func TestReconcile_EmptyJoin(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{forecastRecord("A1", "A", 202601, 10)}
	plan := []entities.PlanTarget{planTarget("B", 202601, 10)}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrEmptyJoin))

	require.NotNil(t, result)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Factors)
	assert.Equal(t, 1, result.Stats.ForecastPairs)
	assert.Equal(t, 1, result.Stats.PlanPairs)
}

func TestReconcile_WeightedVersusMeanFactor(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{
		forecastRecord("A1", "BIG", 202601, 1000),
		forecastRecord("A1", "TINY", 202601, 1),
	}
	plan := []entities.PlanTarget{
		planTarget("BIG", 202601, 1000),
		planTarget("TINY", 202601, 101),
	}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	// the tiny group drags the arithmetic mean to 51 while the volume-weighted factor stays near 1.1
	assert.InDelta(t, 51.0, result.Stats.ArithmeticMeanFactor, 1e-9)
	assert.InDelta(t, 1101.0/1001.0, result.Stats.WeightedFactor, 1e-9)
	assert.False(t, result.Stats.PlausibilityWarning)
}

func TestReconcile_PlausibilityWarning(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{forecastRecord("A1", "A", 202601, 10)}
	plan := []entities.PlanTarget{planTarget("A", 202601, 10000)}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	assert.True(t, result.Stats.PlausibilityWarning)
	assert.Equal(t, int64(10000), result.Records[0].ScaledQuantity)
}

func TestReconcile_DuplicatePlanTargetsAreSummed(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{forecastRecord("A1", "A", 202601, 10)}
	plan := []entities.PlanTarget{
		planTarget("A", 202601, 10),
		planTarget("A", 202601, 5),
	}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)
	assert.Equal(t, 1.5, result.Factors[0].Factor)
}

func TestReconcile_ExcludesRecordsWithoutMonth(t *testing.T) {
	engine := NewEngine()
	forecast := []entities.ForecastRecord{
		forecastRecord("A1", "A", 202601, 10),
		forecastRecord("A2", "A", 0, 10),
	}
	plan := []entities.PlanTarget{planTarget("A", 202601, 20)}

	result, err := engine.Reconcile(context.Background(), forecast, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.ExcludedRecords)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 2.0, result.Factors[0].Factor)
}

func TestReconcile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Reconcile(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoundingMode_Scale(t *testing.T) {
	testCases := []struct {
		name     string
		mode     RoundingMode
		quantity float64
		factor   float64
		expected int64
	}{
		{"even tie down", HalfEven, 5, 0.5, 2},
		{"even tie up", HalfEven, 7, 0.5, 4},
		{"away tie", HalfAwayFromZero, 5, 0.5, 3},
		{"away tie odd", HalfAwayFromZero, 7, 0.5, 4},
		{"no tie", HalfEven, 10, 1.26, 13},
		{"thirds", HalfEven, 3, 1.0 / 3.0, 1},
		{"zero factor", HalfEven, 123, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.mode.Scale(tc.quantity, tc.factor))
		})
	}
}

func TestReconcile_RoundingErrorBounded(t *testing.T) {
	// nine records of 1 unit scaled by 10/9 round to 1 each: aggregate 9 vs target 10
	forecast := make([]entities.ForecastRecord, 0, 9)
	for i := 0; i < 9; i++ {
		forecast = append(forecast, forecastRecord("A", "G", 202601, 1))
	}
	plan := []entities.PlanTarget{planTarget("G", 202601, 10)}

	for _, mode := range []RoundingMode{HalfEven, HalfAwayFromZero} {
		t.Run(mode.String(), func(t *testing.T) {
			engine := NewEngineWithConfig(Config{RoundingMode: mode, PlausibilityMin: 0.1, PlausibilityMax: 10})
			result, err := engine.Reconcile(context.Background(), forecast, plan)
			require.NoError(t, err)

			diff := math.Abs(float64(result.Stats.TotalScaled) - 10)
			assert.LessOrEqual(t, diff, 0.5*float64(len(forecast)))
		})
	}
}

func TestParseRoundingMode(t *testing.T) {
	m, err := ParseRoundingMode("half_away_from_zero")
	require.NoError(t, err)
	assert.Equal(t, HalfAwayFromZero, m)

	m, err = ParseRoundingMode("")
	require.NoError(t, err)
	assert.Equal(t, HalfEven, m)

	_, err = ParseRoundingMode("up")
	assert.Error(t, err)
}
