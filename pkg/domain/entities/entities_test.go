package entities

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewForecastRecord_Validation(t *testing.T) {
	rec, err := NewForecastRecord(" A-100 ", " hornbach ", "Paint", "202601", 10)
	require.NoError(t, err)
	assert.Equal(t, ArticleID("A-100"), rec.ArticleID)
	assert.Equal(t, GroupKey("HORNBACH"), rec.GroupKey)
	assert.Equal(t, MonthCode(202601), rec.MonthCode)
	assert.Equal(t, Key{Group: "HORNBACH", Month: 202601}, rec.Key())

	testCases := []struct {
		name     string
		group    string
		month    any
		quantity float64
	}{
		{"empty group", "", 202601, 1},
		{"bad month", "A", "not-a-month", 1},
		{"negative quantity", "A", 202601, -1},
		{"infinite quantity", "A", 202601, math.Inf(1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewForecastRecord("X", tc.group, "", tc.month, tc.quantity)
			assert.Error(t, err)
		})
	}
}

func TestCollapsePlanTargets_SumsDuplicates(t *testing.T) {
	targets := []PlanTarget{
		{GroupKey: "B", MonthCode: 202601, TargetQuantity: 5},
		{GroupKey: "A", MonthCode: 202602, TargetQuantity: 10},
		{GroupKey: "A", MonthCode: 202601, TargetQuantity: 20},
		{GroupKey: "A", MonthCode: 202601, TargetQuantity: 25},
	}

	collapsed, merged := CollapsePlanTargets(targets)

	assert.Equal(t, 1, merged)
	require.Len(t, collapsed, 3)
	assert.Equal(t, PlanTarget{GroupKey: "A", MonthCode: 202601, TargetQuantity: 45}, collapsed[0])
	assert.Equal(t, PlanTarget{GroupKey: "A", MonthCode: 202602, TargetQuantity: 10}, collapsed[1])
	assert.Equal(t, PlanTarget{GroupKey: "B", MonthCode: 202601, TargetQuantity: 5}, collapsed[2])
}

func TestNewAggregatedSeries(t *testing.T) {
	series, err := NewAggregatedSeries("A", []SeriesPoint{
		{Month: 202603, Value: 3},
		{Month: 202601, Value: 1},
		{Month: 202602, Value: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, series.Values())
	assert.Equal(t, 6.0, series.Total())

	_, err = NewAggregatedSeries("A", []SeriesPoint{{Month: 202601}, {Month: 202601}})
	assert.Error(t, err)
}

func TestSmoothedSeries_Accessors(t *testing.T) {
	s := SmoothedSeries{Key: "A", Points: []SmoothedPoint{
		{Month: 202601, Value: 100, Smoothed: 100},
		{Month: 202602, Value: 0, Smoothed: 90, Anomaly: true, Rule: DropoutRule},
	}}

	assert.Equal(t, 1, s.AnomalyCount())
	assert.Equal(t, []bool{false, true}, s.Mask())
	assert.Equal(t, []float64{100, 90}, s.SmoothedValues().Values())
	assert.Equal(t, "dropout", DropoutRule.String())
}
