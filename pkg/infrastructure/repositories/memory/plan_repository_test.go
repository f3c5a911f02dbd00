package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/planrecon/pkg/domain/entities"
)

func TestPlanRepository_CollapsesDuplicates(t *testing.T) {
	repo := NewPlanRepository()

	err := repo.LoadTargets([]entities.PlanTarget{
		{GroupKey: "B", MonthCode: 202601, TargetQuantity: 10},
		{GroupKey: "A", MonthCode: 202602, TargetQuantity: 5},
		{GroupKey: "A", MonthCode: 202601, TargetQuantity: 7},
		{GroupKey: "A", MonthCode: 202601, TargetQuantity: 3},
	})
	require.NoError(t, err)

	targets, err := repo.GetTargets()
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, entities.PlanTarget{GroupKey: "A", MonthCode: 202601, TargetQuantity: 10}, targets[0])
	assert.Equal(t, entities.GroupKey("A"), targets[1].GroupKey)
	assert.Equal(t, entities.MonthCode(202602), targets[1].MonthCode)
	assert.Equal(t, entities.GroupKey("B"), targets[2].GroupKey)
	assert.Equal(t, 1, repo.Merged())

	q, ok := repo.GetTarget(entities.Key{Group: "A", Month: 202601})
	assert.True(t, ok)
	assert.Equal(t, entities.Quantity(10), q)

	_, ok = repo.GetTarget(entities.Key{Group: "C", Month: 202601})
	assert.False(t, ok)
}

func TestForecastRepository_ReturnsCopy(t *testing.T) {
	repo := NewForecastRepository()
	require.NoError(t, repo.LoadForecast([]entities.ForecastRecord{
		{ArticleID: "1", GroupKey: "A", MonthCode: 202601, Quantity: 10},
	}))
	require.NoError(t, repo.LoadForecast([]entities.ForecastRecord{
		{ArticleID: "2", GroupKey: "A", MonthCode: 202601, Quantity: 20},
	}))

	records, err := repo.GetForecast()
	require.NoError(t, err)
	require.Len(t, records, 2)

	records[0].Quantity = 999
	again, err := repo.GetForecast()
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(10), again[0].Quantity)
}
