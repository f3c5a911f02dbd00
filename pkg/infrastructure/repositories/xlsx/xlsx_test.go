package xlsx

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/services"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

func buildWorkbook(t *testing.T, sheetName string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheetName))

	for r, row := range rows {
		for c, val := range row {
			if val == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheetName, cell, val))
		}
	}

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoader_LoadForecastWithHorizons(t *testing.T) {
	path := buildWorkbook(t, "Prognose", [][]interface{}{
		{"matnr", "Baumarkt", "Baumarktartikel", "progmo", "prog_mg1", "progmo2", "prog_mg2"},
		{4711, " obi", "OBI-4711", 202601, 10, 202701, 12.5},
		{4712, "toom", "TOOM-4712", "202602", 3, nil, nil},
	})

	loader := NewLoaderWithConfig(Config{
		Forecast: tabular.ForecastLayout{
			Columns: services.ColumnMapping{
				services.FieldArticleID:   "matnr",
				services.FieldGroupKey:    "Baumarkt",
				services.FieldCategoryTag: "Baumarktartikel",
			},
			Horizons: []tabular.Horizon{
				{MonthColumn: "progmo", QuantityColumn: "prog_mg1"},
				{MonthColumn: "progmo2", QuantityColumn: "prog_mg2"},
			},
		},
	})

	records, report, err := loader.LoadForecast(path)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, entities.ForecastRecord{
		ArticleID: "4711", GroupKey: "OBI", CategoryTag: "OBI-4711", MonthCode: 202601, Quantity: 10,
	}, records[0])
	assert.Equal(t, entities.Quantity(12.5), records[1].Quantity)
	assert.Equal(t, entities.MonthCode(202602), records[2].MonthCode)
	assert.Equal(t, 1, report.RowsRejected)
	assert.Equal(t, path, report.Path)
}

func TestLoader_WidePlanDefaultLayout(t *testing.T) {
	header := make([]interface{}, 55)
	header[0] = "Baumarkt"
	data := make([]interface{}, 55)
	data[0] = "Hornbach"
	data[4] = 1.5 // 2025-01 in column E
	data[15] = 2  // 2025-12 in column P
	data[17] = 3  // 2026-01 in column R
	data[54] = 4  // 2028-12 in column BC

	path := buildWorkbook(t, "Programm", [][]interface{}{header, data})

	loader := NewLoaderWithConfig(Config{WidePlan: func() tabular.WidePlanLayout {
		l := tabular.DefaultWidePlanLayout()
		l.UnitMultiplier = 1000
		return l
	}()})
	targets, report, err := loader.LoadWidePlan(path)
	require.NoError(t, err)

	require.Len(t, targets, 48)
	index := entities.PlanIndex(targets)
	assert.Equal(t, entities.Quantity(1500), index[entities.Key{Group: "HORNBACH", Month: 202501}])
	assert.Equal(t, entities.Quantity(2000), index[entities.Key{Group: "HORNBACH", Month: 202512}])
	assert.Equal(t, entities.Quantity(3000), index[entities.Key{Group: "HORNBACH", Month: 202601}])
	assert.Equal(t, entities.Quantity(4000), index[entities.Key{Group: "HORNBACH", Month: 202812}])
	assert.Equal(t, entities.Quantity(0), index[entities.Key{Group: "HORNBACH", Month: 202702}])
	assert.Equal(t, 1, report.Reasons[tabular.ReasonHeaderRow])
}

func TestLoader_MissingWorkbook(t *testing.T) {
	_, _, err := NewLoader().LoadPlan(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrMissingInput))
}

func TestLoader_SchemaMismatch(t *testing.T) {
	path := buildWorkbook(t, "plan", [][]interface{}{
		{"group_key", "month_code"},
		{"OBI", 202601},
	})

	_, _, err := NewLoader().LoadPlan(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSchemaMismatch))
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconciled.xlsx")
	records := []entities.ReconciledRecord{
		{ForecastRecord: entities.ForecastRecord{ArticleID: "1", GroupKey: "A", CategoryTag: "c", MonthCode: 202601, Quantity: 10}, Factor: 1.5, ScaledQuantity: 15},
		{ForecastRecord: entities.ForecastRecord{ArticleID: "2", GroupKey: "A", CategoryTag: "c", MonthCode: 202601, Quantity: 20}, Factor: 1.5, ScaledQuantity: 30},
	}

	require.NoError(t, NewWriter().WriteReconciled(path, records))

	loaded, report, err := NewLoader().LoadReconciled(path)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
	assert.Zero(t, report.RowsRejected)
}

func TestWriter_WorkbookWithSeveralSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.xlsx")
	err := NewWriter().WriteWorkbook(path,
		Sheet{Name: "factors", Table: tabular.FactorTable([]entities.ReconciliationFactor{
			{GroupKey: "A", MonthCode: 202601, BottomUpSum: 30, TargetQuantity: 45, Factor: 1.5},
		})},
		Sheet{Name: "plan", Table: tabular.PlanTable([]entities.PlanTarget{
			{GroupKey: "A", MonthCode: 202601, TargetQuantity: 45},
		})},
	)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"factors", "plan"}, f.GetSheetList())
	factor, err := f.GetCellValue("factors", "E2")
	require.NoError(t, err)
	assert.Equal(t, "1.5", factor)

	targets, _, err := NewLoaderWithConfig(Config{Sheet: "plan"}).LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, []entities.PlanTarget{{GroupKey: "A", MonthCode: 202601, TargetQuantity: 45}}, targets)
}

func TestWriter_NoSheets(t *testing.T) {
	assert.Error(t, NewWriter().WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx")))
}
