package output

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/domain/entities"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
)

func sampleRun() *dto.PipelineRun {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &dto.PipelineRun{
		RunID:      "run-1",
		Command:    "reconcile",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Loads: []repositories.LoadReport{
			{Dataset: "forecast", Path: "forecast.csv", RowsRead: 4, RowsAccepted: 3, RowsRejected: 1, Reasons: map[string]int{"invalid_month": 1}},
		},
		Reconciliation: &dto.ReconciliationResult{
			Stats: dto.ReconciliationStats{JoinedPairs: 2, WeightedFactor: 1.5, FallbackRecords: 1, TotalOriginal: 30, TotalScaled: 45, RoundingMode: "half_even"},
		},
		Verification: &dto.VerificationReport{
			Verdict: dto.VerdictFail,
			Discrepancies: []entities.Discrepancy{
				{GroupKey: "B", MonthCode: 202602, TargetQuantity: 100, AbsoluteDifference: 100},
			},
			Summary: dto.VerificationSummary{PairsChecked: 2, PairsOutsideTolerance: 1, MaxAbsoluteDifference: 100, ToleranceMode: "auto"},
		},
		Volume: []dto.VolumePoint{
			{Month: 202601, Original: 30, Reconciled: 45},
			{Month: 202602, Original: 20, Reconciled: 20},
		},
		Heatmap: &dto.FactorHeatmap{
			Groups:  []entities.GroupKey{"A"},
			Months:  []entities.MonthCode{202601, 202602},
			Values:  [][]float64{{1.5, 0}},
			Present: [][]bool{{true, false}},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleRun()))

	out := buf.String()
	assert.Contains(t, out, "RECONCILE Results Summary")
	assert.Contains(t, out, "invalid_month: 1")
	assert.Contains(t, out, "Weighted factor: 1.5000")
	assert.Contains(t, out, "1 records without plan target")
	assert.Contains(t, out, "❌ Verification: FAIL")
	assert.Contains(t, out, "202602")
}

func TestGenerate_JSONToStdout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(sampleRun(), Config{Format: FormatJSON, Stdout: &buf}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Contains(t, decoded, "verification")
	assert.NotContains(t, decoded, "smoothing")
}

func TestGenerate_CSVTables(t *testing.T) {
	dir := t.TempDir()
	run := sampleRun()
	require.NoError(t, Generate(run, Config{Format: FormatCSV, OutputDir: dir, Stdout: &bytes.Buffer{}}))

	for _, name := range []string{"loads", "reconciliation", "volume", "factor_heatmap", "verification"} {
		assert.FileExists(t, filepath.Join(dir, "reconcile_"+name+".csv"))
	}
	assert.Len(t, run.Outputs, 5)
}

func TestGenerate_CSVRequiresDirectory(t *testing.T) {
	err := Generate(sampleRun(), Config{Format: FormatCSV, Stdout: &bytes.Buffer{}})
	require.Error(t, err)
}

func TestGenerate_XLSXWorkbook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate(sampleRun(), Config{Format: FormatXLSX, OutputDir: dir, Stdout: &bytes.Buffer{}}))

	f, err := excelize.OpenFile(filepath.Join(dir, "reconcile_report.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"loads", "reconciliation", "volume", "factor_heatmap", "verification"}, f.GetSheetList())
	rows, err := f.GetRows("factor_heatmap")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"group_key", "202601", "202602"}, rows[0])
	assert.Equal(t, "A", rows[1][0])
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	err := Generate(sampleRun(), Config{Format: "yaml"})
	require.Error(t, err)
}

func TestWriteCharts(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteCharts(sampleRun(), dir)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "volume_before_after.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "factor_per_month.png"), paths[1])
}

func TestSmoothingChart_IsPNG(t *testing.T) {
	series := entities.SmoothedSeries{Key: "OBI", Points: []entities.SmoothedPoint{
		{Month: 202601, Value: 100, MovingAverage: 102, Smoothed: 100},
		{Month: 202602, Value: 5, MovingAverage: 99.5, Smoothed: 99.5, Anomaly: true},
		{Month: 202603, Value: 99, MovingAverage: 5, Smoothed: 99},
	}}

	buf, err := SmoothingChart(series)
	require.NoError(t, err)
	require.Greater(t, len(buf), 8)
	assert.Equal(t, []byte("\x89PNG"), buf[:4])
}

func TestWriteCharts_NothingToDraw(t *testing.T) {
	paths, err := WriteCharts(&dto.PipelineRun{Command: "import-plan"}, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDatasetExtension(t *testing.T) {
	assert.Equal(t, ".xlsx", DatasetExtension(FormatXLSX))
	assert.Equal(t, ".csv", DatasetExtension(FormatText))
	assert.Equal(t, ".csv", DatasetExtension(FormatCSV))
}
