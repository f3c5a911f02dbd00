package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"data/forecast.csv", CSV, false},
		{"Plan.XLSX", XLSX, false},
		{"plan.json", CSV, true},
		{"noext", CSV, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domainerrors.ErrTypeConfig, domainerrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_PlanAcrossFormats(t *testing.T) {
	store := NewStore(Config{})
	dir := t.TempDir()
	targets := []entities.PlanTarget{
		{GroupKey: "A", MonthCode: 202601, TargetQuantity: 45},
		{GroupKey: "B", MonthCode: 202602, TargetQuantity: 100},
	}

	for _, name := range []string{"plan.csv", "plan.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, store.WritePlan(path, targets))

			loaded, report, err := store.LoadPlan(path)
			require.NoError(t, err)
			assert.Equal(t, targets, loaded)
			assert.Equal(t, 2, report.RowsAccepted)
		})
	}
}

func TestStore_MissingInput(t *testing.T) {
	_, _, err := NewStore(Config{}).LoadForecast(filepath.Join(t.TempDir(), "forecast.xlsx"))
	assert.True(t, errors.Is(err, domainerrors.ErrMissingInput))
}
