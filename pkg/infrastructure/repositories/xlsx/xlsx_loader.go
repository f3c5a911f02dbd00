package xlsx

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/domain/services"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

// Config holds the column layouts and sheet selection of workbook inputs
type Config struct {
	Forecast   tabular.ForecastLayout
	Plan       tabular.PlanLayout
	WidePlan   tabular.WidePlanLayout
	Reconciled services.ColumnMapping
	// Sheet names the sheet to read; empty means the first sheet
	Sheet string
}

// Loader reads forecast, plan and reconciled data from xlsx workbooks
type Loader struct {
	config Config
}

// NewLoader creates a workbook loader for canonical column names
func NewLoader() *Loader {
	return &Loader{config: Config{WidePlan: tabular.DefaultWidePlanLayout()}}
}

// NewLoaderWithConfig creates a workbook loader with custom layouts
func NewLoaderWithConfig(config Config) *Loader {
	return &Loader{config: config}
}

// Verify interface compliance
var (
	_ repositories.ForecastSource   = (*Loader)(nil)
	_ repositories.PlanSource       = (*Loader)(nil)
	_ repositories.ReconciledSource = (*Loader)(nil)
)

// LoadForecast loads forecast records, one per row and horizon
func (l *Loader) LoadForecast(path string) ([]entities.ForecastRecord, *repositories.LoadReport, error) {
	rows, err := l.readRows("forecast", path)
	if err != nil {
		return nil, nil, err
	}
	header, data := split(rows)

	records, report, err := tabular.DecodeForecast("forecast", header, data, l.config.Forecast)
	if err != nil {
		return nil, nil, fmt.Errorf("forecast workbook %s: %w", path, err)
	}
	return records, finish(report, path), nil
}

// LoadPlan loads long-format plan targets
func (l *Loader) LoadPlan(path string) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	rows, err := l.readRows("plan", path)
	if err != nil {
		return nil, nil, err
	}
	header, data := split(rows)

	targets, report, err := tabular.DecodePlan("plan", header, data, l.config.Plan)
	if err != nil {
		return nil, nil, fmt.Errorf("plan workbook %s: %w", path, err)
	}
	return targets, finish(report, path), nil
}

// LoadReconciled loads a previously written reconciliation output
func (l *Loader) LoadReconciled(path string) ([]entities.ReconciledRecord, *repositories.LoadReport, error) {
	rows, err := l.readRows("reconciled", path)
	if err != nil {
		return nil, nil, err
	}
	header, data := split(rows)

	records, report, err := tabular.DecodeReconciled("reconciled", header, data, l.config.Reconciled)
	if err != nil {
		return nil, nil, fmt.Errorf("reconciled workbook %s: %w", path, err)
	}
	return records, finish(report, path), nil
}

// LoadWidePlan loads a plan sheet with one row per group and twelve month columns per year
func (l *Loader) LoadWidePlan(path string) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	rows, err := l.readRows("plan", path)
	if err != nil {
		return nil, nil, err
	}

	targets, report, err := tabular.DecodeWidePlan("plan", rows, l.config.WidePlan)
	if err != nil {
		return nil, nil, fmt.Errorf("plan workbook %s: %w", path, err)
	}
	return targets, finish(report, path), nil
}

func (l *Loader) readRows(dataset, path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domainerrors.NewMissingInputError(dataset, path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domainerrors.NewIOError(fmt.Sprintf("failed to open %s workbook %s", dataset, path), err)
	}
	defer f.Close()

	sheet := l.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, domainerrors.NewSchemaMismatchError(dataset, []string{"<sheet>"}).WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, domainerrors.NewIOError(fmt.Sprintf("failed to read sheet %q of %s", sheet, path), err)
	}
	return rows, nil
}

func split(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], rows[1:]
}

func finish(report *repositories.LoadReport, path string) *repositories.LoadReport {
	report.Path = path
	if report.RowsRejected > 0 {
		log.Warn().
			Str("dataset", report.Dataset).
			Str("path", path).
			Int("rejected", report.RowsRejected).
			Interface("reasons", report.Reasons).
			Msg("Rows excluded while loading")
	}
	log.Debug().Str("dataset", report.Dataset).Int("accepted", report.RowsAccepted).Msg("Workbook loaded")
	return report
}
