package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/domain/services"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

// Config holds the column layouts and the field separator of CSV inputs
type Config struct {
	Forecast   tabular.ForecastLayout
	Plan       tabular.PlanLayout
	WidePlan   tabular.WidePlanLayout
	Reconciled services.ColumnMapping
	// Comma is the field separator; zero means ','
	Comma rune
}

// Loader handles loading forecast, plan and reconciled data from CSV files
type Loader struct {
	config Config
}

// NewLoader creates a new CSV loader for canonical column names
func NewLoader() *Loader {
	return &Loader{config: Config{WidePlan: tabular.DefaultWidePlanLayout()}}
}

// NewLoaderWithConfig creates a CSV loader with custom layouts
func NewLoaderWithConfig(config Config) *Loader {
	return &Loader{config: config}
}

// Verify interface compliance
var (
	_ repositories.ForecastSource   = (*Loader)(nil)
	_ repositories.PlanSource       = (*Loader)(nil)
	_ repositories.ReconciledSource = (*Loader)(nil)
)

// LoadForecast loads forecast records from a CSV file
func (l *Loader) LoadForecast(filename string) ([]entities.ForecastRecord, *repositories.LoadReport, error) {
	header, rows, err := l.readTable("forecast", filename)
	if err != nil {
		return nil, nil, err
	}

	records, report, err := tabular.DecodeForecast("forecast", header, rows, l.config.Forecast)
	if err != nil {
		return nil, nil, fmt.Errorf("forecast CSV %s: %w", filename, err)
	}
	return records, finish(report, filename), nil
}

// LoadPlan loads long-format plan targets from a CSV file
func (l *Loader) LoadPlan(filename string) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	header, rows, err := l.readTable("plan", filename)
	if err != nil {
		return nil, nil, err
	}

	targets, report, err := tabular.DecodePlan("plan", header, rows, l.config.Plan)
	if err != nil {
		return nil, nil, fmt.Errorf("plan CSV %s: %w", filename, err)
	}
	return targets, finish(report, filename), nil
}

// LoadReconciled loads a previously written reconciliation output
func (l *Loader) LoadReconciled(filename string) ([]entities.ReconciledRecord, *repositories.LoadReport, error) {
	header, rows, err := l.readTable("reconciled", filename)
	if err != nil {
		return nil, nil, err
	}

	records, report, err := tabular.DecodeReconciled("reconciled", header, rows, l.config.Reconciled)
	if err != nil {
		return nil, nil, fmt.Errorf("reconciled CSV %s: %w", filename, err)
	}
	return records, finish(report, filename), nil
}

// LoadWidePlan loads a plan sheet with one row per group and month columns per year
func (l *Loader) LoadWidePlan(filename string) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	header, rows, err := l.readTable("plan", filename)
	if err != nil {
		return nil, nil, err
	}

	// the wide layout addresses columns by position, so the first line is data too
	all := append([][]string{header}, rows...)
	targets, report, err := tabular.DecodeWidePlan("plan", all, l.config.WidePlan)
	if err != nil {
		return nil, nil, fmt.Errorf("plan CSV %s: %w", filename, err)
	}
	return targets, finish(report, filename), nil
}

func (l *Loader) readTable(dataset, filename string) ([]string, [][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, domainerrors.NewMissingInputError(dataset, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if l.config.Comma != 0 {
		reader.Comma = l.config.Comma
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, domainerrors.NewSchemaMismatchError(dataset, []string{"<header>"}).
			WithContext("path", filename)
	}
	if err != nil {
		return nil, nil, domainerrors.NewIOError(fmt.Sprintf("failed to read %s CSV %s", dataset, filename), err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, domainerrors.NewIOError(fmt.Sprintf("failed to read %s CSV %s", dataset, filename), err)
	}
	return header, rows, nil
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
	log.Debug().Str("dataset", report.Dataset).Int("accepted", report.RowsAccepted).Msg("CSV loaded")
	return report
}
