package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/domain/services"
	csvrepo "github.com/vsinha/planrecon/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
	xlsxrepo "github.com/vsinha/planrecon/pkg/infrastructure/repositories/xlsx"
)

// Format is a tabular file format
type Format int

const (
	CSV Format = iota
	XLSX
)

// String method for Format enum
func (f Format) String() string {
	switch f {
	case CSV:
		return "csv"
	case XLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// FormatOf picks the format from the file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return CSV, nil
	case ".xlsx", ".xlsm":
		return XLSX, nil
	default:
		return CSV, domainerrors.NewConfigError(fmt.Sprintf("unsupported file extension for %s (expected .csv or .xlsx)", path), nil)
	}
}

// Config holds the layouts shared by both formats
type Config struct {
	Forecast   tabular.ForecastLayout
	Plan       tabular.PlanLayout
	WidePlan   tabular.WidePlanLayout
	Reconciled services.ColumnMapping
	CSVComma   rune
	Sheet      string
}

// Store reads and writes datasets in the format implied by each path
type Store struct {
	csvLoader  *csvrepo.Loader
	csvWriter  *csvrepo.Writer
	xlsxLoader *xlsxrepo.Loader
	xlsxWriter *xlsxrepo.Writer
}

// NewStore creates a store for the given layouts
func NewStore(config Config) *Store {
	return &Store{
		csvLoader: csvrepo.NewLoaderWithConfig(csvrepo.Config{
			Forecast:   config.Forecast,
			Plan:       config.Plan,
			WidePlan:   config.WidePlan,
			Reconciled: config.Reconciled,
			Comma:      config.CSVComma,
		}),
		csvWriter: csvrepo.NewWriterWithComma(config.CSVComma),
		xlsxLoader: xlsxrepo.NewLoaderWithConfig(xlsxrepo.Config{
			Forecast:   config.Forecast,
			Plan:       config.Plan,
			WidePlan:   config.WidePlan,
			Reconciled: config.Reconciled,
			Sheet:      config.Sheet,
		}),
		xlsxWriter: xlsxrepo.NewWriter(),
	}
}

// Verify interface compliance
var (
	_ repositories.ForecastSource   = (*Store)(nil)
	_ repositories.PlanSource       = (*Store)(nil)
	_ repositories.ReconciledSource = (*Store)(nil)
	_ repositories.WidePlanSource   = (*Store)(nil)
	_ repositories.RecordSink       = (*Store)(nil)
)

type source interface {
	repositories.ForecastSource
	repositories.PlanSource
	repositories.ReconciledSource
	LoadWidePlan(path string) ([]entities.PlanTarget, *repositories.LoadReport, error)
}

func (s *Store) source(path string) (source, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == XLSX {
		return s.xlsxLoader, nil
	}
	return s.csvLoader, nil
}

func (s *Store) sink(path string) (repositories.RecordSink, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == XLSX {
		return s.xlsxWriter, nil
	}
	return s.csvWriter, nil
}

func (s *Store) LoadForecast(path string) ([]entities.ForecastRecord, *repositories.LoadReport, error) {
	src, err := s.source(path)
	if err != nil {
		return nil, nil, err
	}
	return src.LoadForecast(path)
}

func (s *Store) LoadPlan(path string) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	src, err := s.source(path)
	if err != nil {
		return nil, nil, err
	}
	return src.LoadPlan(path)
}

func (s *Store) LoadReconciled(path string) ([]entities.ReconciledRecord, *repositories.LoadReport, error) {
	src, err := s.source(path)
	if err != nil {
		return nil, nil, err
	}
	return src.LoadReconciled(path)
}

// LoadWidePlan reads a wide plan sheet, one row per group
func (s *Store) LoadWidePlan(path string) ([]entities.PlanTarget, *repositories.LoadReport, error) {
	src, err := s.source(path)
	if err != nil {
		return nil, nil, err
	}
	return src.LoadWidePlan(path)
}

func (s *Store) WriteReconciled(path string, records []entities.ReconciledRecord) error {
	sink, err := s.sink(path)
	if err != nil {
		return err
	}
	return sink.WriteReconciled(path, records)
}

func (s *Store) WriteFactors(path string, factors []entities.ReconciliationFactor) error {
	sink, err := s.sink(path)
	if err != nil {
		return err
	}
	return sink.WriteFactors(path, factors)
}

func (s *Store) WriteDiscrepancies(path string, discrepancies []entities.Discrepancy) error {
	sink, err := s.sink(path)
	if err != nil {
		return err
	}
	return sink.WriteDiscrepancies(path, discrepancies)
}

func (s *Store) WritePlan(path string, targets []entities.PlanTarget) error {
	sink, err := s.sink(path)
	if err != nil {
		return err
	}
	return sink.WritePlan(path, targets)
}

func (s *Store) WriteSmoothed(path string, series []entities.SmoothedSeries) error {
	sink, err := s.sink(path)
	if err != nil {
		return err
	}
	return sink.WriteSmoothed(path, series)
}
