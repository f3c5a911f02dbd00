package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

// Writer writes result datasets as CSV files
type Writer struct {
	comma rune
}

// NewWriter creates a CSV writer using ',' as separator
func NewWriter() *Writer {
	return &Writer{comma: ','}
}

// NewWriterWithComma creates a CSV writer with a custom separator
func NewWriterWithComma(comma rune) *Writer {
	if comma == 0 {
		comma = ','
	}
	return &Writer{comma: comma}
}

// Verify interface compliance
var _ repositories.RecordSink = (*Writer)(nil)

func (w *Writer) WriteReconciled(path string, records []entities.ReconciledRecord) error {
	return w.WriteTable(path, tabular.ReconciledTable(records))
}

func (w *Writer) WriteFactors(path string, factors []entities.ReconciliationFactor) error {
	return w.WriteTable(path, tabular.FactorTable(factors))
}

func (w *Writer) WriteDiscrepancies(path string, discrepancies []entities.Discrepancy) error {
	return w.WriteTable(path, tabular.DiscrepancyTable(discrepancies))
}

func (w *Writer) WritePlan(path string, targets []entities.PlanTarget) error {
	return w.WriteTable(path, tabular.PlanTable(targets))
}

func (w *Writer) WriteSmoothed(path string, series []entities.SmoothedSeries) error {
	return w.WriteTable(path, tabular.SmoothedTable(series))
}

// WriteTable writes a header and rows, creating parent directories as needed
func (w *Writer) WriteTable(path string, table tabular.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to create directory for %s", path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to create %s", path), err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = w.comma

	if err := writer.Write(table.Header); err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to write header to %s", path), err)
	}
	if err := writer.WriteAll(table.StringRows()); err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to write rows to %s", path), err)
	}
	return nil
}
