package xlsx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/planrecon/pkg/domain/entities"
	domainerrors "github.com/vsinha/planrecon/pkg/domain/errors"
	"github.com/vsinha/planrecon/pkg/domain/repositories"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/tabular"
)

// Sheet is a named table inside a workbook
type Sheet struct {
	Name  string
	Table tabular.Table
}

// Writer writes result datasets as xlsx workbooks
type Writer struct{}

// NewWriter creates a workbook writer
func NewWriter() *Writer {
	return &Writer{}
}

// Verify interface compliance
var _ repositories.RecordSink = (*Writer)(nil)

func (w *Writer) WriteReconciled(path string, records []entities.ReconciledRecord) error {
	return w.WriteWorkbook(path, Sheet{Name: "reconciled", Table: tabular.ReconciledTable(records)})
}

func (w *Writer) WriteFactors(path string, factors []entities.ReconciliationFactor) error {
	return w.WriteWorkbook(path, Sheet{Name: "factors", Table: tabular.FactorTable(factors)})
}

func (w *Writer) WriteDiscrepancies(path string, discrepancies []entities.Discrepancy) error {
	return w.WriteWorkbook(path, Sheet{Name: "discrepancies", Table: tabular.DiscrepancyTable(discrepancies)})
}

func (w *Writer) WritePlan(path string, targets []entities.PlanTarget) error {
	return w.WriteWorkbook(path, Sheet{Name: "plan", Table: tabular.PlanTable(targets)})
}

func (w *Writer) WriteSmoothed(path string, series []entities.SmoothedSeries) error {
	return w.WriteWorkbook(path, Sheet{Name: "smoothed", Table: tabular.SmoothedTable(series)})
}

// WriteWorkbook writes every sheet in order into a new workbook. The header
// row is bold and frozen.
func (w *Writer) WriteWorkbook(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return domainerrors.NewIOError("failed to create header style", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return domainerrors.NewIOError(fmt.Sprintf("failed to name sheet %s", sheet.Name), err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return domainerrors.NewIOError(fmt.Sprintf("failed to add sheet %s", sheet.Name), err)
		}

		if err := writeSheet(f, sheet, bold); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to create directory for %s", path), err)
	}
	if err := f.SaveAs(path); err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to save workbook %s", path), err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	header := make([]interface{}, len(sheet.Table.Header))
	for i, h := range sheet.Table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return domainerrors.NewIOError(fmt.Sprintf("failed to write header of %s", sheet.Name), err)
	}

	if len(header) > 0 {
		last, err := excelize.ColumnNumberToName(len(header))
		if err != nil {
			return domainerrors.NewIOError("invalid header width", err)
		}
		if err := f.SetCellStyle(sheet.Name, "A1", last+"1", headerStyle); err != nil {
			return domainerrors.NewIOError(fmt.Sprintf("failed to style header of %s", sheet.Name), err)
		}
		if err := f.SetPanes(sheet.Name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return domainerrors.NewIOError(fmt.Sprintf("failed to freeze header of %s", sheet.Name), err)
		}
	}

	for i, row := range sheet.Table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return domainerrors.NewIOError("invalid row coordinates", err)
		}
		values := make([]interface{}, len(row))
		copy(values, row)
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return domainerrors.NewIOError(fmt.Sprintf("failed to write row %d of %s", i+2, sheet.Name), err)
		}
	}
	return nil
}
