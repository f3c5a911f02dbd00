package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/planrecon/pkg/application/dto"
	csvrepo "github.com/vsinha/planrecon/pkg/infrastructure/repositories/csv"
	xlsxrepo "github.com/vsinha/planrecon/pkg/infrastructure/repositories/xlsx"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Charts    bool
	Verbose   bool
	// Stdout receives the summary; nil means os.Stdout
	Stdout io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// DatasetExtension returns the file extension used for dataset outputs of a format
func DatasetExtension(format string) string {
	if format == FormatXLSX {
		return ".xlsx"
	}
	return ".csv"
}

// Generate renders a pipeline run in the specified format and, when enabled, its charts
func Generate(run *dto.PipelineRun, config Config) error {
	var err error
	switch config.Format {
	case FormatText, "":
		err = WriteText(config.stdout(), run)
	case FormatJSON:
		err = generateJSONOutput(run, config)
	case FormatCSV:
		err = generateCSVOutput(run, config)
	case FormatXLSX:
		err = generateXLSXOutput(run, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
	if err != nil {
		return err
	}

	if config.Charts && config.OutputDir != "" {
		paths, err := WriteCharts(run, filepath.Join(config.OutputDir, "images"))
		if err != nil {
			return fmt.Errorf("failed to render charts: %w", err)
		}
		for _, path := range paths {
			run.Outputs = append(run.Outputs, dto.OutputFile{Kind: "chart", Path: path})
			if config.Verbose {
				fmt.Fprintf(config.stdout(), "🖼️  Chart saved to: %s\n", path)
			}
		}
	}
	return nil
}

// generateJSONOutput prints the run as JSON, or saves it when an output directory is set
func generateJSONOutput(run *dto.PipelineRun, config Config) error {
	jsonData, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(config.stdout(), string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, run.Command+"_summary.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	run.Outputs = append(run.Outputs, dto.OutputFile{Kind: "summary", Path: filename})

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one CSV file per report table next to the text summary
func generateCSVOutput(run *dto.PipelineRun, config Config) error {
	if err := WriteText(config.stdout(), run); err != nil {
		return err
	}
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}

	writer := csvrepo.NewWriter()
	for _, sheet := range ReportTables(run) {
		filename := filepath.Join(config.OutputDir, run.Command+"_"+sheet.Name+".csv")
		if err := writer.WriteTable(filename, sheet.Table); err != nil {
			return fmt.Errorf("failed to write %s table: %w", sheet.Name, err)
		}
		run.Outputs = append(run.Outputs, dto.OutputFile{Kind: sheet.Name, Path: filename})
		log.Debug().Str("path", filename).Msg("Report table written")
	}
	return nil
}

// generateXLSXOutput writes all report tables into one workbook next to the text summary
func generateXLSXOutput(run *dto.PipelineRun, config Config) error {
	if err := WriteText(config.stdout(), run); err != nil {
		return err
	}
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for XLSX format")
	}

	sheets := ReportTables(run)
	if len(sheets) == 0 {
		return nil
	}
	filename := filepath.Join(config.OutputDir, run.Command+"_report.xlsx")
	if err := xlsxrepo.NewWriter().WriteWorkbook(filename, sheets...); err != nil {
		return fmt.Errorf("failed to write report workbook: %w", err)
	}
	run.Outputs = append(run.Outputs, dto.OutputFile{Kind: "report", Path: filename})

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 Report saved to: %s\n", filename)
	}
	return nil
}
