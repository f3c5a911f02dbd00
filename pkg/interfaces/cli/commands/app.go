package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vsinha/planrecon/pkg/application/dto"
	"github.com/vsinha/planrecon/pkg/application/services/analysis"
	"github.com/vsinha/planrecon/pkg/application/services/orchestration"
	"github.com/vsinha/planrecon/pkg/application/services/reconciliation"
	"github.com/vsinha/planrecon/pkg/application/services/smoothing"
	"github.com/vsinha/planrecon/pkg/application/services/verification"
	"github.com/vsinha/planrecon/pkg/config"
	"github.com/vsinha/planrecon/pkg/infrastructure/events"
	"github.com/vsinha/planrecon/pkg/infrastructure/logging"
	"github.com/vsinha/planrecon/pkg/infrastructure/metrics"
	"github.com/vsinha/planrecon/pkg/infrastructure/repositories/dataset"
	"github.com/vsinha/planrecon/pkg/interfaces/cli/output"
)

// ErrVerificationFailed is returned when a consistency check ends with a FAIL verdict
var ErrVerificationFailed = errors.New("verification failed")

// GlobalOptions holds the flags shared by every command
type GlobalOptions struct {
	ConfigPath  string
	OutputDir   string
	Format      string
	LogLevel    string
	LogFormat   string
	Charts      bool
	MetricsFile string
	EventsFile  string
	Verbose     bool
}

func (o *GlobalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to YAML configuration file")
	flags.StringVarP(&o.OutputDir, "output", "o", "", "Output directory for results")
	flags.StringVarP(&o.Format, "format", "f", "", "Output format: text, json, csv, xlsx")
	flags.StringVar(&o.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&o.LogFormat, "log-format", "", "Log format: console, json")
	flags.BoolVar(&o.Charts, "charts", false, "Render PNG charts into <output>/images")
	flags.StringVar(&o.MetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	flags.StringVar(&o.EventsFile, "events-file", "", "Write the run's event journal as JSON to this file")
	flags.BoolVarP(&o.Verbose, "verbose", "v", false, "Enable verbose output")
}

// app wires configuration, infrastructure and services for one command
type app struct {
	cfg          *config.Config
	opts         *GlobalOptions
	recorder     *metrics.Recorder
	eventStore   *events.InMemoryEventStore
	orchestrator *orchestration.PipelineOrchestrator
}

// newApp resolves the configuration (defaults, file, environment, flags) and builds the pipeline.
// override applies command-specific flags before validation.
func newApp(cmd *cobra.Command, opts *GlobalOptions, override func(*config.Config) error) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir = opts.OutputDir
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.Format
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.LogFormat
	}
	if flags.Changed("charts") {
		cfg.Output.Charts = opts.Charts
	}
	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile = opts.MetricsFile
	}
	if flags.Changed("events-file") {
		cfg.Output.EventsFile = opts.EventsFile
	}
	if override != nil {
		if err := override(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.SetupWithWriter(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	reconcilerConfig, err := cfg.ReconcilerConfig()
	if err != nil {
		return nil, err
	}
	verifierConfig, err := cfg.VerifierConfig()
	if err != nil {
		return nil, err
	}
	smoother, err := smoothing.NewSmootherWithConfig(cfg.SmootherConfig())
	if err != nil {
		return nil, err
	}
	analyzerConfig, err := cfg.AnalyzerConfig()
	if err != nil {
		return nil, err
	}
	analyzer, err := analysis.NewAnalyzerWithConfig(analyzerConfig)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		opts:       opts,
		recorder:   metrics.NewRecorder(),
		eventStore: events.NewInMemoryEventStore(),
	}
	a.orchestrator = orchestration.NewPipelineOrchestrator(
		dataset.NewStore(cfg.StoreConfig()),
		reconciliation.NewEngineWithConfig(reconcilerConfig),
		verification.NewVerifierWithConfig(verifierConfig),
		smoother,
		analyzer,
		a.eventStore,
		a.recorder,
	)

	log.Debug().
		Str("config", opts.ConfigPath).
		Str("output_dir", cfg.Output.Dir).
		Str("format", cfg.Output.Format).
		Msg("Configuration resolved")

	return a, nil
}

// datasetPath returns explicit when set, otherwise name plus the format's dataset extension inside the output directory
func (a *app) datasetPath(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(a.cfg.Output.Dir, name+output.DatasetExtension(a.cfg.Output.Format))
}

// finish renders the run and writes the metrics and event journal files
func (a *app) finish(cmd *cobra.Command, run *dto.PipelineRun) error {
	if err := output.Generate(run, output.Config{
		Format:    a.cfg.Output.Format,
		OutputDir: a.cfg.Output.Dir,
		Charts:    a.cfg.Output.Charts,
		Verbose:   a.opts.Verbose,
		Stdout:    cmd.OutOrStdout(),
	}); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if path := a.cfg.Output.MetricsFile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("error writing metrics: %w", err)
		}
		if err := a.recorder.WriteTextfile(path); err != nil {
			return fmt.Errorf("error writing metrics: %w", err)
		}
	}

	if path := a.cfg.Output.EventsFile; path != "" {
		if err := a.writeEvents(path, run.RunID); err != nil {
			return fmt.Errorf("error writing event journal: %w", err)
		}
	}
	return nil
}

func (a *app) writeEvents(path, runID string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.eventStore.ExportJSON(f, runID); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
