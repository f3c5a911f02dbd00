package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/planrecon/pkg/application/services/orchestration"
	"github.com/vsinha/planrecon/pkg/config"
)

// seriesFlags override how demand history is grouped into series
type seriesFlags struct {
	keyFields string
}

func (f *seriesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.keyFields, "key-fields", "", "Series grouping: group, category, group+category or article")
}

func (f *seriesFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("key-fields") {
		cfg.Smoothing.KeyFields = f.keyFields
	}
}

type smoothOptions struct {
	history       string
	out           string
	window        int
	includeCenter bool
	fillGaps      bool
	series        seriesFlags
}

func newSmoothCommand(global *GlobalOptions) *cobra.Command {
	opts := &smoothOptions{}

	cmd := &cobra.Command{
		Use:   "smooth",
		Short: "Detect and replace dropouts and statistical lows in demand history",
		Long: `Smooth aggregates the demand history into one monthly series per key and
flags points that fall far below their centered moving average. Flagged points
are replaced by the moving average; all others are kept.`,
		Example: `  # Smooth per customer with a 5 month window
  planrecon smooth --history data/history.xlsx --window 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmooth(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.history, "history", "", "Demand history dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&opts.out, "smoothed", "", "Smoothed series path (default <output>/smoothed.<ext>)")
	cmd.Flags().IntVar(&opts.window, "window", 0, "Odd moving average window")
	cmd.Flags().BoolVar(&opts.includeCenter, "include-center", true, "Include the point itself in its moving average (false: neighbors only)")
	cmd.Flags().BoolVar(&opts.fillGaps, "fill-gaps", false, "Insert missing months as zero before smoothing")
	opts.series.register(cmd)
	_ = cmd.MarkFlagRequired("history")

	return cmd
}

func runSmooth(cmd *cobra.Command, global *GlobalOptions, opts *smoothOptions) error {
	a, err := newApp(cmd, global, func(cfg *config.Config) error {
		if cmd.Flags().Changed("window") {
			cfg.Smoothing.Window = opts.window
		}
		if cmd.Flags().Changed("include-center") {
			cfg.Smoothing.IncludeCenter = opts.includeCenter
		}
		if cmd.Flags().Changed("fill-gaps") {
			cfg.Smoothing.FillGaps = opts.fillGaps
		}
		opts.series.apply(cmd, cfg)
		return nil
	})
	if err != nil {
		return err
	}

	fields, err := a.cfg.KeyFields()
	if err != nil {
		return err
	}

	run, err := a.orchestrator.RunSmoothing(cmd.Context(), orchestration.SmoothRequest{
		HistoryPath: opts.history,
		KeyFields:   fields,
		OutputPath:  a.datasetPath(opts.out, "smoothed"),
	})
	if err != nil {
		return err
	}
	return a.finish(cmd, run)
}
