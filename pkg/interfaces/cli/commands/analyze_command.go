package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/planrecon/pkg/config"
)

type analyzeOptions struct {
	history     string
	trendWindow int
	topGroups   int
	series      seriesFlags
}

func newAnalyzeCommand(global *GlobalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Describe the market trend, volatility and largest groups of a demand history",
		Example: `  # Trend and rankings as an xlsx report
  planrecon analyze --history data/history.xlsx -f xlsx -o reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.history, "history", "", "Demand history dataset (.csv or .xlsx)")
	cmd.Flags().IntVar(&opts.trendWindow, "trend-window", 0, "Rolling mean window of the market trend")
	cmd.Flags().IntVar(&opts.topGroups, "top", 0, "Number of groups in the volume ranking")
	opts.series.register(cmd)
	_ = cmd.MarkFlagRequired("history")

	return cmd
}

func runAnalyze(cmd *cobra.Command, global *GlobalOptions, opts *analyzeOptions) error {
	a, err := newApp(cmd, global, func(cfg *config.Config) error {
		if cmd.Flags().Changed("trend-window") {
			cfg.Analysis.TrendWindow = opts.trendWindow
		}
		if cmd.Flags().Changed("top") {
			cfg.Analysis.TopGroups = opts.topGroups
		}
		opts.series.apply(cmd, cfg)
		return nil
	})
	if err != nil {
		return err
	}

	run, err := a.orchestrator.RunAnalysis(cmd.Context(), opts.history)
	if err != nil {
		return err
	}
	return a.finish(cmd, run)
}
