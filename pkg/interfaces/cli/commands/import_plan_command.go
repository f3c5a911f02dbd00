package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/planrecon/pkg/application/services/orchestration"
	"github.com/vsinha/planrecon/pkg/config"
)

type importPlanOptions struct {
	widePlan   string
	out        string
	multiplier float64
}

func newImportPlanCommand(global *GlobalOptions) *cobra.Command {
	opts := &importPlanOptions{}

	cmd := &cobra.Command{
		Use:   "import-plan",
		Short: "Convert a wide plan workbook into a long plan dataset",
		Long: `Import-plan reads a plan workbook with one row per customer group and
twelve month columns per year block, and writes one target per (group, month).
Blank cells count as zero; duplicate groups are summed.`,
		Example: `  # Plan kept in thousands of units
  planrecon import-plan --wide-plan data/BAUMARKTPROGRAMM.xlsx --multiplier 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportPlan(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.widePlan, "wide-plan", "", "Wide plan workbook (.xlsx or .csv)")
	cmd.Flags().StringVar(&opts.out, "plan", "", "Long plan path (default <output>/plan.<ext>)")
	cmd.Flags().Float64Var(&opts.multiplier, "multiplier", 0, "Unit multiplier applied to every cell")
	_ = cmd.MarkFlagRequired("wide-plan")

	return cmd
}

func runImportPlan(cmd *cobra.Command, global *GlobalOptions, opts *importPlanOptions) error {
	a, err := newApp(cmd, global, func(cfg *config.Config) error {
		if cmd.Flags().Changed("multiplier") {
			cfg.Input.WidePlan.UnitMultiplier = opts.multiplier
		}
		return nil
	})
	if err != nil {
		return err
	}

	run, err := a.orchestrator.ImportPlan(cmd.Context(), orchestration.ImportRequest{
		WidePlanPath: opts.widePlan,
		OutputPath:   a.datasetPath(opts.out, "plan"),
	})
	if err != nil {
		return err
	}
	return a.finish(cmd, run)
}
