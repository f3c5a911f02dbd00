package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the planrecon command tree
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "planrecon",
		Short: "Reconcile article-level forecasts with customer-level sales plans",
		Long: `planrecon scales granular forecast records so that their sum per customer
group and month matches an authoritative top-down plan, verifies the result,
and cleans historical demand series of dropouts and statistical lows.

Configuration is resolved from built-in defaults, an optional YAML file
(--config), PLANRECON_* environment variables and finally command flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(root)

	root.AddCommand(
		newReconcileCommand(opts),
		newVerifyCommand(opts),
		newSmoothCommand(opts),
		newAnalyzeCommand(opts),
		newImportPlanCommand(opts),
	)
	return root
}
