package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/planrecon/pkg/application/services/orchestration"
	"github.com/vsinha/planrecon/pkg/config"
)

type verifyOptions struct {
	reconciled    string
	plan          string
	widePlan      bool
	discrepancies string
	verification  verificationFlags
}

func newVerifyCommand(global *GlobalOptions) *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a reconciled dataset against the plan",
		Long: `Verify re-aggregates the scaled quantities of a reconciled dataset per
(group, month) and compares them with the plan targets. The command exits
non-zero when the verdict is FAIL.`,
		Example: `  # Verify with the rounding bound as tolerance
  planrecon verify --reconciled output/reconciled.csv --plan data/plan.csv --tolerance-mode auto`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.reconciled, "reconciled", "", "Reconciled dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&opts.plan, "plan", "", "Plan dataset (.csv or .xlsx)")
	cmd.Flags().BoolVar(&opts.widePlan, "wide-plan", false, "Read the plan as a wide workbook with month columns per year")
	cmd.Flags().StringVar(&opts.discrepancies, "discrepancies", "", "Discrepancy report path (default <output>/discrepancies.<ext>)")
	opts.verification.register(cmd)
	_ = cmd.MarkFlagRequired("reconciled")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runVerify(cmd *cobra.Command, global *GlobalOptions, opts *verifyOptions) error {
	a, err := newApp(cmd, global, func(cfg *config.Config) error {
		opts.verification.apply(cmd, cfg)
		return nil
	})
	if err != nil {
		return err
	}

	run, err := a.orchestrator.RunVerification(cmd.Context(), orchestration.VerifyRequest{
		ReconciledPath:    opts.reconciled,
		PlanPath:          opts.plan,
		WidePlan:          opts.widePlan,
		DiscrepanciesPath: a.datasetPath(opts.discrepancies, "discrepancies"),
	})
	if err != nil {
		return err
	}
	if err := a.finish(cmd, run); err != nil {
		return err
	}

	if run.Failed() {
		return fmt.Errorf("%w: %d of %d pairs outside tolerance", ErrVerificationFailed,
			run.Verification.Summary.PairsOutsideTolerance, run.Verification.Summary.PairsChecked)
	}
	return nil
}
