package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

// NewLifecycleCommand creates the lifecycle command group.
func NewLifecycleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Drive the death and rebirth lifecycle",
		Long: `Adjust Prarabdha, check the death threshold, record deaths and create
successor records on rebirth.`,
	}

	cmd.AddCommand(newPrarabdhaCommand(rootOpts))
	cmd.AddCommand(newCheckCommand(rootOpts))
	cmd.AddCommand(newDeathCommand(rootOpts))
	cmd.AddCommand(newRebirthCommand(rootOpts))

	return cmd
}

// PrarabdhaResult is the output of lifecycle prarabdha.
type PrarabdhaResult struct {
	Record    ledger.Record     `json:"record"`
	Threshold lifecycle.Details `json:"threshold"`
}

func newPrarabdhaCommand(rootOpts *RootOptions) *cobra.Command {
	var delta float64
	cmd := &cobra.Command{
		Use:   "prarabdha <user>",
		Short: "Add delta to a user's Prarabdha",
		Example: `  karma lifecycle prarabdha alice --delta 25
  karma lifecycle prarabdha alice --delta=-50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrarabdha(rootOpts, args[0], delta, cmd)
		},
	}
	cmd.Flags().Float64Var(&delta, "delta", 0, "amount to add (negative to subtract)")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func runPrarabdha(opts *RootOptions, userID string, delta float64, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		rec, d, err := a.tracker.UpdatePrarabdha(cmd.Context(), userID, delta)
		if err != nil {
			return domainError("prarabdha not updated", err)
		}
		return formatter.Success(PrarabdhaResult{Record: rec, Threshold: d})
	})
}

// ThresholdCheck is the output of lifecycle check.
type ThresholdCheck struct {
	Reached bool              `json:"reached"`
	Details lifecycle.Details `json:"details"`
}

func newCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "check <user>",
		Short:         "Report whether a user has reached the death threshold",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		reached, d, err := a.tracker.CheckDeathThreshold(cmd.Context(), userID)
		if err != nil {
			return domainError("threshold check failed", err)
		}
		return formatter.Success(ThresholdCheck{Reached: reached, Details: d})
	})
}

func newDeathCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "death <user>",
		Short:         "Record a death for a user at the threshold",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeath(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDeath(opts *RootOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		res, err := a.tracker.TriggerDeath(cmd.Context(), userID)
		if err != nil {
			return domainError("death not recorded", err)
		}
		formatter.VerboseLog("%s assigned to %s", userID, res.Loka)
		return formatter.Success(res)
	})
}

func newRebirthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rebirth <user>",
		Short:         "Create the successor record of a dead user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebirth(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRebirth(opts *RootOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		res, err := a.tracker.Rebirth(cmd.Context(), userID)
		if err != nil {
			return domainError("rebirth rejected", err)
		}
		formatter.VerboseLog("%s reborn as %s", res.OldUserID, res.NewUserID)
		return formatter.Success(res)
	})
}
