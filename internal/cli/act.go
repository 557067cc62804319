package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/karmatracker/internal/tracker"
)

// ActOptions holds flags for the act command.
type ActOptions struct {
	*RootOptions
	Intensity   float64
	Affected    string
	Description string
}

// NewActCommand creates the act command.
func NewActCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "act <user> <action>",
		Short: "Evaluate an action for a user",
		Long: `Evaluate a named action for a user and update their ledger.

The user's ledger is created on first sight. A harmful action with
--affected opens a debt edge toward the affected user.`,
		Example: `  karma act alice helping_peers
  karma act alice harming_others --affected bob --intensity 2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAct(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Intensity, "intensity", 1, "intensity multiplier for the base reward")
	cmd.Flags().StringVar(&opts.Affected, "affected", "", "user harmed by the action")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "free-text description")

	return cmd
}

func runAct(opts *ActOptions, userID, action string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		res, err := a.tracker.SubmitAction(cmd.Context(), tracker.ActionRequest{
			UserID:         userID,
			Action:         action,
			Intensity:      opts.Intensity,
			AffectedUserID: opts.Affected,
			Description:    opts.Description,
		})
		if err != nil {
			return domainError("action rejected", err)
		}
		formatter.VerboseLog("Evaluated %s for %s: score %.2f -> %.2f", action, userID, res.Impact.ScoreBefore, res.Impact.ScoreAfter)
		return formatter.Success(res)
	})
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "register <user>",
		Short:         "Create an empty ledger for a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRegister(opts *RootOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		rec, err := a.tracker.Register(cmd.Context(), userID)
		if err != nil {
			return domainError("registration failed", err)
		}
		return formatter.Success(rec)
	})
}
