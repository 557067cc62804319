package cli

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <user>",
		Short: "Show a user's ledger, score and guidance",
		Long: `Show a user's karmic record together with the weighted score, the
loka it projects to, the death threshold state, the debt position and
corrective guidance.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		st, err := a.tracker.Status(cmd.Context(), userID)
		if err != nil {
			return domainError("status unavailable", err)
		}
		return formatter.Success(st)
	})
}

// UserList is the output of the users command.
type UserList struct {
	Users []string `json:"users"`
}

// NewUsersCommand creates the users command.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "users",
		Short:         "List every stored user id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(rootOpts, cmd)
		},
	}
	return cmd
}

func runUsers(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		ids, err := a.store.ListUsers(cmd.Context())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list users", err)
		}
		if ids == nil {
			ids = []string{}
		}
		return formatter.Success(UserList{Users: ids})
	})
}
