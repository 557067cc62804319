package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/ledger"
)

// DebtOptions holds flags shared by the debt subcommands.
type DebtOptions struct {
	*RootOptions
	Severity    string
	Amount      float64
	ActionType  string
	Description string
	Method      string
	Status      string
	User        string
	MaxDepth    int
}

// NewDebtCommand creates the debt command group.
func NewDebtCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debt",
		Short: "Manage the debt network between users",
		Long: `Create, repay and transfer debt edges, and inspect the network they
form.`,
	}

	cmd.AddCommand(newDebtCreateCommand(&DebtOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newDebtRepayCommand(&DebtOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newDebtTransferCommand(&DebtOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newDebtSummaryCommand(&DebtOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newDebtListCommand(&DebtOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newDebtCommunitiesCommand(&DebtOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newDebtCyclesCommand(&DebtOptions{RootOptions: rootOpts}))

	return cmd
}

func newDebtCreateCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "create <debtor> <receiver>",
		Short:         "Open a debt edge from debtor to receiver",
		Example:       `  karma debt create alice bob --severity major --amount 10`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtCreate(opts, args[0], args[1], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Severity, "severity", ledger.SeverityMinor.String(), "debt severity (minor|medium|major)")
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "debt amount (must be positive)")
	cmd.Flags().StringVar(&opts.ActionType, "action", "manual", "action type recorded on the edge")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "free-text description")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runDebtCreate(opts *DebtOptions, debtorID, receiverID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	sev, err := ledger.ParseSeverity(opts.Severity)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --severity", err)
	}
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		e, err := a.tracker.CreateDebt(cmd.Context(), debtorID, receiverID, sev, opts.Amount, opts.ActionType, opts.Description)
		if err != nil {
			return domainError("debt not created", err)
		}
		return formatter.Success(e)
	})
}

func newDebtRepayCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "repay <edge-id>",
		Short:         "Repay part or all of a debt edge",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtRepay(opts, args[0], cmd)
		},
	}
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "amount to repay (clamped to the remaining balance)")
	cmd.Flags().StringVar(&opts.Method, "method", "seva", "repayment method")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runDebtRepay(opts *DebtOptions, edgeID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		e, err := a.tracker.RepayDebt(cmd.Context(), edgeID, opts.Amount, opts.Method)
		if err != nil {
			return domainError("repayment rejected", err)
		}
		return formatter.Success(e)
	})
}

func newDebtTransferCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "transfer <edge-id> <new-debtor>",
		Short:         "Move the remaining balance of an edge to a new debtor",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtTransfer(opts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDebtTransfer(opts *DebtOptions, edgeID, newDebtorID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		e, err := a.tracker.TransferDebt(cmd.Context(), edgeID, newDebtorID)
		if err != nil {
			return domainError("transfer rejected", err)
		}
		return formatter.Success(e)
	})
}

// DebtPosition is the output of debt summary.
type DebtPosition struct {
	debt.Summary
	Degree debt.Degree `json:"degree"`
}

func newDebtSummaryCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "summary <user>",
		Short:         "Show what a user owes and is owed",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtSummary(opts, args[0], cmd)
		},
	}
	return cmd
}

func runDebtSummary(opts *DebtOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		network := a.tracker.Debts()
		s, err := network.NetworkSummary(cmd.Context(), userID)
		if err != nil {
			return domainError("summary unavailable", err)
		}
		deg, err := network.Degrees(cmd.Context(), userID)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to count edges", err)
		}
		return formatter.Success(DebtPosition{Summary: s, Degree: deg})
	})
}

// EdgeList is the output of debt list.
type EdgeList struct {
	Edges []debt.Edge `json:"edges"`
}

func newDebtListCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List debt edges",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtList(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.User, "user", "", "only edges where the user is debtor or receiver")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only edges in this status (active|repaid|transferred)")
	return cmd
}

func runDebtList(opts *DebtOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	status := debt.Status(opts.Status)
	if status != "" && !status.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --status %q", opts.Status))
	}
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		edges, err := a.tracker.Debts().Edges(cmd.Context(), debt.EdgeFilter{UserID: opts.User, Status: status})
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list edges", err)
		}
		if edges == nil {
			edges = []debt.Edge{}
		}
		return formatter.Success(EdgeList{Edges: edges})
	})
}

// Groups is the output of debt communities and debt cycles.
type Groups struct {
	Groups [][]string `json:"groups"`
}

func newDebtCommunitiesCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "communities",
		Short:         "Group users connected by active debt edges",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtCommunities(opts, cmd)
		},
	}
	return cmd
}

func runDebtCommunities(opts *DebtOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		groups, err := a.tracker.Debts().Communities(cmd.Context())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to compute communities", err)
		}
		if groups == nil {
			groups = [][]string{}
		}
		return formatter.Success(Groups{Groups: groups})
	})
}

func newDebtCyclesCommand(opts *DebtOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles <user>",
		Short: "Find obligation cycles through a user",
		Long: `Find active obligation cycles through a user. Requires the Neo4j graph
mirror (graph.uri in config or KARMA_GRAPH_URI); the mirror is resynced
from the store before the query.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebtCycles(opts, args[0], cmd)
		},
	}
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 6, "maximum cycle length in hops")
	return cmd
}

func runDebtCycles(opts *DebtOptions, userID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		if a.mirror == nil {
			return NewExitError(ExitCommandError, "graph mirror is not configured")
		}
		ctx := cmd.Context()
		edges, err := a.tracker.Debts().Edges(ctx, debt.EdgeFilter{})
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list edges", err)
		}
		if err := a.mirror.Sync(ctx, edges); err != nil {
			return WrapExitError(ExitFailure, "failed to sync graph mirror", err)
		}
		cycles, err := a.mirror.Cycles(ctx, userID, opts.MaxDepth)
		if err != nil {
			return WrapExitError(ExitFailure, "cycle query failed", err)
		}
		if cycles == nil {
			cycles = [][]string{}
		}
		return formatter.Success(Groups{Groups: cycles})
	})
}
