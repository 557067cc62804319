package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/karmatracker/internal/audit"
)

// AuditOptions holds the range flags of the audit subcommands.
type AuditOptions struct {
	*RootOptions
	From int64
	To   int64 // -1 means the last entry
}

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and verify the audit chain",
		Long: `Every mutation is appended to a hash-chained audit log. These commands
read it back, verify every entry and link, and build Merkle snapshots.`,
	}

	cmd.AddCommand(newAuditVerifyCommand(rootOpts))
	cmd.AddCommand(newAuditLogCommand(&AuditOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newAuditSnapshotCommand(&AuditOptions{RootOptions: rootOpts}))

	return cmd
}

// VerifyResult is the output of audit verify.
type VerifyResult struct {
	Valid   bool  `json:"valid"`
	Entries int64 `json:"entries"`
}

func newAuditVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Verify every audit entry, link and snapshot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditVerify(rootOpts, cmd)
		},
	}
	return cmd
}

func runAuditVerify(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		n, err := a.tracker.Audit().Verify(cmd.Context())
		if err != nil {
			return domainError("audit chain does not verify", err)
		}
		formatter.VerboseLog("Verified %d audit entries", n)
		return formatter.Success(VerifyResult{Valid: true, Entries: n})
	})
}

func addRangeFlags(cmd *cobra.Command, opts *AuditOptions) {
	cmd.Flags().Int64Var(&opts.From, "from", 0, "first ledger index")
	cmd.Flags().Int64Var(&opts.To, "to", -1, "last ledger index (default: last entry)")
}

// resolveRange clamps the flags to the chain. ok is false for an empty chain.
func (o *AuditOptions) resolveRange(chain *audit.Chain) (from, to int64, ok bool, err error) {
	n := chain.Len()
	if n == 0 {
		return 0, 0, false, nil
	}
	from, to = o.From, o.To
	if to < 0 {
		to = n - 1
	}
	if from < 0 || from > to || to >= n {
		return 0, 0, false, NewExitError(ExitCommandError, fmt.Sprintf("invalid range [%d, %d] for %d entries", from, to, n))
	}
	return from, to, true, nil
}

// EntryList is the output of audit log.
type EntryList struct {
	Entries []audit.Entry `json:"entries"`
}

func newAuditLogCommand(opts *AuditOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "log",
		Short:         "Print audit entries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditLog(opts, cmd)
		},
	}
	addRangeFlags(cmd, opts)
	return cmd
}

func runAuditLog(opts *AuditOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		chain := a.tracker.Audit()
		from, to, ok, err := opts.resolveRange(chain)
		if err != nil {
			return err
		}
		entries := []audit.Entry{}
		if ok {
			entries, err = chain.Entries(cmd.Context(), from, to)
			if err != nil {
				return domainError("failed to read audit entries", err)
			}
		}
		return formatter.Success(EntryList{Entries: entries})
	})
}

func newAuditSnapshotCommand(opts *AuditOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapshot",
		Short:         "Build a Merkle snapshot over a range of entries",
		Long:          `Build, without storing, a Merkle snapshot over [--from, --to].`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditSnapshot(opts, cmd)
		},
	}
	addRangeFlags(cmd, opts)
	return cmd
}

func runAuditSnapshot(opts *AuditOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		chain := a.tracker.Audit()
		from, to, ok, err := opts.resolveRange(chain)
		if err != nil {
			return err
		}
		if !ok {
			return NewExitError(ExitFailure, "audit chain is empty")
		}
		snap, err := chain.Snapshot(cmd.Context(), from, to)
		if err != nil {
			return domainError("snapshot failed", err)
		}
		return formatter.Success(snap)
	})
}
