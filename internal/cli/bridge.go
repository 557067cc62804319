package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/karmatracker/internal/bridge"
)

// NewBridgeCommand creates the bridge command group.
func NewBridgeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Inspect the signed signal bridge",
	}
	cmd.AddCommand(newBridgeHealthCommand(rootOpts))
	return cmd
}

// HealthResult is the output of bridge health.
type HealthResult struct {
	Endpoint string              `json:"endpoint"`
	Status   bridge.BridgeStatus `json:"status"`
}

func newBridgeHealthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Ping the receiving system",
		Long: `Send a signed ping to the bridge health endpoint and report the status:
active, degraded (slow or non-2xx) or offline (unreachable).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridgeHealth(rootOpts, cmd)
		},
	}
	return cmd
}

func runBridgeHealth(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	return withApp(cmd.Context(), opts, cmd.ErrOrStderr(), func(a *app) error {
		if a.bridge == nil {
			return NewExitError(ExitCommandError, "bridge is not configured")
		}
		status := a.bridge.HealthCheck(cmd.Context())
		res := HealthResult{Endpoint: a.cfg.Bridge.Endpoint, Status: status}
		if status == bridge.StatusOffline {
			_ = formatter.Success(res)
			return NewExitError(ExitFailure, "bridge is offline")
		}
		return formatter.Success(res)
	})
}
