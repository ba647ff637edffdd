package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconctl/internal/governance"
	"github.com/roach88/beaconctl/internal/store"
)

// statusReport is the status command's payload.
type statusReport struct {
	Owner            string              `json:"owner"`
	PendingOwner     string              `json:"pending_owner,omitempty"`
	Heartbeater      string              `json:"heartbeater"`
	LastHeartbeat    time.Time           `json:"last_heartbeat"`
	HeartbeatExpires time.Time           `json:"heartbeat_expires"`
	HeartbeatExpired bool                `json:"heartbeat_expired"`
	Contingencies    []contingencyReport `json:"contingencies,omitempty"`
}

type contingencyReport struct {
	Controller     string     `json:"controller"`
	Beacon         string     `json:"beacon"`
	Armed          bool       `json:"armed"`
	Activated      bool       `json:"activated"`
	ActivationTime *time.Time `json:"activation_time,omitempty"`
}

// NewStatusCommand creates the status command: ownership, heartbeat, and
// live contingency records from the governance database.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show governance state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.DBPath); err != nil {
				return WrapExitError(ExitCommandError, "database not found", err)
			}
			db, err := store.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			report := statusReport{}

			own, ok, err := db.Ownership(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "read ownership", err)
			}
			if !ok {
				return WrapExitError(ExitCommandError, "database is not initialized", nil)
			}
			report.Owner = own.Owner.String()
			if !own.PendingOwner.IsNull() {
				report.PendingOwner = own.PendingOwner.String()
			}

			hb, _, err := db.Heartbeat(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "read heartbeat", err)
			}
			report.Heartbeater = hb.Heartbeater.String()
			report.LastHeartbeat = hb.LastHeartbeat.UTC()

			monitor := governance.NewMonitor(governance.SystemClock())
			status, err := monitor.Status(ctx, db)
			if err != nil {
				return WrapExitError(ExitCommandError, "read heartbeat status", err)
			}
			report.HeartbeatExpires = status.ExpiresAt.UTC()
			report.HeartbeatExpired = status.Expired

			entries, err := db.ListContingencies(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list contingencies", err)
			}
			for _, e := range entries {
				cr := contingencyReport{
					Controller: e.Controller.String(),
					Beacon:     e.Beacon.String(),
					Armed:      e.Record.Armed,
					Activated:  e.Record.Activated,
				}
				if !e.Record.ActivationTime.IsZero() {
					at := e.Record.ActivationTime.UTC()
					cr.ActivationTime = &at
				}
				report.Contingencies = append(report.Contingencies, cr)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(report, func(w io.Writer) { writeStatusText(w, report) })
		},
	}
}

func writeStatusText(w io.Writer, r statusReport) {
	fmt.Fprintf(w, "Owner:             %s\n", r.Owner)
	if r.PendingOwner != "" {
		fmt.Fprintf(w, "Pending owner:     %s\n", r.PendingOwner)
	}
	fmt.Fprintf(w, "Heartbeater:       %s\n", r.Heartbeater)
	fmt.Fprintf(w, "Last heartbeat:    %s\n", r.LastHeartbeat.Format(time.RFC3339))
	fmt.Fprintf(w, "Heartbeat expires: %s\n", r.HeartbeatExpires.Format(time.RFC3339))
	fmt.Fprintf(w, "Heartbeat expired: %t\n", r.HeartbeatExpired)
	if len(r.Contingencies) == 0 {
		fmt.Fprintln(w, "Contingencies:     none")
		return
	}
	fmt.Fprintln(w, "Contingencies:")
	for _, c := range r.Contingencies {
		state := "disarmed"
		switch {
		case c.Activated:
			state = "activated"
		case c.Armed:
			state = "armed"
		}
		fmt.Fprintf(w, "  %s / %s: %s", c.Controller, c.Beacon, state)
		if c.ActivationTime != nil {
			fmt.Fprintf(w, " since %s", c.ActivationTime.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
}
