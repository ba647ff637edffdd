package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconctl/internal/governance"
	"github.com/roach88/beaconctl/internal/store"
)

type eventRecord struct {
	ID      string         `json:"id"`
	Seq     int64          `json:"seq"`
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// NewEventsCommand creates the events command: the governance journal in seq
// order, optionally filtered by kind.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the governance journal",
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

			events, err := db.Events(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "read events", err)
			}

			records := make([]eventRecord, 0, len(events))
			for _, ev := range events {
				if kind != "" && string(ev.Kind) != kind {
					continue
				}
				records = append(records, eventRecord{
					ID:      ev.ID,
					Seq:     ev.Seq,
					At:      ev.At.UTC(),
					Kind:    string(ev.Kind),
					Payload: ev.Payload,
				})
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(records, func(w io.Writer) { writeEventsText(w, records) })
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", fmt.Sprintf("filter by event kind (e.g. %q)", governance.EventTimelockInitiated))
	return cmd
}

func writeEventsText(w io.Writer, records []eventRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%6d  %s  %-22s  %s\n", r.Seq, r.At.Format(time.RFC3339), r.Kind, r.ID)
		keys := make([]string, 0, len(r.Payload))
		for k := range r.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "        %s: %v\n", k, r.Payload[k])
		}
	}
}
