package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconctl/internal/scenario"
)

type simulateReport struct {
	Scenario string         `json:"scenario"`
	Steps    []stepReport   `json:"steps"`
	Events   []eventRecord  `json:"events"`
	Beacons  []beaconReport `json:"beacons"`
}

type stepReport struct {
	Index   int    `json:"index"`
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

type beaconReport struct {
	Beacon         string `json:"beacon"`
	Implementation string `json:"implementation"`
}

// NewSimulateCommand creates the simulate command: load a scenario file, run
// it against the in-memory network, and report the trace. A step outcome that
// does not match its expect clause fails the command.
func NewSimulateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a governance scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "load scenario", err)
			}
			res, err := scenario.Run(cmd.Context(), s)
			if err != nil {
				return WrapExitError(ExitFailure, "scenario failed", err)
			}

			report := simulateReport{Scenario: s.Name}
			for _, st := range res.Steps {
				report.Steps = append(report.Steps, stepReport{
					Index:   st.Index,
					Op:      st.Op,
					Outcome: st.Outcome,
					Message: st.Message,
				})
			}
			for _, ev := range res.Events {
				report.Events = append(report.Events, eventRecord{
					ID:      ev.ID,
					Seq:     ev.Seq,
					At:      ev.At.UTC(),
					Kind:    string(ev.Kind),
					Payload: ev.Payload,
				})
			}
			for _, pair := range s.Beacons {
				addr, err := scenario.ResolveAddress(s, pair.Beacon)
				if err != nil {
					return WrapExitError(ExitCommandError, "resolve beacon", err)
				}
				report.Beacons = append(report.Beacons, beaconReport{
					Beacon:         addr.String(),
					Implementation: res.Network.BeaconImplementation(addr).String(),
				})
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(report, func(w io.Writer) { writeSimulateText(w, report) })
		},
	}
}

func writeSimulateText(w io.Writer, r simulateReport) {
	fmt.Fprintf(w, "Scenario %s: %d steps ok\n", r.Scenario, len(r.Steps))
	for _, st := range r.Steps {
		fmt.Fprintf(w, "  [%d] %-40s %s\n", st.Index, st.Op, st.Outcome)
	}
	if len(r.Events) > 0 {
		fmt.Fprintf(w, "Events:\n")
		for _, ev := range r.Events {
			fmt.Fprintf(w, "  %6d  %s  %s\n", ev.Seq, ev.At.Format(time.RFC3339), ev.Kind)
		}
	}
	fmt.Fprintf(w, "Final beacon implementations:\n")
	for _, b := range r.Beacons {
		fmt.Fprintf(w, "  %s -> %s\n", b.Beacon, b.Implementation)
	}
}
