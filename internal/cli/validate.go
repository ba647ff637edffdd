package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/beaconctl/internal/scenario"
)

type validateReport struct {
	File  string `json:"file"`
	Name  string `json:"name"`
	Steps int    `json:"steps"`
}

// NewValidateCommand creates the validate command: schema-check scenario
// files without running them.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate governance scenario files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reports []validateReport
			for _, path := range args {
				s, err := scenario.Load(path)
				if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("validate %s", path), err)
				}
				reports = append(reports, validateReport{
					File:  path,
					Name:  s.Name,
					Steps: len(s.Steps),
				})
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(reports, func(w io.Writer) {
				for _, r := range reports {
					fmt.Fprintf(w, "%s: ok (%s, %d steps)\n", r.File, r.Name, r.Steps)
				}
			})
		},
	}
}
