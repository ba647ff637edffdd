// Package cli implements the beaconctl command surface: inspection of a
// governance database (status, events) and deterministic scenario execution
// (simulate, validate).
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string
	Config  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the beaconctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "beaconctl",
		Short: "Beacon upgrade governance",
		Long:  "Inspect governance state and run deterministic governance scenarios.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.Config)
			if err != nil {
				return err
			}
			applyConfig(opts, cmd, cfg)

			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "beaconctl.db", "path to the governance database")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to beaconctl.toml (default: ./beaconctl.toml if present)")

	// Add subcommands
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// applyConfig fills options from the config file for flags the user did not
// set explicitly. Flags always win.
func applyConfig(opts *RootOptions, cmd *cobra.Command, cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.DB != "" && !cmd.Flags().Changed("db") {
		opts.DBPath = cfg.DB
	}
	if cfg.Format != "" && !cmd.Flags().Changed("format") {
		opts.Format = cfg.Format
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
