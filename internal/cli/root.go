package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ldesmirror CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ldesmirror",
		Short: "Mirror a Linked Data Event Stream",
		Long: `ldesmirror keeps a mirror of a remote LDES log: the first run copies every
page, later runs append new members of the open page and copy new pages.

Settings come from --config (YAML), LDESMIRROR_* environment variables and
flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().String("log-format", "text", "log format (json|text)")
	cmd.PersistentFlags().String("log-file", "", "write logs to a rotated file instead of stderr")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewRecentCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewValidateConfigCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// addTargetFlags registers the flags naming the source and the mirror.
// Unset flags fall back to the config file and environment.
func addTargetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("source", "", "base URL of the source log")
	f.String("mirror", "", "base URL of the mirror")
	f.String("root-name", "", "name of the root resource under both bases")
	f.String("database", "", "SQLite file holding the mirror (default: write the mirror over HTTP)")
	f.Duration("http-timeout", 0, "timeout of one HTTP request")
	f.Int("http-retries", 0, "retries of idempotent HTTP requests")
}
