package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ldesmirror/internal/config"
	"github.com/roach88/ldesmirror/internal/mirror"
)

// NewValidateConfigCommand creates the validate-config command.
func NewValidateConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration without contacting anything",
		Long: `Load the configuration from --config, the environment and flags, validate
it and print the resolved settings.

Example:
  ldesmirror validate-config -c ldesmirror.yaml
  LDESMIRROR_CONCURRENCY=8 ldesmirror validate-config -c ldesmirror.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateConfig(rootOpts, cmd)
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().Int("concurrency", 0, "pages fetched and written in parallel")
	cmd.Flags().Duration("interval", 0, "time between cycle starts")
	return cmd
}

func runValidateConfig(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		_ = formatter.Error("E_CONFIG", err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}
	if _, err := mirror.NewTranslator(cfg.Source, cfg.Mirror, cfg.RootName); err != nil {
		_ = formatter.Error("E_CONFIG", err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}
	return formatter.Success(configView{cfg})
}

// configView renders the resolved configuration.
type configView struct {
	*config.Config
}

func (v configView) String() string {
	c := v.Config
	var b strings.Builder
	b.WriteString("configuration OK\n")
	fmt.Fprintf(&b, "  source:      %s%s\n", c.Source, c.RootName)
	fmt.Fprintf(&b, "  mirror:      %s%s\n", c.Mirror, c.RootName)
	if c.Database != "" {
		fmt.Fprintf(&b, "  database:    %s\n", c.Database)
	}
	fmt.Fprintf(&b, "  concurrency: %d\n", c.Concurrency)
	fmt.Fprintf(&b, "  interval:    %s", c.PollInterval)
	return b.String()
}
