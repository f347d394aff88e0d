package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ldesmirror/internal/mirror"
	"github.com/roach88/ldesmirror/internal/tree"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the mirror root",
		Long: `Show whether the mirror is bootstrapped, its cursor, the number of mirrored
pages and the open page. Nothing is written.

Example:
  ldesmirror status --database mirror.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	status, err := mirror.Inspect(ctx, a.mirror, a.translator)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), status)
		return WrapExitError(ExitCommandError, "mirror root unreadable", err)
	}
	return formatter.Success(statusView{status})
}

// statusView renders a status for text output. JSON output is the status
// itself.
type statusView struct {
	*mirror.Status
}

func (v statusView) String() string {
	s := v.Status
	if !s.Bootstrapped {
		return fmt.Sprintf("mirror %s is not bootstrapped", s.Root)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "mirror %s\n", s.Root)
	fmt.Fprintf(&b, "  cursor:    %s\n", tree.FormatTime(s.Cursor))
	fmt.Fprintf(&b, "  relations: %d\n", s.Relations)
	fmt.Fprintf(&b, "  open page: %s (from %s)", s.OpenPage, tree.FormatTime(s.OpenBoundary))
	return b.String()
}
