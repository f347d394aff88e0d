package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ldesmirror/internal/mirror"
	"github.com/roach88/ldesmirror/internal/tree"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle",
		Long: `Run one sync cycle: bootstrap the mirror if it has no root yet, otherwise
copy new pages and append new members of the open page.

Exit codes:
  0  the cycle completed
  1  the cycle completed but some page or the commit failed
  2  the cycle was aborted or the command is misconfigured

Example:
  ldesmirror sync --source https://example.org/ldes/ --mirror https://example.org/mirror/
  ldesmirror sync -c ldesmirror.yaml --database mirror.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().Int("concurrency", 0, "pages fetched and written in parallel")
	return cmd
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
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

	formatter.VerboseLog("syncing %s into %s", a.translator.SourceRoot(), a.translator.MirrorRoot())
	report, err := a.engine(nil).Synchronize(ctx)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), report)
		return syncExitError(err)
	}

	if err := formatter.Success(reportView{report}); err != nil {
		return err
	}
	if report.Partial() {
		return NewExitError(ExitFailure, fmt.Sprintf("cycle %s incomplete: %d page(s) failed", report.Cycle, report.PagesFailed))
	}
	return nil
}

// reportView renders a report for text output. JSON output is the report
// itself.
type reportView struct {
	*mirror.Report
}

func (v reportView) String() string {
	r := v.Report
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s (%s)\n", r.Cycle, r.Mode)
	fmt.Fprintf(&b, "  pages:     %d discovered, %d mirrored, %d skipped, %d failed\n",
		r.PagesDiscovered, r.PagesMirrored, r.PagesSkipped, r.PagesFailed)
	fmt.Fprintf(&b, "  members:   %d written\n", r.MembersWritten)
	fmt.Fprintf(&b, "  relations: %d added\n", r.RelationsAdded)
	if !r.CursorAfter.IsZero() {
		fmt.Fprintf(&b, "  cursor:    %s\n", tree.FormatTime(r.CursorAfter))
	}
	fmt.Fprintf(&b, "  committed: %t", r.Committed)
	for _, loc := range r.FailedLocators {
		fmt.Fprintf(&b, "\n  failed:    %s", loc)
	}
	return b.String()
}
