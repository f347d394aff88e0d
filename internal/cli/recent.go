package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ldesmirror/internal/mirror"
	"github.com/roach88/ldesmirror/internal/tree"
)

// RecentOptions holds flags for the recent command.
type RecentOptions struct {
	*RootOptions
	Limit  int
	Offset int
}

// NewRecentCommand creates the recent command.
func NewRecentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest mirrored members",
		Long: `List mirrored members, newest first, reading only the mirror.

Example:
  ldesmirror recent --database mirror.db --limit 20
  ldesmirror recent --limit 20 --offset 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecent(opts, cmd)
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of members (0 for all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of newest members to skip")
	return cmd
}

func runRecent(opts *RecentOptions, cmd *cobra.Command) error {
	if opts.Offset < 0 {
		return NewExitError(ExitCommandError, "offset must not be negative")
	}

	a, err := openApp(opts.RootOptions, cmd)
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

	members, err := mirror.Recent(ctx, a.mirror, a.translator, opts.Limit, opts.Offset)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list members", err)
	}
	return formatter.Success(memberList(members))
}

// memberList renders members one per line in text output.
type memberList []tree.Member

type memberJSON struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Page      string `json:"page"`
}

func (l memberList) MarshalJSON() ([]byte, error) {
	out := make([]memberJSON, len(l))
	for i, m := range l {
		out[i] = memberJSON{ID: m.ID, CreatedAt: m.ModifiedLiteral().Value, Page: m.Page}
	}
	return json.Marshal(out)
}

func (l memberList) String() string {
	if len(l) == 0 {
		return "no members"
	}
	var b strings.Builder
	for i, m := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s", m.ModifiedLiteral().Value, m.ID)
	}
	return b.String()
}
