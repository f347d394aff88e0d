package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ldesmirror/internal/ldp"
	"github.com/roach88/ldesmirror/internal/mirror"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Sync        bool
	AllowWrites bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local mirror database over HTTP",
		Long: `Serve the mirror held in --database as LDP resources, so that readers and
other ldesmirror instances can use it as a source or a mirror. Locators are
formed from the mirror base URL. Prometheus metrics are served at /metrics.

The server is read-only: PUT, PATCH and POST get 405 unless --allow-writes
is given. Writes are not authenticated.

With --sync, sync cycles run every --interval against the same database.

Example:
  ldesmirror serve --database mirror.db --mirror http://localhost:8080/mirror/
  ldesmirror serve -c ldesmirror.yaml --sync --interval 5m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().String("endpoint", "", "listen address")
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "also run sync cycles")
	cmd.Flags().BoolVar(&opts.AllowWrites, "allow-writes", false, "accept unauthenticated PUT, PATCH and POST")
	cmd.Flags().Int("concurrency", 0, "pages fetched and written in parallel")
	cmd.Flags().Duration("interval", 0, "time between cycle starts")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return NewExitError(ExitCommandError, "serve requires --database")
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	reg := newRegistry()
	handler, err := newServeHandler(a, reg, opts.AllowWrites)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mirror base", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(gctx, a.cfg.Endpoint, handler, a.logger)
	})
	if opts.Sync {
		engine := a.engine(reg)
		g.Go(func() error {
			return engine.Watch(gctx, a.cfg.PollInterval, func(r *mirror.Report, err error) {
				if err != nil {
					a.logger.Error("sync cycle failed", "code", errorCode(err), "error", err)
				}
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "server stopped", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// newServeHandler routes /metrics to reg and everything else to the mirror
// database, with locators formed from the mirror base's origin. Unless
// writable, the database is served read-only.
func newServeHandler(a *app, reg *prometheus.Registry, writable bool) (http.Handler, error) {
	base, err := url.Parse(a.cfg.Mirror)
	if err != nil {
		return nil, err
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("mirror base %q has no origin", a.cfg.Mirror)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	opts := []ldp.HandlerOption{
		ldp.WithOrigin(base.Scheme + "://" + base.Host),
		ldp.WithHandlerLogger(a.logger),
	}
	if !writable {
		opts = append(opts, ldp.WithReadOnly())
	}
	mux.Handle("/", ldp.NewHandler(a.db, opts...))
	return mux, nil
}
