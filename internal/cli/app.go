package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/ldesmirror/internal/config"
	"github.com/roach88/ldesmirror/internal/ldp"
	"github.com/roach88/ldesmirror/internal/mirror"
	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/source"
	"github.com/roach88/ldesmirror/internal/store"
)

// app holds everything a command needs to reach the source and the mirror.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	translator *mirror.Translator
	source     source.Reader
	mirror     resource.Store

	// db is set when the mirror is a local SQLite file.
	db *store.Store

	closers []io.Closer
}

// openApp loads the configuration for cmd and connects to the source and
// the mirror. Configuration problems are ExitCommandError.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, logCloser, err := setupLogging(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	a.translator, err = mirror.NewTranslator(cfg.Source, cfg.Mirror, cfg.RootName)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "invalid source or mirror", err)
	}

	client := ldp.NewClient(
		ldp.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
		ldp.WithRetry(cfg.HTTP.RetryMax, cfg.HTTP.RetryWaitMin, cfg.HTTP.RetryWaitMax),
		ldp.WithClientLogger(logger),
	)
	a.source = client
	a.mirror = client

	if cfg.Database != "" {
		logger.Debug("opening database", "path", cfg.Database)
		a.db, err = store.Open(cfg.Database)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.mirror = a.db
		a.closers = append(a.closers, a.db)
	}

	logger.Debug("configuration loaded",
		"source", a.translator.SourceRoot(),
		"mirror", a.translator.MirrorRoot(),
		"database", cfg.Database,
	)
	return a, nil
}

// engine builds a sync engine over the app's source and mirror.
func (a *app) engine(reg prometheus.Registerer) *mirror.Engine {
	opts := []mirror.EngineOption{
		mirror.WithConcurrency(a.cfg.Concurrency),
		mirror.WithLogger(a.logger),
	}
	if reg != nil {
		opts = append(opts, mirror.WithMetrics(mirror.NewMetrics(reg)))
	}
	return mirror.New(a.source, a.mirror, a.translator, opts...)
}

// Close releases the database and the log file, most recent first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// syncExitError maps a failed cycle to an ExitError.
func syncExitError(err error) error {
	var se *mirror.SyncError
	if errors.As(err, &se) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("sync failed [%s]", se.Code), err)
	}
	return WrapExitError(ExitCommandError, "sync failed", err)
}
