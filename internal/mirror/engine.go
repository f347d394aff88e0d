package mirror

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/source"
	"github.com/roach88/ldesmirror/internal/tree"
)

// DefaultConcurrency is the number of pages fetched and written in parallel.
const DefaultConcurrency = source.DefaultConcurrency

// IDGenerator generates cycle identifiers for log correlation.
// Implemented by UUIDv7Generator (production) and
// testutil.SequentialIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 cycle IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Engine synchronizes one mirror from one source.
//
// Thread-safety model:
//   - Synchronize(): at most one cycle runs at a time; a concurrent call
//     fails with SYNC_IN_PROGRESS
//   - Watch(): runs cycles one after another
//
// Separate engines (or processes) must not target the same mirror.
type Engine struct {
	reader      source.Reader
	store       resource.Store
	translator  *Translator
	members     *MemberMirror
	clock       clockwork.Clock
	ids         IDGenerator
	concurrency int
	logger      *slog.Logger
	metrics     *Metrics

	running atomic.Bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the clock used for cursors and Watch ticks.
func WithClock(clock clockwork.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithIDGenerator sets the cycle ID generator.
func WithIDGenerator(ids IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithConcurrency bounds parallel page fetches and fragment writes.
//
// Default: 4 (DefaultConcurrency). Values below 1 are ignored.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records cycle metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine that reads pages from reader and writes the mirror
// into store, using translator for every locator.
func New(reader source.Reader, store resource.Store, translator *Translator, opts ...EngineOption) *Engine {
	e := &Engine{
		reader:      reader,
		store:       store,
		translator:  translator,
		clock:       clockwork.NewRealClock(),
		ids:         UUIDv7Generator{},
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.members = NewMemberMirror(reader, store, translator, e.logger)
	return e
}

// Translator returns the translator the engine was built with.
func (e *Engine) Translator() *Translator {
	return e.translator
}

// cycle is the state of one Synchronize call.
type cycle struct {
	id     string
	start  time.Time
	logger *slog.Logger
	report *Report
	tally  *tally

	// mirror-side state, set for incremental cycles
	cursor Cursor
	index  *RelationIndex
	open   tree.Relation

	mu         sync.Mutex
	staged     []tree.Relation
	openFailed bool
}

// Synchronize runs one sync cycle.
//
// The returned Report is non-nil whenever the cycle got past its start,
// including when err is a structural *SyncError. Page-level fetch and write
// failures are reported in the Report, never as err.
func (e *Engine) Synchronize(ctx context.Context) (*Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, newSyncError(ErrCodeSyncInProgress, e.translator.MirrorRoot(), nil,
			"another cycle is running")
	}
	defer e.running.Store(false)

	startedAt := e.clock.Now()
	c := &cycle{
		id:    e.ids.Generate(),
		start: tree.Truncate(startedAt),
	}
	c.logger = e.logger.With("cycle", c.id)
	c.report = &Report{Cycle: c.id, StartedAt: c.start}
	c.tally = &tally{report: c.report}

	err := e.run(ctx, c)

	c.tally.finish()
	c.report.Duration = e.clock.Since(startedAt)
	e.metrics.observe(c.report, err)

	if err != nil {
		c.logger.Error("sync cycle aborted",
			"mode", c.report.Mode,
			"error", err,
		)
		return c.report, err
	}

	c.logger.Info("sync cycle finished",
		"mode", c.report.Mode,
		"discovered", c.report.PagesDiscovered,
		"mirrored", c.report.PagesMirrored,
		"skipped", c.report.PagesSkipped,
		"failed", c.report.PagesFailed,
		"members", c.report.MembersWritten,
		"committed", c.report.Committed,
		"duration", c.report.Duration,
	)
	return c.report, nil
}

func (e *Engine) run(ctx context.Context, c *cycle) error {
	root := e.translator.MirrorRoot()
	g, err := e.store.Get(ctx, root)
	switch {
	case errors.Is(err, resource.ErrNotFound):
		c.report.Mode = ModeBootstrap
		return e.bootstrap(ctx, c)
	case err != nil:
		return newSyncError(ErrCodeMirrorUnavailable, root, err, "read mirror root")
	}

	c.report.Mode = ModeIncremental
	if c.cursor, err = ReadCursor(g, root); err != nil {
		return err
	}
	if c.index, err = NewRelationIndex(g, root); err != nil {
		return err
	}
	if c.open, err = c.index.MostRecent(); err != nil {
		return err
	}
	c.report.CursorBefore = c.cursor.At
	e.metrics.setRelations(c.index.Len())
	return e.incremental(ctx, c)
}

// bootstrap mirrors every page in full, then creates the mirror root with the
// relations of the pages that were written.
func (e *Engine) bootstrap(ctx context.Context, c *cycle) error {
	c.logger.Info("bootstrapping mirror",
		"source", e.translator.SourceRoot(),
		"mirror", e.translator.MirrorRoot(),
	)

	err := e.crawl(ctx, c, func(ctx context.Context, ev source.Event, fragment string) error {
		return e.mirrorNew(ctx, c, ev, fragment)
	})
	if err != nil {
		return err
	}

	if len(c.staged) == 0 {
		c.logger.Warn("no page could be mirrored, mirror root not created")
		return nil
	}

	root := e.translator.MirrorRoot()
	g := tree.Graph{
		tree.T(tree.IRI(e.translator.MirrorCollection()), tree.RDFType, tree.IRI(tree.TreeCollection)),
		tree.T(tree.IRI(e.translator.MirrorCollection()), tree.TreeView, tree.IRI(root)),
		tree.T(tree.IRI(root), tree.RDFType, tree.IRI(tree.TreeNode)),
		Cursor{Root: root, At: c.start}.Triple(),
	}
	relations, err := relationRecords(root, c.staged)
	if err != nil {
		return err
	}
	g = append(g, relations...)

	if err := e.store.Put(ctx, root, g); err != nil {
		c.logger.Error("could not create mirror root", "root", root, "error", err)
		c.tally.failed(root)
		return nil
	}

	c.report.Committed = true
	c.report.CursorAfter = c.start
	c.report.RelationsAdded = len(c.staged)
	e.metrics.setRelations(len(c.staged))
	return nil
}

// incremental mirrors new pages in full, appends recent members of the open
// page and skips closed pages, then commits.
func (e *Engine) incremental(ctx context.Context, c *cycle) error {
	c.logger.Info("incremental sync",
		"cursor", tree.FormatTime(c.cursor.At),
		"relations", c.index.Len(),
		"open_page", c.open.Node,
	)

	err := e.crawl(ctx, c, func(ctx context.Context, ev source.Event, fragment string) error {
		switch {
		case !c.index.Contains(fragment):
			return e.mirrorNew(ctx, c, ev, fragment)
		case fragment == c.open.Node:
			return e.mirrorOpen(ctx, c, ev)
		default:
			c.tally.skipped()
			return nil
		}
	})
	if err != nil {
		return err
	}

	return e.commit(ctx, c)
}

// commit applies the staged relations and the new cursor in one patch.
func (e *Engine) commit(ctx context.Context, c *cycle) error {
	if c.openFailed {
		c.logger.Warn("open page not refreshed, keeping cursor and relations",
			"open_page", c.open.Node,
			"cursor", tree.FormatTime(c.cursor.At),
		)
		c.report.CursorAfter = c.cursor.At
		return nil
	}

	root := e.translator.MirrorRoot()
	insert, del := c.cursor.CommitTriples(c.start)
	relations, err := relationRecords(root, c.staged)
	if err != nil {
		return err
	}
	insert = append(insert, relations...)

	if len(insert) == 0 && len(del) == 0 {
		c.report.Committed = true
		c.report.CursorAfter = c.cursor.At
		return nil
	}

	if err := e.store.Patch(ctx, root, insert, del); err != nil {
		c.logger.Error("could not commit mirror root", "root", root, "error", err)
		c.tally.failed(root)
		c.report.CursorAfter = c.cursor.At
		return nil
	}

	c.report.Committed = true
	c.report.RelationsAdded = len(c.staged)
	c.report.CursorAfter = c.cursor.At
	if len(del) > 0 {
		c.report.CursorAfter = c.start
	}
	e.metrics.setRelations(c.index.Len() + len(c.staged))
	return nil
}

// pageFunc handles one page event whose fragment locator is known.
type pageFunc func(ctx context.Context, ev source.Event, fragment string) error

// crawl streams the source and hands every fetched page to fn, at most
// e.concurrency at a time. Fetch failures are tallied; structural errors
// from the stream or from fn cancel the remaining work and are returned.
func (e *Engine) crawl(ctx context.Context, c *cycle, fn pageFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	stream := source.Open(gctx, e.reader, e.translator.SourceRoot(),
		source.WithConcurrency(e.concurrency),
		source.WithLogger(c.logger),
	)
	defer stream.Close()

	var streamErr error
	for {
		ev, err := stream.Next(gctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			streamErr = err
			break
		}

		if ev.Kind == source.EventRoot {
			if c.report.Mode == ModeBootstrap && len(ev.Relations) == 0 {
				streamErr = newSyncError(ErrCodeMalformedSource, ev.Locator, nil, "source root has no relations")
				break
			}
			c.report.PagesDiscovered = len(ev.Relations)
			continue
		}

		fragment, err := e.translator.ToMirror(ev.Locator)
		if err != nil {
			streamErr = newSyncError(ErrCodeMalformedSource, ev.Locator, err, "page outside source namespace")
			break
		}

		if ev.Err != nil {
			e.pageFetchFailed(c, ev, fragment)
			continue
		}

		g.Go(func() error {
			return fn(gctx, ev, fragment)
		})
	}

	// Worker errors take precedence: they are what cancelled the stream.
	if err := g.Wait(); err != nil {
		return err
	}
	if streamErr != nil {
		return sourceError(streamErr)
	}
	return ctx.Err()
}

func (e *Engine) pageFetchFailed(c *cycle, ev source.Event, fragment string) {
	c.logger.Warn("page fetch failed", "page", ev.Locator, "error", ev.Err)
	c.tally.failed(ev.Locator)
	if c.index != nil && fragment == c.open.Node {
		c.mu.Lock()
		c.openFailed = true
		c.mu.Unlock()
	}
}

// mirrorNew fully mirrors a page the mirror root does not know yet and
// stages its relation on success.
func (e *Engine) mirrorNew(ctx context.Context, c *cycle, ev source.Event, fragment string) error {
	res, err := e.members.Mirror(ctx, Page{Locator: ev.Locator, Boundary: ev.Relation.Value, Graph: ev.Graph}, Full())
	if err != nil {
		return e.pageError(c, ev.Locator, err)
	}
	c.tally.mirrored(res.Members)

	rel := ev.Relation
	rel.Node = fragment
	c.mu.Lock()
	c.staged = append(c.staged, rel)
	c.mu.Unlock()
	return nil
}

// mirrorOpen appends the members of the open page created after the cursor.
func (e *Engine) mirrorOpen(ctx context.Context, c *cycle, ev source.Event) error {
	page := Page{Locator: ev.Locator, Boundary: ev.Relation.Value, Graph: ev.Graph}
	res, err := e.members.Mirror(ctx, page, After(c.cursor.At))
	if err != nil {
		if perr := e.pageError(c, ev.Locator, err); perr != nil {
			return perr
		}
		c.mu.Lock()
		c.openFailed = true
		c.mu.Unlock()
		return nil
	}
	c.tally.mirrored(res.Members)
	return nil
}

// pageError tallies write failures and passes structural errors through.
func (e *Engine) pageError(c *cycle, page string, err error) error {
	if !IsWriteFailure(err) {
		return err
	}
	c.logger.Warn("fragment write failed", "page", page, "error", err)
	c.tally.failed(page)
	return nil
}

// sourceError maps stream errors to sync errors.
func sourceError(err error) error {
	var se *SyncError
	if errors.As(err, &se) {
		return err
	}
	var fetchErr *source.FetchError
	if errors.As(err, &fetchErr) {
		return newSyncError(ErrCodeSourceUnavailable, fetchErr.Locator, fetchErr.Err, "fetch source root")
	}
	var malformed *source.MalformedError
	if errors.As(err, &malformed) {
		return newSyncError(ErrCodeMalformedSource, malformed.Locator, malformed.Err, "malformed source root")
	}
	return err
}

// relationRecords returns the mirror root records of rels.
func relationRecords(root string, rels []tree.Relation) (tree.Graph, error) {
	var g tree.Graph
	for _, r := range rels {
		records, err := tree.RelationTriples(root, r)
		if err != nil {
			return nil, newSyncError(ErrCodeMalformedSource, r.Node, err, "encode relation")
		}
		g = append(g, records...)
	}
	return g, nil
}
