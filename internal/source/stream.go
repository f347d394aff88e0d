package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ldesmirror/internal/tree"
)

// DefaultConcurrency is the number of pages fetched in parallel when no
// WithConcurrency option is given.
const DefaultConcurrency = 4

// Reader fetches the graph stored at a locator.
// resource.Store implementations satisfy it.
type Reader interface {
	Get(ctx context.Context, locator string) (tree.Graph, error)
}

// EventKind identifies stream events.
type EventKind int

const (
	EventRoot EventKind = iota + 1
	EventPage
)

func (k EventKind) String() string {
	switch k {
	case EventRoot:
		return "root"
	case EventPage:
		return "page"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one step of a crawl.
type Event struct {
	Kind    EventKind
	Locator string

	// Relations is set on EventRoot.
	Relations []tree.Relation

	// Relation is the root relation that led to an EventPage.
	Relation tree.Relation

	// Graph is the fetched content. Nil when Err is set.
	Graph tree.Graph

	// Err is a page fetch failure. Never set on EventRoot.
	Err error
}

// FetchError reports a locator that could not be read.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedError reports content that does not have the expected shape.
type MalformedError struct {
	Locator string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Locator, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Option configures a Stream.
type Option func(*Stream)

// WithConcurrency bounds the number of pages fetched at once.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger used for crawl diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) {
		s.logger = logger
	}
}

type pageResult struct {
	graph tree.Graph
	err   error
}

// Stream is a pull iterator over a remote log. It is not safe for concurrent
// use by multiple goroutines.
type Stream struct {
	reader      Reader
	root        string
	concurrency int
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	rootDone  bool
	err       error
	relations []tree.Relation
	results   []chan pageResult
	next      int
}

// Open prepares a crawl of the log rooted at root. Nothing is fetched until
// the first call to Next. ctx bounds the lifetime of background prefetching;
// Close releases it early.
func Open(ctx context.Context, r Reader, root string, opts ...Option) *Stream {
	s := &Stream{
		reader:      r,
		root:        root,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s
}

// Next returns the next event, io.EOF after the last page, or the error that
// ended the stream. Errors are sticky: once Next fails it keeps failing.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}

	if !s.rootDone {
		ev, err := s.readRoot(ctx)
		if err != nil {
			s.fail(err)
			return Event{}, err
		}
		return ev, nil
	}

	if s.next >= len(s.results) {
		s.cancel()
		return Event{}, io.EOF
	}

	rel := s.relations[s.next]
	var res pageResult
	select {
	case res = <-s.results[s.next]:
	case <-ctx.Done():
		s.fail(ctx.Err())
		return Event{}, ctx.Err()
	}
	s.next++

	ev := Event{Kind: EventPage, Locator: rel.Node, Relation: rel}
	if res.err != nil {
		ev.Err = &FetchError{Locator: rel.Node, Err: res.err}
		s.logger.Debug("page fetch failed", "page", rel.Node, "error", res.err)
	} else {
		ev.Graph = res.graph
	}
	return ev, nil
}

// Close stops background prefetching. Safe to call more than once.
func (s *Stream) Close() {
	s.cancel()
}

func (s *Stream) fail(err error) {
	s.err = err
	s.cancel()
}

func (s *Stream) readRoot(ctx context.Context) (Event, error) {
	g, err := s.reader.Get(ctx, s.root)
	if err != nil {
		return Event{}, &FetchError{Locator: s.root, Err: err}
	}

	rels, err := tree.ParseRelations(g, s.root)
	if err != nil {
		return Event{}, &MalformedError{Locator: s.root, Err: err}
	}
	if err := checkUnique(rels); err != nil {
		return Event{}, &MalformedError{Locator: s.root, Err: err}
	}

	s.rootDone = true
	s.relations = rels
	s.prefetch()

	s.logger.Debug("root discovered", "root", s.root, "relations", len(rels))
	return Event{Kind: EventRoot, Locator: s.root, Relations: rels, Graph: g}, nil
}

// prefetch fetches every page in the background, at most concurrency at a
// time. Each result lands in its own buffered channel so Next can consume
// them in relation order.
func (s *Stream) prefetch() {
	s.results = make([]chan pageResult, len(s.relations))
	for i := range s.results {
		s.results[i] = make(chan pageResult, 1)
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, rel := range s.relations {
			g.Go(func() error {
				if err := s.ctx.Err(); err != nil {
					s.results[i] <- pageResult{err: err}
					return nil
				}
				graph, err := s.reader.Get(s.ctx, rel.Node)
				s.results[i] <- pageResult{graph: graph, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// checkUnique rejects a root that points at the same page twice.
func checkUnique(rels []tree.Relation) error {
	seen := make(map[string]struct{}, len(rels))
	for _, r := range rels {
		if _, ok := seen[r.Node]; ok {
			return fmt.Errorf("page %s is the target of more than one relation", r.Node)
		}
		seen[r.Node] = struct{}{}
	}
	return nil
}
