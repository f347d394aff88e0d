package mirror

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/testutil"
	"github.com/roach88/ldesmirror/internal/tree"
)

const (
	sourceBase = "https://example.org/ldes/"
	mirrorBase = "https://example.org/mirror/"
)

var (
	day     = 24 * time.Hour
	t0      = testutil.Epoch
	quietLg = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// fixture wires a source log, a mirror store and an engine with a fake clock.
type fixture struct {
	t          *testing.T
	log        *testutil.SourceLog
	source     *testutil.FailingStore
	mirror     *resource.Memory
	store      *testutil.FailingStore
	clock      clockwork.FakeClock
	translator *Translator
	engine     *Engine
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	tr, err := NewTranslator(sourceBase, mirrorBase, "root")
	require.NoError(t, err)

	f := &fixture{
		t:          t,
		log:        testutil.NewSourceLog(t, sourceBase),
		mirror:     resource.NewMemory(),
		clock:      testutil.NewFakeClock(),
		translator: tr,
	}
	f.source = testutil.NewFailingStore(f.log.Store)
	f.store = testutil.NewFailingStore(f.mirror)

	all := append([]EngineOption{
		WithClock(f.clock),
		WithIDGenerator(testutil.NewSequentialIDGenerator()),
		WithLogger(quietLg),
	}, opts...)
	f.engine = New(f.source, f.store, tr, all...)
	return f
}

// standardLog builds two closed-by-then pages and one open page:
//
//	1000: a, b     (boundary t0-3d)
//	2000: c        (boundary t0-2d)
func (f *fixture) standardLog() {
	f.log.AddPage("1000", t0.Add(-3*day))
	f.log.AddMember("1000", "a", t0.Add(-3*day+time.Hour))
	f.log.AddMember("1000", "b", t0.Add(-3*day+2*time.Hour))
	f.log.AddPage("2000", t0.Add(-2*day))
	f.log.AddMember("2000", "c", t0.Add(-2*day+time.Hour))
}

func (f *fixture) sync() *Report {
	f.t.Helper()
	report, err := f.engine.Synchronize(context.Background())
	require.NoError(f.t, err)
	require.NotNil(f.t, report)
	return report
}

func (f *fixture) root() tree.Graph {
	f.t.Helper()
	g, err := f.mirror.Get(context.Background(), f.translator.MirrorRoot())
	require.NoError(f.t, err)
	return g
}

func (f *fixture) cursor() time.Time {
	f.t.Helper()
	c, err := ReadCursor(f.root(), f.translator.MirrorRoot())
	require.NoError(f.t, err)
	return c.At
}

func (f *fixture) relations() []string {
	f.t.Helper()
	index, err := NewRelationIndex(f.root(), f.translator.MirrorRoot())
	require.NoError(f.t, err)
	var nodes []string
	for _, r := range index.Relations() {
		nodes = append(nodes, r.Node)
	}
	return nodes
}

// members returns the member IDs recorded in the fragment of page name.
func (f *fixture) members(name string) []string {
	f.t.Helper()
	fragment := mirrorBase + name
	g, err := f.mirror.Get(context.Background(), fragment)
	require.NoError(f.t, err)
	members, err := tree.FragmentMembers(g, f.translator.SourceCollection(), fragment)
	require.NoError(f.t, err)
	ids := []string{}
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

func (f *fixture) snapshot() map[string]tree.Graph {
	f.t.Helper()
	out := make(map[string]tree.Graph)
	for _, locator := range f.mirror.Locators() {
		g, err := f.mirror.Get(context.Background(), locator)
		require.NoError(f.t, err)
		out[locator] = g
	}
	return out
}
