package mirror

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

func TestSynchronize_Bootstrap(t *testing.T) {
	f := newFixture(t)
	f.standardLog()

	report := f.sync()

	assert.Equal(t, ModeBootstrap, report.Mode)
	assert.Equal(t, "cycle-0001", report.Cycle)
	assert.Equal(t, 2, report.PagesDiscovered)
	assert.Equal(t, 2, report.PagesMirrored)
	assert.Equal(t, 3, report.MembersWritten)
	assert.Equal(t, 2, report.RelationsAdded)
	assert.True(t, report.Committed)
	assert.False(t, report.Partial())
	assert.Equal(t, t0, report.CursorAfter)

	assert.Equal(t, t0, f.cursor())
	assert.Equal(t, []string{mirrorBase + "1000", mirrorBase + "2000"}, f.relations())
	assert.Equal(t, []string{f.log.MemberLocator("1000", "a"), f.log.MemberLocator("1000", "b")}, f.members("1000"))
	assert.Equal(t, []string{f.log.MemberLocator("2000", "c")}, f.members("2000"))

	root := f.root()
	assert.True(t, root.Has(tree.T(tree.IRI(f.translator.MirrorCollection()), tree.TreeView, tree.IRI(f.translator.MirrorRoot()))))
	assert.True(t, root.Has(tree.T(tree.IRI(f.translator.MirrorRoot()), tree.RDFType, tree.IRI(tree.TreeNode))))
}

func TestSynchronize_BootstrapKeepsRelationShape(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	index, err := NewRelationIndex(f.root(), f.translator.MirrorRoot())
	require.NoError(t, err)
	assert.Equal(t, []tree.Relation{
		{Node: mirrorBase + "1000", Kind: tree.TreeGreaterThanOrEqualToRelation, Path: tree.DCTModified, Value: t0.Add(-3 * day), Literal: tree.TimeLiteral(t0.Add(-3 * day))},
		{Node: mirrorBase + "2000", Kind: tree.TreeGreaterThanOrEqualToRelation, Path: tree.DCTModified, Value: t0.Add(-2 * day), Literal: tree.TimeLiteral(t0.Add(-2 * day))},
	}, index.Relations())
}

// A member appended to the open page after the cursor is the only write.
func TestSynchronize_IncrementalOpenPage(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	d := f.log.AddMember("2000", "d", t0.Add(30*time.Minute))
	f.clock.Advance(time.Hour)
	closedWrites := f.store.Writes(mirrorBase + "1000")

	report := f.sync()

	assert.Equal(t, ModeIncremental, report.Mode)
	assert.Equal(t, 1, report.PagesSkipped)
	assert.Equal(t, 1, report.PagesMirrored)
	assert.Equal(t, 1, report.MembersWritten)
	assert.Equal(t, 0, report.RelationsAdded)
	assert.Equal(t, t0, report.CursorBefore)
	assert.Equal(t, t0.Add(time.Hour), report.CursorAfter)

	assert.Equal(t, []string{f.log.MemberLocator("2000", "c"), d}, f.members("2000"))
	assert.Equal(t, closedWrites, f.store.Writes(mirrorBase+"1000"), "closed page rewritten")
	assert.Equal(t, t0.Add(time.Hour), f.cursor())
}

// A new page appears; the previous open page gets its last members and the
// new page is mirrored in full and becomes open.
func TestSynchronize_NewPage(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	d := f.log.AddMember("2000", "d", t0.Add(10*time.Minute))
	f.log.AddPage("3000", t0.Add(20*time.Minute))
	e := f.log.AddMember("3000", "e", t0.Add(30*time.Minute))
	f.clock.Advance(time.Hour)

	report := f.sync()

	assert.Equal(t, 3, report.PagesDiscovered)
	assert.Equal(t, 2, report.PagesMirrored)
	assert.Equal(t, 1, report.PagesSkipped)
	assert.Equal(t, 1, report.RelationsAdded)
	assert.Equal(t, []string{mirrorBase + "1000", mirrorBase + "2000", mirrorBase + "3000"}, f.relations())
	assert.Contains(t, f.members("2000"), d)
	assert.Equal(t, []string{e}, f.members("3000"))

	status, err := Inspect(context.Background(), f.mirror, f.translator)
	require.NoError(t, err)
	assert.Equal(t, mirrorBase+"3000", status.OpenPage)

	// The formerly open page is closed from now on.
	f.log.AddMember("2000", "late", t0.Add(2*time.Hour))
	f.clock.Advance(time.Hour)
	f.sync()
	assert.NotContains(t, f.members("2000"), f.log.MemberLocator("2000", "late"))
}

func TestSynchronize_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()
	before := f.snapshot()

	f.clock.Advance(time.Minute)
	report := f.sync()
	assert.Zero(t, report.MembersWritten)
	assert.Zero(t, report.RelationsAdded)

	after := f.snapshot()
	// Only the cursor record differs.
	root := f.translator.MirrorRoot()
	delete(before, root)
	delete(after, root)
	assert.Empty(t, cmp.Diff(before, after))
	assert.Equal(t, []string{mirrorBase + "1000", mirrorBase + "2000"}, f.relations())
}

// Re-running a cycle at the same instant changes nothing at all.
func TestSynchronize_SameInstantNoChange(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()
	before := f.snapshot()

	report := f.sync()
	assert.True(t, report.Committed)
	assert.Equal(t, t0, report.CursorAfter)
	assert.Empty(t, cmp.Diff(before, f.snapshot()))
}

func TestSynchronize_CursorMonotonic(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	f.clock.Advance(-time.Hour)
	report := f.sync()

	assert.Equal(t, t0, report.CursorAfter)
	assert.Equal(t, t0, f.cursor())
}

func TestSynchronize_BootstrapWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.store.FailWrites(mirrorBase + "1000")

	report := f.sync()

	assert.Equal(t, 1, report.PagesFailed)
	assert.Equal(t, []string{sourceBase + "1000/"}, report.FailedLocators)
	assert.True(t, report.Committed)
	assert.True(t, report.Partial())
	assert.Equal(t, []string{mirrorBase + "2000"}, f.relations())

	// The failed page is new to the next cycle and gets mirrored then.
	f.store.Heal()
	f.clock.Advance(time.Hour)
	report = f.sync()

	assert.Equal(t, 1, report.RelationsAdded)
	assert.False(t, report.Partial())
	assert.Equal(t, []string{mirrorBase + "1000", mirrorBase + "2000"}, f.relations())
	assert.Len(t, f.members("1000"), 2)
}

func TestSynchronize_BootstrapNothingWritten(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.store.FailWrites(mirrorBase + "1000")
	f.store.FailWrites(mirrorBase + "2000")

	report := f.sync()

	assert.False(t, report.Committed)
	assert.Equal(t, 2, report.PagesFailed)
	ok, err := resource.Exists(context.Background(), f.mirror, f.translator.MirrorRoot())
	require.NoError(t, err)
	assert.False(t, ok)

	f.store.Heal()
	assert.Equal(t, ModeBootstrap, f.sync().Mode)
}

// When the open page cannot be refreshed the cursor must not move, or its
// members created in the meantime would never be mirrored.
func TestSynchronize_OpenPageWriteFailureWithholdsCommit(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	d := f.log.AddMember("2000", "d", t0.Add(30*time.Minute))
	f.log.AddPage("3000", t0.Add(40*time.Minute))
	f.clock.Advance(time.Hour)
	f.store.FailWrites(mirrorBase + "2000")

	report := f.sync()
	assert.False(t, report.Committed)
	assert.Equal(t, t0, report.CursorAfter)
	assert.Equal(t, t0, f.cursor())
	assert.Equal(t, []string{mirrorBase + "1000", mirrorBase + "2000"}, f.relations())

	f.store.Heal()
	f.clock.Advance(time.Hour)
	report = f.sync()
	assert.True(t, report.Committed)
	assert.Contains(t, f.members("2000"), d)
	assert.Equal(t, []string{mirrorBase + "1000", mirrorBase + "2000", mirrorBase + "3000"}, f.relations())
	assert.Equal(t, t0.Add(2*time.Hour), f.cursor())
}

func TestSynchronize_OpenPageFetchFailureWithholdsCommit(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	f.clock.Advance(time.Hour)
	f.source.FailReads(sourceBase + "2000/")

	report := f.sync()
	assert.Equal(t, 1, report.PagesFailed)
	assert.False(t, report.Committed)
	assert.Equal(t, t0, f.cursor())
}

func TestSynchronize_ClosedPageFetchFailureStillCommits(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	f.clock.Advance(time.Hour)
	f.source.FailReads(sourceBase + "1000/")

	report := f.sync()
	assert.Equal(t, 1, report.PagesFailed)
	assert.True(t, report.Committed)
	assert.Equal(t, t0.Add(time.Hour), f.cursor())
}

func TestSynchronize_RootCommitFailure(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	f.clock.Advance(time.Hour)
	f.store.FailWrites(f.translator.MirrorRoot())

	report := f.sync()
	assert.False(t, report.Committed)
	assert.Contains(t, report.FailedLocators, f.translator.MirrorRoot())
	assert.Equal(t, t0, f.cursor())
}

func TestSynchronize_SourceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.source.FailReads(f.log.Root())

	report, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsSourceUnavailable(err), "got %v", err)
	require.NotNil(t, report)
	assert.Equal(t, ModeBootstrap, report.Mode)
}

func TestSynchronize_EmptySourceRoot(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsMalformedSource(err), "got %v", err)
}

func TestSynchronize_MemberWithoutTimestamp(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.log.AddUntimedMember("2000", "broken")

	_, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsMalformedSource(err), "got %v", err)

	ok, existsErr := resource.Exists(context.Background(), f.mirror, f.translator.MirrorRoot())
	require.NoError(t, existsErr)
	assert.False(t, ok, "mirror root created by an aborted cycle")
}

func TestSynchronize_PageOutsideNamespace(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	rel, err := tree.RelationTriples(f.log.Root(), tree.Relation{
		Node:  "https://elsewhere.org/page/",
		Kind:  tree.TreeGreaterThanOrEqualToRelation,
		Path:  tree.DCTModified,
		Value: t0,
	})
	require.NoError(t, err)
	require.NoError(t, f.log.Store.Patch(context.Background(), f.log.Root(), rel, nil))

	_, err = f.engine.Synchronize(context.Background())
	assert.True(t, IsMalformedSource(err), "got %v", err)
}

func TestSynchronize_MissingCursor(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.sync()

	root := f.translator.MirrorRoot()
	extra := tree.T(tree.IRI(root), tree.DCTIssued, tree.TimeLiteral(t0.Add(time.Minute)))
	require.NoError(t, f.mirror.Patch(context.Background(), root, tree.Graph{extra}, nil))

	_, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsMissingCursor(err), "got %v", err)

	// No cursor at all is the same error.
	require.NoError(t, f.mirror.Patch(context.Background(), root, nil,
		tree.Graph{extra, Cursor{Root: root, At: t0}.Triple()}))
	_, err = f.engine.Synchronize(context.Background())
	assert.True(t, IsMissingCursor(err), "got %v", err)
}

func TestSynchronize_AmbiguousOpenPage(t *testing.T) {
	f := newFixture(t)
	root := f.translator.MirrorRoot()
	g := tree.Graph{Cursor{Root: root, At: t0}.Triple()}
	for _, node := range []string{"1000", "2000"} {
		rel, err := tree.RelationTriples(root, tree.Relation{
			Node:  mirrorBase + node,
			Kind:  tree.TreeGreaterThanOrEqualToRelation,
			Path:  tree.DCTModified,
			Value: t0,
		})
		require.NoError(t, err)
		g = append(g, rel...)
	}
	require.NoError(t, f.mirror.Put(context.Background(), root, g))

	_, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsAmbiguousOpenPage(err), "got %v", err)
}

func TestSynchronize_MirrorRootWithoutRelations(t *testing.T) {
	f := newFixture(t)
	root := f.translator.MirrorRoot()
	require.NoError(t, f.mirror.Put(context.Background(), root, tree.Graph{Cursor{Root: root, At: t0}.Triple()}))

	_, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsMalformedMirror(err), "got %v", err)
}

func TestSynchronize_MirrorUnavailable(t *testing.T) {
	f := newFixture(t)
	f.standardLog()
	f.store.FailReads(f.translator.MirrorRoot())

	_, err := f.engine.Synchronize(context.Background())
	assert.True(t, IsMirrorUnavailable(err), "got %v", err)
}

// blockingReader parks every Get until release is closed.
type blockingReader struct {
	inner interface {
		Get(context.Context, string) (tree.Graph, error)
	}
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingReader) Get(ctx context.Context, locator string) (tree.Graph, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.inner.Get(ctx, locator)
}

func TestSynchronize_RejectsConcurrentCycle(t *testing.T) {
	f := newFixture(t)
	f.standardLog()

	reader := &blockingReader{inner: f.log.Store, entered: make(chan struct{}), release: make(chan struct{})}
	engine := New(reader, f.mirror, f.translator, WithClock(f.clock), WithLogger(quietLg))

	done := make(chan error, 1)
	go func() {
		_, err := engine.Synchronize(context.Background())
		done <- err
	}()
	<-reader.entered

	_, err := engine.Synchronize(context.Background())
	assert.True(t, IsSyncInProgress(err), "got %v", err)

	close(reader.release)
	require.NoError(t, <-done)

	// The guard is released once the first cycle finishes.
	_, err = engine.Synchronize(context.Background())
	assert.NoError(t, err)
}

func TestSynchronize_ConcurrencyOneIsDeterministic(t *testing.T) {
	run := func(concurrency int) map[string]tree.Graph {
		f := newFixture(t, WithConcurrency(concurrency))
		f.standardLog()
		f.sync()
		return f.snapshot()
	}
	assert.Empty(t, cmp.Diff(run(1), run(8)))
}

// Boundaries less than a millisecond apart stay distinct, so the open page
// is never ambiguous because of the mirror's own encoding.
func TestSynchronize_KeepsSourceLiterals(t *testing.T) {
	f := newFixture(t)
	f.log.AddPageLiteral("p1", "2019-12-01T00:00:00.1231Z")
	f.log.AddPageLiteral("p2", "2019-12-01T01:00:00.1234+01:00")
	m := f.log.AddMemberLiteral("p2", "m", "2019-12-01T00:00:00.5000001Z")

	report := f.sync()
	require.True(t, report.Committed)

	index, err := NewRelationIndex(f.root(), f.translator.MirrorRoot())
	require.NoError(t, err)
	rels := index.Relations()
	require.Len(t, rels, 2)
	assert.Equal(t, tree.Literal("2019-12-01T00:00:00.1231Z", tree.XSDDateTime), rels[0].Literal)
	assert.Equal(t, tree.Literal("2019-12-01T01:00:00.1234+01:00", tree.XSDDateTime), rels[1].Literal)

	fragment, err := f.mirror.Get(context.Background(), mirrorBase+"p2")
	require.NoError(t, err)
	assert.True(t, fragment.Has(tree.T(tree.IRI(m), tree.DCTModified, tree.Literal("2019-12-01T00:00:00.5000001Z", tree.XSDDateTime))))

	n := f.log.AddMemberLiteral("p2", "n", "2021-12-01T00:30:00.0000005+00:00")
	f.clock.Advance(time.Hour)

	report, err = f.engine.Synchronize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, report.Mode)
	assert.Equal(t, 1, report.MembersWritten)
	assert.Equal(t, []string{m, n}, f.members("p2"))

	fragment, err = f.mirror.Get(context.Background(), mirrorBase+"p2")
	require.NoError(t, err)
	assert.True(t, fragment.Has(tree.T(tree.IRI(n), tree.DCTModified, tree.Literal("2021-12-01T00:30:00.0000005+00:00", tree.XSDDateTime))))
}
