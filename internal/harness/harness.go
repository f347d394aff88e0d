package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/roach88/ldesmirror/internal/mirror"
	"github.com/roach88/ldesmirror/internal/store"
	"github.com/roach88/ldesmirror/internal/testutil"
	"github.com/roach88/ldesmirror/internal/tree"
)

// Namespaces used by every scenario.
const (
	SourceBase = "https://example.org/ldes/"
	MirrorBase = "https://example.org/mirror/"
	RootName   = "root"
)

// Harness is the scenario execution environment.
type Harness struct {
	log        *testutil.SourceLog
	source     *testutil.FailingStore
	db         *store.Store
	mirror     *testutil.FailingStore
	clock      clockwork.FakeClock
	translator *mirror.Translator
	engine     *mirror.Engine
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory SQLite mirror. Step
// expectations and assertions never stop the run; they are collected in
// Result.Errors.
func Run(t testing.TB, scenario *Scenario) (*Result, error) {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer db.Close()

	tr, err := mirror.NewTranslator(SourceBase, MirrorBase, RootName)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		log:        testutil.NewSourceLog(t, SourceBase),
		db:         db,
		clock:      testutil.NewFakeClock(),
		translator: tr,
	}
	h.source = testutil.NewFailingStore(h.log.Store)
	h.mirror = testutil.NewFailingStore(db)
	h.engine = mirror.New(h.source, h.mirror, tr,
		mirror.WithClock(h.clock),
		mirror.WithIDGenerator(testutil.NewSequentialIDGenerator()),
		mirror.WithConcurrency(scenario.Concurrency),
		mirror.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx := context.Background()
	result := NewResult()

	for _, p := range scenario.Setup {
		h.addPage(p)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	state, err := h.captureMirror(ctx)
	if err != nil {
		result.AddError(fmt.Sprintf("read final mirror: %v", err))
	}
	result.Mirror = state

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	switch step.kind() {
	case "sync":
		h.sync(ctx, i, *step.Sync, result)
	case "add_page":
		h.addPage(*step.AddPage)
	case "add_member":
		h.addMember(step.AddMember.Page, *step.AddMember)
	case "advance":
		h.clock.Advance(time.Duration(step.Advance))
	case "fail_reads":
		for _, name := range step.FailReads {
			h.source.FailReads(h.sourceLocator(name))
		}
	case "fail_writes":
		for _, name := range step.FailWrites {
			h.mirror.FailWrites(h.mirrorLocator(name))
		}
	case "heal":
		h.source.Heal()
		h.mirror.Heal()
	default:
		return fmt.Errorf("no single action")
	}
	return nil
}

func (h *Harness) sync(ctx context.Context, i int, want SyncExpect, result *Result) {
	report, err := h.engine.Synchronize(ctx)

	var code mirror.SyncErrorCode
	var se *mirror.SyncError
	if errors.As(err, &se) {
		code = se.Code
	}
	result.AddCycle(i, report, code)

	switch {
	case want.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d: sync failed: %v", i, err))
		return
	case want.Error != "" && code != mirror.SyncErrorCode(want.Error):
		result.AddError(fmt.Sprintf("step %d: expected error %s, got %v", i, want.Error, err))
		return
	case report == nil:
		return
	}

	check := func(field string, want *int, got int) {
		if want != nil && *want != got {
			result.AddError(fmt.Sprintf("step %d: %s = %d, want %d", i, field, got, *want))
		}
	}
	if want.Mode != "" && string(report.Mode) != want.Mode {
		result.AddError(fmt.Sprintf("step %d: mode = %s, want %s", i, report.Mode, want.Mode))
	}
	check("pages_mirrored", want.PagesMirrored, report.PagesMirrored)
	check("pages_skipped", want.PagesSkipped, report.PagesSkipped)
	check("pages_failed", want.PagesFailed, report.PagesFailed)
	check("members_written", want.MembersWritten, report.MembersWritten)
	check("relations_added", want.RelationsAdded, report.RelationsAdded)
	if want.Committed != nil && *want.Committed != report.Committed {
		result.AddError(fmt.Sprintf("step %d: committed = %t, want %t", i, report.Committed, *want.Committed))
	}
}

func (h *Harness) addPage(p PageSpec) {
	h.log.AddPage(p.Page, p.Boundary.Time())
	for _, m := range p.Members {
		h.addMember(p.Page, m)
	}
}

func (h *Harness) addMember(page string, m MemberSpec) {
	if m.Untimed {
		h.log.AddUntimedMember(page, m.Name)
		return
	}
	h.log.AddMember(page, m.Name, m.At.Time())
}

func (h *Harness) sourceLocator(name string) string {
	if name == "root" {
		return h.translator.SourceRoot()
	}
	return h.log.PageLocator(name)
}

func (h *Harness) mirrorLocator(name string) string {
	if name == "root" {
		return h.translator.MirrorRoot()
	}
	fragment, err := h.translator.ToMirror(h.log.PageLocator(name))
	if err != nil {
		return name
	}
	return fragment
}

// captureMirror reads the final mirror from the database, bypassing any
// injected failure.
func (h *Harness) captureMirror(ctx context.Context) (*MirrorState, error) {
	state := &MirrorState{Fragments: make(map[string][]string)}

	status, err := mirror.Inspect(ctx, h.db, h.translator)
	if err != nil {
		return state, err
	}
	if !status.Bootstrapped {
		return state, nil
	}
	state.Bootstrapped = true
	state.Cursor = status.Cursor

	root, err := h.db.Get(ctx, h.translator.MirrorRoot())
	if err != nil {
		return state, err
	}
	index, err := mirror.NewRelationIndex(root, h.translator.MirrorRoot())
	if err != nil {
		return state, err
	}
	for _, rel := range index.Relations() {
		state.Relations = append(state.Relations, RelationState{Node: rel.Node, Boundary: rel.Value})

		g, err := h.db.Get(ctx, rel.Node)
		if err != nil {
			return state, fmt.Errorf("fragment %s: %w", rel.Node, err)
		}
		members, err := tree.FragmentMembers(g, h.translator.SourceCollection(), rel.Node)
		if err != nil {
			return state, err
		}
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}
		slices.Sort(ids)
		state.Fragments[rel.Node] = ids
	}

	recent, err := mirror.Recent(ctx, h.db, h.translator, 0, 0)
	if err != nil {
		return state, err
	}
	for _, m := range recent {
		state.Recent = append(state.Recent, m.ID)
	}
	return state, nil
}
