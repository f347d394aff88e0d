package mirror

import (
	"slices"
	"sync"
	"time"
)

// SyncMode is the path a cycle took.
type SyncMode string

const (
	ModeBootstrap   SyncMode = "bootstrap"
	ModeIncremental SyncMode = "incremental"
)

// Report summarizes one sync cycle.
type Report struct {
	Cycle     string        `json:"cycle"`
	Mode      SyncMode      `json:"mode"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	PagesDiscovered int `json:"pages_discovered"`
	PagesMirrored   int `json:"pages_mirrored"`
	PagesSkipped    int `json:"pages_skipped"`
	PagesFailed     int `json:"pages_failed"`
	MembersWritten  int `json:"members_written"`
	RelationsAdded  int `json:"relations_added"`

	// FailedLocators lists pages and fragments that could not be fetched or
	// written, sorted.
	FailedLocators []string `json:"failed_locators,omitempty"`

	CursorBefore time.Time `json:"cursor_before,omitzero"`
	CursorAfter  time.Time `json:"cursor_after,omitzero"`

	// Committed is true when the mirror root reflects this cycle: it was
	// created or patched, or already held everything the cycle found.
	Committed bool `json:"committed"`
}

// Partial reports whether some page could not be mirrored or the mirror
// root was not committed.
func (r *Report) Partial() bool {
	return r.PagesFailed > 0 || !r.Committed
}

// tally collects page outcomes from concurrent workers.
type tally struct {
	mu     sync.Mutex
	report *Report
}

func (t *tally) mirrored(members int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.PagesMirrored++
	t.report.MembersWritten += members
}

func (t *tally) skipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.PagesSkipped++
}

func (t *tally) failed(locator string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report.PagesFailed++
	t.report.FailedLocators = append(t.report.FailedLocators, locator)
}

func (t *tally) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	slices.Sort(t.report.FailedLocators)
}
