package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/ldesmirror/internal/resource"
)

// Status describes the mirror root.
type Status struct {
	Root         string    `json:"root"`
	Bootstrapped bool      `json:"bootstrapped"`
	Cursor       time.Time `json:"cursor,omitzero"`
	Relations    int       `json:"relations"`
	OpenPage     string    `json:"open_page,omitempty"`
	OpenBoundary time.Time `json:"open_boundary,omitzero"`
}

// Inspect reads the mirror root without modifying anything. A missing root
// is reported as not bootstrapped, not as an error. Structural problems are
// returned as *SyncError together with what could be read.
func Inspect(ctx context.Context, store resource.Store, translator *Translator) (*Status, error) {
	root := translator.MirrorRoot()
	status := &Status{Root: root}

	g, err := store.Get(ctx, root)
	if errors.Is(err, resource.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return status, newSyncError(ErrCodeMirrorUnavailable, root, err, "read mirror root")
	}
	status.Bootstrapped = true

	index, err := NewRelationIndex(g, root)
	if err != nil {
		return status, err
	}
	status.Relations = index.Len()

	cursor, err := ReadCursor(g, root)
	if err != nil {
		return status, err
	}
	status.Cursor = cursor.At

	open, err := index.MostRecent()
	if err != nil {
		return status, err
	}
	status.OpenPage = open.Node
	status.OpenBoundary = open.Value
	return status, nil
}
