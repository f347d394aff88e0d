package mirror

import (
	"time"

	"github.com/roach88/ldesmirror/internal/tree"
)

// Cursor is the dct:issued record of the mirror root: the start time of the
// last committed cycle.
type Cursor struct {
	Root string
	At   time.Time

	// literal is the record as stored, so deleting it matches exactly even
	// when it was not written with millisecond precision.
	literal tree.Term
}

// ReadCursor returns the single cursor of root.
// Zero or several dct:issued records are a MISSING_CURSOR error.
func ReadCursor(g tree.Graph, root string) (Cursor, error) {
	records := g.Objects(tree.IRI(root), tree.DCTIssued)
	if len(records) != 1 {
		return Cursor{}, newSyncError(ErrCodeMissingCursor, root, nil,
			"expected exactly one dct:issued record, found %d", len(records))
	}
	at, err := tree.LiteralTime(records[0])
	if err != nil {
		return Cursor{}, newSyncError(ErrCodeMalformedMirror, root, err, "unreadable cursor")
	}
	return Cursor{Root: root, At: at, literal: records[0]}, nil
}

// Triple returns the record that stores c.
func (c Cursor) Triple() tree.Triple {
	if c.literal.IsZero() {
		return tree.T(tree.IRI(c.Root), tree.DCTIssued, tree.TimeLiteral(c.At))
	}
	return tree.T(tree.IRI(c.Root), tree.DCTIssued, c.literal)
}

// CommitTriples returns the patch that moves the cursor to next.
// The cursor never moves backwards: when next is not after c.At both
// graphs are empty.
func (c Cursor) CommitTriples(next time.Time) (insert, del tree.Graph) {
	next = tree.Truncate(next)
	if !next.After(c.At) {
		return nil, nil
	}
	moved := Cursor{Root: c.Root, At: next}
	return tree.Graph{moved.Triple()}, tree.Graph{c.Triple()}
}
