package mirror

import (
	"slices"

	"github.com/roach88/ldesmirror/internal/tree"
)

// RelationIndex is the set of relations recorded in the mirror root.
type RelationIndex struct {
	root      string
	relations []tree.Relation
}

// NewRelationIndex reads the relations of root from its graph.
// Unreadable relation records are a MALFORMED_MIRROR error.
func NewRelationIndex(g tree.Graph, root string) (*RelationIndex, error) {
	rels, err := tree.ParseRelations(g, root)
	if err != nil {
		return nil, newSyncError(ErrCodeMalformedMirror, root, err, "unreadable relation records")
	}
	return &RelationIndex{root: root, relations: rels}, nil
}

// Contains reports whether a relation points at the mirror fragment locator.
// The scan is linear; pages are few compared to members.
func (x *RelationIndex) Contains(locator string) bool {
	for _, r := range x.relations {
		if r.Node == locator {
			return true
		}
	}
	return false
}

// Len returns the number of recorded relations.
func (x *RelationIndex) Len() int {
	return len(x.relations)
}

// Relations returns the recorded relations ordered by boundary value.
func (x *RelationIndex) Relations() []tree.Relation {
	return slices.Clone(x.relations)
}

// MostRecent returns the relation of the open page: the one with the
// greatest boundary value. An empty index is a MALFORMED_MIRROR error and a
// tie at the greatest value is an AMBIGUOUS_OPEN_PAGE error.
func (x *RelationIndex) MostRecent() (tree.Relation, error) {
	n := len(x.relations)
	if n == 0 {
		return tree.Relation{}, newSyncError(ErrCodeMalformedMirror, x.root, nil, "mirror root has no relations")
	}

	// relations are sorted by value, so the maximum is last
	latest := x.relations[n-1]
	if n > 1 && x.relations[n-2].Value.Equal(latest.Value) {
		return tree.Relation{}, newSyncError(ErrCodeAmbiguousOpenPage, x.root, nil,
			"pages %s and %s share boundary %s",
			x.relations[n-2].Node, latest.Node, tree.FormatTime(latest.Value))
	}
	return latest, nil
}
