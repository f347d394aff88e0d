package tree

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Member is one entry of the log as seen by the mirror: an identifier and
// its creation time. Payloads are never read. Literal is the dct:modified
// term as read, copied verbatim into the mirror.
type Member struct {
	ID        string
	CreatedAt time.Time
	Page      string
	Literal   Term
}

// ModifiedLiteral returns the term recording CreatedAt: Literal when set,
// otherwise CreatedAt as an xsd:dateTime literal.
func (m Member) ModifiedLiteral() Term {
	if !m.Literal.IsZero() {
		return m.Literal
	}
	return TimeLiteral(m.CreatedAt)
}

// MemberError reports a member without a usable dct:modified timestamp.
type MemberError struct {
	Page   string
	Member string
	Reason string
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("member %s of %s: %s", e.Member, e.Page, e.Reason)
}

// ParseMembers extracts the members contained in a source page.
// Every ldp:contains object must carry a dct:modified xsd:dateTime.
func ParseMembers(g Graph, page string) ([]Member, error) {
	var ids []string
	for _, t := range g.WithPredicate(LDPContains) {
		if t.Object.Kind == KindIRI {
			ids = append(ids, t.Object.Value)
		}
	}
	slices.Sort(ids)
	return collectMembers(g, page, slices.Compact(ids))
}

// FragmentMembers extracts the members recorded in a mirror fragment for
// the given collection.
func FragmentMembers(g Graph, collection, page string) ([]Member, error) {
	var ids []string
	for _, obj := range g.Objects(IRI(collection), TreeMember) {
		if obj.Kind == KindIRI {
			ids = append(ids, obj.Value)
		}
	}
	return collectMembers(g, page, ids)
}

func collectMembers(g Graph, page string, ids []string) ([]Member, error) {
	out := make([]Member, 0, len(ids))
	for _, id := range ids {
		stamp, ok := g.Object(IRI(id), DCTModified)
		if !ok {
			return nil, &MemberError{Page: page, Member: id, Reason: "no dct:modified"}
		}
		createdAt, err := LiteralTime(stamp)
		if err != nil {
			return nil, &MemberError{Page: page, Member: id, Reason: err.Error()}
		}
		out = append(out, Member{ID: id, CreatedAt: createdAt, Page: page, Literal: stamp})
	}
	slices.SortFunc(out, compareMembers)
	return out, nil
}

func compareMembers(a, b Member) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// MemberTriples returns the membership and timestamp records of m.
func MemberTriples(collection string, m Member) []Triple {
	return []Triple{
		T(IRI(collection), TreeMember, IRI(m.ID)),
		T(IRI(m.ID), DCTModified, m.ModifiedLiteral()),
	}
}
