package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// SourceLog builds a remote log inside a resource.Memory store.
//
// The root lives at <base>root and declares one
// tree:GreaterThanOrEqualToRelation per page. Pages live at <base><name>/
// and list their members with ldp:contains.
type SourceLog struct {
	t     testing.TB
	Base  string
	Store *resource.Memory
}

// NewSourceLog creates an empty log under base, which must end in "/".
func NewSourceLog(t testing.TB, base string) *SourceLog {
	t.Helper()
	l := &SourceLog{t: t, Base: base, Store: resource.NewMemory()}
	root := tree.Graph{
		tree.T(tree.IRI(l.Root()), tree.RDFType, tree.IRI(tree.TreeNode)),
		tree.T(tree.IRI(l.Root()), tree.RDFType, tree.IRI(tree.LDPContainer)),
	}
	require.NoError(t, l.Store.Put(context.Background(), l.Root(), root))
	return l
}

// Root returns the root locator.
func (l *SourceLog) Root() string {
	return l.Base + "root"
}

// PageLocator returns the locator of the page called name.
func (l *SourceLog) PageLocator(name string) string {
	return l.Base + name + "/"
}

// MemberLocator returns the locator of member name in page.
func (l *SourceLog) MemberLocator(page, name string) string {
	return l.PageLocator(page) + name
}

// AddPage creates an empty page and links it from the root with boundary as
// its lower bound.
func (l *SourceLog) AddPage(name string, boundary time.Time) string {
	l.t.Helper()
	return l.AddPageLiteral(name, tree.FormatTime(boundary))
}

// AddPageLiteral is AddPage with the boundary given as an xsd:dateTime
// lexical value, stored exactly as written.
func (l *SourceLog) AddPageLiteral(name, boundary string) string {
	l.t.Helper()
	ctx := context.Background()
	page := l.PageLocator(name)

	value, err := tree.ParseTime(boundary)
	require.NoError(l.t, err)

	require.NoError(l.t, l.Store.Put(ctx, page, tree.Graph{
		tree.T(tree.IRI(page), tree.RDFType, tree.IRI(tree.LDPContainer)),
	}))

	rel, err := tree.RelationTriples(l.Root(), tree.Relation{
		Node:    page,
		Kind:    tree.TreeGreaterThanOrEqualToRelation,
		Path:    tree.DCTModified,
		Value:   value,
		Literal: tree.Literal(boundary, tree.XSDDateTime),
	})
	require.NoError(l.t, err)
	require.NoError(l.t, l.Store.Patch(ctx, l.Root(), rel, nil))
	return page
}

// AddMember appends a member created at createdAt to page.
func (l *SourceLog) AddMember(page, name string, createdAt time.Time) string {
	l.t.Helper()
	return l.AddMemberLiteral(page, name, tree.FormatTime(createdAt))
}

// AddMemberLiteral appends a member whose dct:modified is the given
// xsd:dateTime lexical value, stored exactly as written.
func (l *SourceLog) AddMemberLiteral(page, name, createdAt string) string {
	l.t.Helper()
	member := l.MemberLocator(page, name)
	require.NoError(l.t, l.Store.Patch(context.Background(), l.PageLocator(page), tree.Graph{
		tree.T(tree.IRI(l.PageLocator(page)), tree.LDPContains, tree.IRI(member)),
		tree.T(tree.IRI(member), tree.DCTModified, tree.Literal(createdAt, tree.XSDDateTime)),
	}, nil))
	return member
}

// AddUntimedMember appends a member without a dct:modified record.
func (l *SourceLog) AddUntimedMember(page, name string) string {
	l.t.Helper()
	member := l.MemberLocator(page, name)
	require.NoError(l.t, l.Store.Patch(context.Background(), l.PageLocator(page), tree.Graph{
		tree.T(tree.IRI(l.PageLocator(page)), tree.LDPContains, tree.IRI(member)),
	}, nil))
	return member
}
