package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

const (
	testCollection = "https://example.org/ldes/root#Collection"
	testFragment   = "https://example.org/mirror/1000"
)

var testTime = time.Date(2021, 12, 3, 10, 0, 0, 0, time.UTC)

func TestPut_CreatesAndReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := tree.Graph{
		memberTriple(testCollection, "https://example.org/ldes/1000/a"),
		modifiedTriple("https://example.org/ldes/1000/a", testTime),
	}
	require.NoError(t, s.Put(ctx, testFragment, first))

	got, err := s.Get(ctx, testFragment)
	require.NoError(t, err)
	assert.Equal(t, first.Normalize(), got)

	second := tree.Graph{memberTriple(testCollection, "https://example.org/ldes/1000/b")}
	require.NoError(t, s.Put(ctx, testFragment, second))

	got, err = s.Get(ctx, testFragment)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	rev, err := s.Revision(ctx, testFragment)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}

func TestPut_EmptyGraph(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testFragment, nil))

	got, err := s.Get(ctx, testFragment)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPut_RejectsLiteralSubject(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	bad := tree.Graph{tree.T(tree.Literal("x", ""), tree.TreeMember, tree.IRI("http://x/a"))}
	require.Error(t, s.Put(ctx, testFragment, bad))

	// The transaction rolled back, so the resource was not created.
	_, err := s.Get(ctx, testFragment)
	assert.True(t, errors.Is(err, resource.ErrNotFound))
}

func TestPatch_InsertIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := memberTriple(testCollection, "https://example.org/ldes/1000/a")
	b := memberTriple(testCollection, "https://example.org/ldes/1000/b")
	require.NoError(t, s.Put(ctx, testFragment, tree.Graph{a}))

	require.NoError(t, s.Patch(ctx, testFragment, tree.Graph{a, b}, nil))
	require.NoError(t, s.Patch(ctx, testFragment, tree.Graph{b}, nil))

	got, err := s.Get(ctx, testFragment)
	require.NoError(t, err)
	assert.Equal(t, tree.Graph{a, b}, got)
}

func TestPatch_ReplacesCursorAtomically(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	root := "https://example.org/mirror/root"
	oldCursor := tree.T(tree.IRI(root), tree.DCTIssued, tree.TimeLiteral(testTime))
	newCursor := tree.T(tree.IRI(root), tree.DCTIssued, tree.TimeLiteral(testTime.Add(time.Hour)))
	require.NoError(t, s.Put(ctx, root, tree.Graph{oldCursor}))

	require.NoError(t, s.Patch(ctx, root, tree.Graph{newCursor}, tree.Graph{oldCursor}))

	got, err := s.Get(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, tree.Graph{newCursor}, got)
}

func TestPatch_ConflictRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := memberTriple(testCollection, "https://example.org/ldes/1000/a")
	b := memberTriple(testCollection, "https://example.org/ldes/1000/b")
	c := memberTriple(testCollection, "https://example.org/ldes/1000/c")
	require.NoError(t, s.Put(ctx, testFragment, tree.Graph{a, b}))

	// b is deleted first, then c is absent: the whole patch must roll back.
	err := s.Patch(ctx, testFragment, tree.Graph{c}, tree.Graph{b, c})
	assert.True(t, errors.Is(err, resource.ErrConflict), "got %v", err)

	got, err := s.Get(ctx, testFragment)
	require.NoError(t, err)
	assert.Equal(t, tree.Graph{a, b}, got)

	rev, err := s.Revision(ctx, testFragment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

func TestPatch_MissingResource(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Patch(ctx, testFragment, tree.Graph{memberTriple(testCollection, "http://x/a")}, nil)
	assert.True(t, errors.Is(err, resource.ErrConflict))

	_, err = s.Get(ctx, testFragment)
	assert.True(t, errors.Is(err, resource.ErrNotFound))
}

func TestCreateChild(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	container := "https://example.org/curated/"
	locator, err := s.CreateChild(ctx, container, tree.Graph{memberTriple(testCollection, "http://x/a")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, container))

	children, err := s.Children(ctx, container)
	require.NoError(t, err)
	assert.Equal(t, []string{locator}, children)
}

func TestContainerOf(t *testing.T) {
	tests := map[string]string{
		"https://example.org/mirror/1000":  "https://example.org/mirror/",
		"https://example.org/mirror/1000/": "https://example.org/mirror/",
		"https://example.org/mirror/root":  "https://example.org/mirror/",
		"no-slash":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, containerOf(in), in)
	}
}
