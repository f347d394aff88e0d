package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/tree"
)

func TestReadCursor(t *testing.T) {
	g := tree.Graph{Cursor{Root: indexRoot, At: t0}.Triple()}

	c, err := ReadCursor(g, indexRoot)
	require.NoError(t, err)
	assert.Equal(t, t0, c.At)
}

func TestReadCursor_Count(t *testing.T) {
	_, err := ReadCursor(nil, indexRoot)
	assert.True(t, IsMissingCursor(err))

	two := tree.Graph{
		Cursor{Root: indexRoot, At: t0}.Triple(),
		Cursor{Root: indexRoot, At: t0.Add(time.Second)}.Triple(),
	}
	_, err = ReadCursor(two, indexRoot)
	assert.True(t, IsMissingCursor(err))
	assert.Contains(t, err.Error(), "found 2")
}

func TestReadCursor_NotADateTime(t *testing.T) {
	g := tree.Graph{tree.T(tree.IRI(indexRoot), tree.DCTIssued, tree.Literal("yesterday", ""))}
	_, err := ReadCursor(g, indexRoot)
	assert.True(t, IsMalformedMirror(err))
}

func TestCursor_CommitTriples(t *testing.T) {
	c := Cursor{Root: indexRoot, At: t0}

	insert, del := c.CommitTriples(t0.Add(time.Hour))
	assert.Equal(t, tree.Graph{Cursor{Root: indexRoot, At: t0.Add(time.Hour)}.Triple()}, insert)
	assert.Equal(t, tree.Graph{c.Triple()}, del)

	insert, del = c.CommitTriples(t0)
	assert.Empty(t, insert)
	assert.Empty(t, del)

	insert, del = c.CommitTriples(t0.Add(-time.Hour))
	assert.Empty(t, insert)
	assert.Empty(t, del)

	// Sub-millisecond progress is not representable.
	insert, _ = c.CommitTriples(t0.Add(400 * time.Microsecond))
	assert.Empty(t, insert)
}

// A cursor written without milliseconds is deleted by its stored form.
func TestCursor_DeletesStoredLiteral(t *testing.T) {
	stored := tree.T(tree.IRI(indexRoot), tree.DCTIssued, tree.Literal("2021-12-01T00:00:00Z", tree.XSDDateTime))

	c, err := ReadCursor(tree.Graph{stored}, indexRoot)
	require.NoError(t, err)
	_, del := c.CommitTriples(t0.Add(time.Hour))
	assert.Equal(t, tree.Graph{stored}, del)
}
