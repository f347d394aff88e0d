package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/testutil"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: minimal
description: "One page, one cycle"
concurrency: 2
setup:
  - page: "1000"
    boundary: -72h
    members:
      - {name: a, at: -71h30m}
steps:
  - advance: 90m
  - sync:
      mode: bootstrap
      committed: true
`))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, 2, s.Concurrency)
	require.Len(t, s.Setup, 1)
	assert.Equal(t, testutil.Epoch.Add(-72*time.Hour), s.Setup[0].Boundary.Time())
	assert.Equal(t, testutil.Epoch.Add(-71*time.Hour-30*time.Minute), s.Setup[0].Members[0].At.Time())

	require.Len(t, s.Steps, 2)
	assert.Equal(t, "advance", s.Steps[0].kind())
	assert.Equal(t, Offset(90*time.Minute), s.Steps[0].Advance)
	assert.Equal(t, "sync", s.Steps[1].kind())
	require.NotNil(t, s.Steps[1].Sync.Committed)
	assert.True(t, *s.Steps[1].Sync.Committed)
	assert.Nil(t, s.Steps[1].Sync.PagesMirrored)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps:\n  - sync: {}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps:\n  - sync: {}\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nstep:\n  - sync: {}\n",
			want: "failed to parse YAML",
		},
		{
			name: "two actions in one step",
			yaml: "name: n\ndescription: d\nsteps:\n  - {sync: {}, heal: true}\n",
			want: "exactly one action",
		},
		{
			name: "member on unknown page",
			yaml: "name: n\ndescription: d\nsteps:\n  - add_member: {page: \"9\", name: a, at: 0s}\n",
			want: "unknown page",
		},
		{
			name: "duplicate page",
			yaml: "name: n\ndescription: d\nsetup:\n  - {page: \"1\", boundary: 0s}\n  - {page: \"1\", boundary: 1h}\nsteps:\n  - sync: {}\n",
			want: "duplicate page",
		},
		{
			name: "page named root",
			yaml: "name: n\ndescription: d\nsetup:\n  - {page: root, boundary: 0s}\nsteps:\n  - sync: {}\n",
			want: "invalid page name",
		},
		{
			name: "clock going back",
			yaml: "name: n\ndescription: d\nsteps:\n  - advance: -1h\n",
			want: "cannot go back",
		},
		{
			name: "bad duration",
			yaml: "name: n\ndescription: d\nsteps:\n  - advance: soon\n",
			want: "failed to parse YAML",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nsteps:\n  - sync: {}\nassertions:\n  - type: trace_order\n",
			want: "unknown assertion type",
		},
		{
			name: "fragment without page",
			yaml: "name: n\ndescription: d\nsteps:\n  - sync: {}\nassertions:\n  - type: fragment\n",
			want: "needs a page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"),
		[]byte("name: a\ndescription: d\nsteps:\n  - sync: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"),
		[]byte("name: b\n"), 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.yaml")
}
