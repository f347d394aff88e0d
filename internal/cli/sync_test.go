package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/mirror"
)

func TestSync_BootstrapThenIncremental(t *testing.T) {
	src := newTestSource(t)
	dir := t.TempDir()

	args := append([]string{"sync", "--format", "json"}, src.targetArgs(dir)...)
	out, err := runCLI(t, args...)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	var report mirror.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, mirror.ModeBootstrap, report.Mode)
	assert.Equal(t, 2, report.PagesMirrored)
	assert.Equal(t, 3, report.MembersWritten)
	assert.True(t, report.Committed)

	src.Log.AddMember("2000", "d", time.Now().Add(time.Hour))

	out, err = runCLI(t, args...)
	require.NoError(t, err)
	resp = decodeResponse(t, out)
	report = mirror.Report{}
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, mirror.ModeIncremental, report.Mode)
	assert.Equal(t, 1, report.MembersWritten)
	assert.Zero(t, report.PagesFailed)
}

func TestSync_TextOutput(t *testing.T) {
	src := newTestSource(t)

	out, err := runCLI(t, append([]string{"sync"}, src.targetArgs(t.TempDir())...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(bootstrap)")
	assert.Contains(t, out, "2 mirrored")
	assert.Contains(t, out, "committed: true")
}

func TestSync_PartialFailureExitsOne(t *testing.T) {
	src := newTestSource(t)
	src.Store.FailReads(src.Log.PageLocator("1000"))

	out, err := runCLI(t, append([]string{"sync", "--format", "json"}, src.targetArgs(t.TempDir())...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	var report mirror.Report
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, 1, report.PagesFailed)
	assert.Equal(t, 1, report.PagesMirrored)
	assert.Equal(t, []string{src.Log.PageLocator("1000")}, report.FailedLocators)
}

func TestSync_MissingSourceRootExitsTwo(t *testing.T) {
	src := newTestSource(t)
	args := append([]string{"sync", "--format", "json"}, src.targetArgs(t.TempDir())...)
	args = append(args, "--root-name", "missing")

	out, err := runCLI(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "SOURCE_UNAVAILABLE")

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SOURCE_UNAVAILABLE", resp.Error.Code)
}

func TestSync_MissingConfigExitsTwo(t *testing.T) {
	_, err := runCLI(t, "sync", "--mirror", testMirrorBase)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
