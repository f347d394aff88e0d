package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ldesmirror/internal/ldp"
	"github.com/roach88/ldesmirror/internal/testutil"
)

const testMirrorBase = "http://mirror.test/mirror/"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// testSource is a source log served over HTTP.
type testSource struct {
	Log   *testutil.SourceLog
	Store *testutil.FailingStore
	URL   string
}

// newTestSource serves a source log with two pages and three members at
// <server>/ldes/root.
func newTestSource(t *testing.T) *testSource {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log := testutil.NewSourceLog(t, srv.URL+"/ldes/")
	failing := testutil.NewFailingStore(log.Store)
	mux.Handle("/ldes/", ldp.NewHandler(failing, ldp.WithHandlerLogger(quiet)))

	t0 := testutil.Epoch
	log.AddPage("1000", t0.Add(-48*time.Hour))
	log.AddMember("1000", "a", t0.Add(-47*time.Hour))
	log.AddMember("1000", "b", t0.Add(-46*time.Hour))
	log.AddPage("2000", t0.Add(-24*time.Hour))
	log.AddMember("2000", "c", t0.Add(-23*time.Hour))

	return &testSource{Log: log, Store: failing, URL: srv.URL + "/ldes/"}
}

// targetArgs returns the flags naming s as source and a database in dir as
// the mirror.
func (s *testSource) targetArgs(dir string) []string {
	return []string{
		"--source", s.URL,
		"--mirror", testMirrorBase,
		"--root-name", "root",
		"--database", filepath.Join(dir, "mirror.db"),
		"--http-retries", "0",
	}
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

type testResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
