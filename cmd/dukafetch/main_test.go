package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/condrove10/dukascopy-archiver/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hourPath = "/EURUSD/2021/00/04/10h_ticks.bi5"

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("..", "..", "testdata", "eurusd_hour.bi5"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == hourPath {
			_, _ = w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, srv *httptest.Server, args ...string) error {
	t.Helper()
	root, a := newRootCmd()
	a.fetcher = transport.NewHTTPFetcher(srv.Client(), transport.Options{Timeout: 5 * time.Second})

	root.SetArgs(append(args, "--root-url", srv.URL, "--log-level", "error"))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.NoError(t, a.teardown())
	return err
}

func TestFetchCommand(t *testing.T) {
	srv := feedServer(t)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")

	err := execute(t, srv, "fetch",
		"-s", "EURUSD",
		"-f", "2021-01-04",
		"-e", "2021-01-05",
		"-o", filepath.Join(dir, "out"),
		"--log", filepath.Join(dir, "log.txt"),
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "out", "EURUSD", "2021-01-04.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "EURUSD", "2021-01-05.csv"))

	failures, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	assert.Empty(t, failures)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `outcome="data"`)
}

func TestReplayCommand(t *testing.T) {
	srv := feedServer(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "log.txt")
	recoverPath := filepath.Join(dir, "recover_log.txt")
	require.NoError(t, os.WriteFile(logPath, []byte("eurusd,2021-01-04\nnot a record\n"), 0o644))

	err := execute(t, srv, "replay",
		"-o", filepath.Join(dir, "out"),
		"--log", logPath,
		"--recover-log", recoverPath,
	)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "out", "EURUSD", "2021-01-04.csv"))
	recovered, err := os.ReadFile(recoverPath)
	require.NoError(t, err)
	assert.Empty(t, recovered)
}

func TestReplayCommandWithoutLog(t *testing.T) {
	srv := feedServer(t)
	dir := t.TempDir()

	err := execute(t, srv, "replay", "--log", filepath.Join(dir, "missing.txt"), "--recover-log", filepath.Join(dir, "r.txt"))
	assert.NoError(t, err)
}

func TestHourAndURLCommands(t *testing.T) {
	srv := feedServer(t)
	dir := t.TempDir()

	require.NoError(t, execute(t, srv, "hour", "-s", "eurusd", "--at", "2021-01-04T10", "--dir", dir))
	assert.FileExists(t, filepath.Join(dir, "EURUSD_2021_01_04_10h_ticks.csv"))

	other := t.TempDir()
	require.NoError(t, execute(t, srv, "url", srv.URL+hourPath, "--dir", other))
	assert.FileExists(t, filepath.Join(other, "EURUSD_2021_01_04_10h_ticks.csv"))

	assert.Error(t, execute(t, srv, "hour", "-s", "eurusd", "--at", "monday", "--dir", dir))
}

func TestFetchCommandRejectsBadInput(t *testing.T) {
	srv := feedServer(t)
	dir := t.TempDir()

	tests := [][]string{
		{"fetch", "-f", "2021-01-04"},
		{"fetch", "-s", "eurusd"},
		{"fetch", "-s", "eurusd", "-f", "2021-01-04", "-t", "h1"},
		{"fetch", "-s", "eurusd", "-f", "2021-01-05", "-e", "2021-01-04"},
		{"fetch", "-s", "nope", "-f", "2021-01-04"},
		{"fetch", "-s", "eurusd", "-f", "2021-01-04", "--batch-size", "0"},
	}
	for _, args := range tests {
		args = append(args, "-o", dir, "--log", filepath.Join(dir, "log.txt"))
		assert.Error(t, execute(t, srv, args...), "%v", args)
	}
}
