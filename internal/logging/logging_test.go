package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug().Str("symbol", "EURUSD").Msg("hello")

	line := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "EURUSD", line["symbol"])
	assert.NotEmpty(t, line["run_id"])
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archiver.log")
	logger, closer, err := New(Config{Format: "json", File: path}, &bytes.Buffer{})
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to file")
}
