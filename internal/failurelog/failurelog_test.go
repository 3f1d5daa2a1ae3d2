package failurelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Instrument: "eurusd", Date: "2021-01-01"}))
	require.NoError(t, w.Append(Record{Instrument: "eurusd", Date: "2021-01-01"}))
	assert.Equal(t, 2, w.Count())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Instrument: "gbpusd", Date: "2021-01-02"}))
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eurusd,2021-01-01\neurusd,2021-01-01\ngbpusd,2021-01-02\n", string(content))
}

func TestWriterAppendAfterClose(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Error(t, w.Append(Record{Instrument: "eurusd", Date: "2021-01-01"}))
}

func TestOpenFailure(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "log.txt"))
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	in := strings.Join([]string{
		"eurusd,2021-01-02",
		"gbpusd,2021-01-01",
		"eurusd,2021-01-02",
		"",
		"broken line",
		"usdjpy,not-a-date",
		",2021-01-01",
		"a,b,c",
		"usdjpy, 2021-03-04",
	}, "\n")

	records, malformed, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Instrument: "eurusd", Date: "2021-01-02"},
		{Instrument: "gbpusd", Date: "2021-01-01"},
		{Instrument: "eurusd", Date: "2021-01-02"},
		{Instrument: "usdjpy", Date: "2021-03-04"},
	}, records)
	assert.Equal(t, 4, malformed)

	day, err := records[0].Day()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), day)
}

func TestReadFileMissing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
