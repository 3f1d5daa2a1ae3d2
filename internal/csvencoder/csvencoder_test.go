package csvencoder

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/condrove10/dukascopy-archiver/tick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows() []Row {
	return []Row{
		tick.Tick{Timestamp: 1609718400500, Ask: 1.23456, Bid: 1.23446, AskVolume: 1, BidVolume: 2},
		tick.Tick{Timestamp: 1609718401500, Ask: 1.23457, Bid: 1.23447, AskVolume: 1.25, BidVolume: 0.5},
	}
}

func TestEncodeCSV(t *testing.T) {
	out, err := NewCSVEncoder().EncodeToString(rows())
	require.NoError(t, err)
	assert.Equal(t, "1609718400500,1.23456,1.23446,1,2\n1609718401500,1.23457,1.23447,1.25,0.5", out)
}

func TestEncodeCSVHeadersAndSeparator(t *testing.T) {
	e := NewCSVEncoder()
	e.SetSeparator(';')
	e.SetHeaders("timestamp", "ask", "bid", "ask_volume", "bid_volume")

	out, err := e.EncodeToString(rows()[:1])
	require.NoError(t, err)
	assert.Equal(t, "timestamp;ask;bid;ask_volume;bid_volume\n1609718400500;1.23456;1.23446;1;2", out)
}

func TestEncodeEmpty(t *testing.T) {
	out, err := NewCSVEncoder().EncodeToString(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, rows()[:1]))
	assert.JSONEq(t, `[{"timestamp":1609718400500,"ask":1.23456,"bid":1.23446,"ask_volume":1,"bid_volume":2}]`, buf.String())

	assert.Error(t, Encode(&buf, Format("xml"), nil))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EURUSD", "2021-01-04.csv")

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return Encode(w, FormatCSV, rows())
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1609718400500,1.23456,1.23446,1,2\n1609718401500,1.23457,1.23447,1.25,0.5", string(content))
}

func TestWriteFileLeavesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	err := WriteFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
