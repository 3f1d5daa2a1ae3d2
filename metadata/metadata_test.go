package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableLookupIgnoresCase(t *testing.T) {
	table := Default()

	in, ok := table.Lookup("EURUSD")
	require.True(t, ok)
	assert.Equal(t, "eurusd", in.Symbol)
	assert.Equal(t, float64(100000), in.DecimalFactor)
	assert.Equal(t, time.Date(2003, 5, 4, 0, 0, 0, 0, time.UTC), in.MinStartDate)

	_, ok = table.Lookup("nope")
	assert.False(t, ok)
}

func TestNewTableRejectsInvalidEntries(t *testing.T) {
	_, err := NewTable(Instrument{Symbol: "", DecimalFactor: 10})
	assert.Error(t, err)

	_, err = NewTable(Instrument{Symbol: "eurusd", DecimalFactor: 0})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
EURUSD:
  decimal_factor: 100000
  min_start_date: 2020-06-15
abcxyz:
  decimal_factor: 100
  min_start_date: 2021-01-01
`), 0o644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcxyz", "eurusd"}, table.Symbols())

	in, ok := table.Lookup("eurusd")
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC), in.MinStartDate)

	merged := Default().Merge(table)
	in, ok = merged.Lookup("eurusd")
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC), in.MinStartDate)
	_, ok = merged.Lookup("usdjpy")
	assert.True(t, ok)
}

func TestLoadFileInvalidDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eurusd:\n  decimal_factor: 1\n  min_start_date: soon\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "invalid min_start_date")
}

func TestFromRemote(t *testing.T) {
	body := []byte(`jsonp({"instruments":{
		"EUR/USD":{"historical_filename":"EURUSD","pipValue":0.0001,"history_start_tick":"1052006400000"},
		"USD/JPY":{"historical_filename":"USDJPY","pipValue":0.01,"history_start_tick":"1052006400000"},
		"BAT/USD":{"historical_filename":"BATUSD","pipValue":0,"history_start_tick":"1528243200000"},
		"BAD":{"historical_filename":"BAD","pipValue":0,"history_start_tick":"x"}
	}});`)

	table, err := FromRemote(body)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	eur, ok := table.Lookup("eurusd")
	require.True(t, ok)
	assert.Equal(t, float64(100000), eur.DecimalFactor)
	assert.Equal(t, time.Date(2003, 5, 4, 0, 0, 0, 0, time.UTC), eur.MinStartDate)

	jpy, _ := table.Lookup("usdjpy")
	assert.Equal(t, float64(1000), jpy.DecimalFactor)

	bat, _ := table.Lookup("batusd")
	assert.Equal(t, float64(100000), bat.DecimalFactor)
}

func TestFromRemoteGarbage(t *testing.T) {
	_, err := FromRemote([]byte("not jsonp"))
	assert.Error(t, err)
}
