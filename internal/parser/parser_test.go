package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hourStart = time.Date(2021, time.January, 4, 10, 0, 0, 0, time.UTC)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestDecodeTicksEmptyInput(t *testing.T) {
	for _, in := range [][]byte{nil, {}} {
		res, err := DecodeTicks(in, hourStart, 100000)
		require.NoError(t, err)
		assert.Empty(t, res.Ticks)
		assert.Zero(t, res.Discarded)
	}
}

func TestDecodeTicksEmptyPayload(t *testing.T) {
	res, err := DecodeTicks(fixture(t, "empty_payload.bi5"), hourStart, 100000)
	require.NoError(t, err)
	assert.Empty(t, res.Ticks)
}

func TestDecodeTicks(t *testing.T) {
	res, err := DecodeTicks(fixture(t, "ticks_3.bi5"), hourStart, 100000)
	require.NoError(t, err)
	require.Len(t, res.Ticks, 3)
	assert.Zero(t, res.Discarded)

	startMs := hourStart.UnixMilli()
	assert.Equal(t, startMs, res.Ticks[0].Timestamp)
	assert.Equal(t, startMs+1000, res.Ticks[1].Timestamp)
	assert.Equal(t, startMs+3599999, res.Ticks[2].Timestamp)

	assert.InDelta(t, 1.23456, res.Ticks[0].Ask, 1e-12)
	assert.InDelta(t, 1.23446, res.Ticks[0].Bid, 1e-12)
	assert.InDelta(t, 1.2347, res.Ticks[2].Ask, 1e-12)

	assert.Equal(t, 1.5, res.Ticks[0].AskVolume)
	assert.Equal(t, 0.0001, res.Ticks[0].BidVolume)
	assert.Equal(t, 1.2346, res.Ticks[1].AskVolume)
	assert.Equal(t, 2.25, res.Ticks[1].BidVolume)
	assert.Equal(t, 0.0, res.Ticks[2].AskVolume)
	assert.Equal(t, 10.0, res.Ticks[2].BidVolume)

	for i := 1; i < len(res.Ticks); i++ {
		assert.LessOrEqual(t, res.Ticks[i-1].Timestamp, res.Ticks[i].Timestamp)
	}
}

func TestDecodeTicksTrailingBytes(t *testing.T) {
	res, err := DecodeTicks(fixture(t, "trailing_7.bi5"), hourStart, 100000)
	require.NoError(t, err)
	assert.Len(t, res.Ticks, 3)
	assert.Equal(t, 7, res.Discarded)
}

func TestDecodeTicksCorrupt(t *testing.T) {
	_, err := DecodeTicks(fixture(t, "corrupt.bi5"), hourStart, 100000)
	assert.ErrorContains(t, err, "failed to decompress")
}

func TestDecodeTicksInvalidFactor(t *testing.T) {
	_, err := DecodeTicks(fixture(t, "ticks_3.bi5"), hourStart, 0)
	assert.Error(t, err)
}

func TestDecodeCandles(t *testing.T) {
	day := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
	res, err := DecodeCandles(fixture(t, "candles_2.bi5"), day, 1000)
	require.NoError(t, err)
	require.Len(t, res.Candles, 2)

	c := res.Candles[0]
	assert.Equal(t, day.UnixMilli(), c.Timestamp)
	assert.InDelta(t, 1850.123, c.Open, 1e-9)
	assert.InDelta(t, 1850.2, c.Close, 1e-9)
	assert.InDelta(t, 1850.0, c.Low, 1e-9)
	assert.InDelta(t, 1850.3, c.High, 1e-9)
	assert.Equal(t, 3.5, c.Volume)

	assert.Equal(t, day.UnixMilli()+60000, res.Candles[1].Timestamp)
}

func TestRoundVolume(t *testing.T) {
	cases := map[float32]float64{
		0:        0,
		0.00004:  0,
		0.00005:  0.0001,
		0.00015:  0.0002,
		1.23455:  1.2346,
		1.23454:  1.2345,
		2.5:      2.5,
		12.34567: 12.3457,
	}
	for in, want := range cases {
		assert.Equal(t, want, RoundVolume(in), "RoundVolume(%v)", in)
	}
}
