package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/condrove10/dukascopy-archiver/tick"
	"github.com/kjk/lzma"
	"github.com/shopspring/decimal"
)

const (
	TickBytes   = 20
	CandleBytes = 24

	// VolumePlaces is the precision volumes are rounded to.
	VolumePlaces = 4
)

// TickResult is a decoded hourly tick container. Discarded counts trailing
// bytes that did not make up a whole record.
type TickResult struct {
	Ticks     []tick.Tick
	Discarded int
}

type CandleResult struct {
	Candles   []tick.Candle
	Discarded int
}

// DecodeTicks decompresses an hourly container and unpacks its >3i2f records
// relative to hourStart. Empty input means no data and yields an empty result.
func DecodeTicks(data []byte, hourStart time.Time, decimalFactor float64) (*TickResult, error) {
	if decimalFactor <= 0 {
		return nil, fmt.Errorf("invalid decimal factor %v", decimalFactor)
	}

	if len(data) == 0 {
		return &TickResult{Ticks: []tick.Tick{}}, nil
	}

	content, err := decompress(data)
	if err != nil {
		return nil, err
	}

	startMs := hourStart.UnixMilli()
	n := len(content) / TickBytes
	res := &TickResult{
		Ticks:     make([]tick.Tick, 0, n),
		Discarded: len(content) % TickBytes,
	}

	for i := 0; i < n; i++ {
		t, err := decodeTickData(content[i*TickBytes:(i+1)*TickBytes], startMs, decimalFactor)
		if err != nil {
			return nil, fmt.Errorf("decode failed at record %d: %w", i, err)
		}
		res.Ticks = append(res.Ticks, *t)
	}

	return res, nil
}

// DecodeCandles unpacks a daily minute-candle container of >5i1f records
// (seconds offset, open, close, low, high, volume) relative to dayStart.
func DecodeCandles(data []byte, dayStart time.Time, decimalFactor float64) (*CandleResult, error) {
	if decimalFactor <= 0 {
		return nil, fmt.Errorf("invalid decimal factor %v", decimalFactor)
	}

	if len(data) == 0 {
		return &CandleResult{Candles: []tick.Candle{}}, nil
	}

	content, err := decompress(data)
	if err != nil {
		return nil, err
	}

	startMs := dayStart.UnixMilli()
	n := len(content) / CandleBytes
	res := &CandleResult{
		Candles:   make([]tick.Candle, 0, n),
		Discarded: len(content) % CandleBytes,
	}

	for i := 0; i < n; i++ {
		c, err := decodeCandleData(content[i*CandleBytes:(i+1)*CandleBytes], startMs, decimalFactor)
		if err != nil {
			return nil, fmt.Errorf("decode failed at record %d: %w", i, err)
		}
		res.Candles = append(res.Candles, *c)
	}

	return res, nil
}

func decompress(data []byte) ([]byte, error) {
	dec := lzma.NewReader(bytes.NewReader(data))
	defer dec.Close()

	content, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	return content, nil
}

func decodeTickData(data []byte, startMs int64, decimalFactor float64) (*tick.Tick, error) {
	raw := struct {
		TimeMs    int32
		Ask       int32
		Bid       int32
		VolumeAsk float32
		VolumeBid float32
	}{}

	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &raw); err != nil {
		return nil, fmt.Errorf("failed to read buffer: %w", err)
	}

	return &tick.Tick{
		Timestamp: startMs + int64(raw.TimeMs),
		Ask:       float64(raw.Ask) / decimalFactor,
		Bid:       float64(raw.Bid) / decimalFactor,
		AskVolume: RoundVolume(raw.VolumeAsk),
		BidVolume: RoundVolume(raw.VolumeBid),
	}, nil
}

func decodeCandleData(data []byte, startMs int64, decimalFactor float64) (*tick.Candle, error) {
	raw := struct {
		TimeSec int32
		Open    int32
		Close   int32
		Low     int32
		High    int32
		Volume  float32
	}{}

	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &raw); err != nil {
		return nil, fmt.Errorf("failed to read buffer: %w", err)
	}

	return &tick.Candle{
		Timestamp: startMs + int64(raw.TimeSec)*1000,
		Open:      float64(raw.Open) / decimalFactor,
		High:      float64(raw.High) / decimalFactor,
		Low:       float64(raw.Low) / decimalFactor,
		Close:     float64(raw.Close) / decimalFactor,
		Volume:    RoundVolume(raw.Volume),
	}, nil
}

// RoundVolume rounds half away from zero to VolumePlaces, working on the
// shortest decimal representation of v so 0.00005 becomes 0.0001.
func RoundVolume(v float32) float64 {
	return decimal.NewFromFloat32(v).Round(VolumePlaces).InexactFloat64()
}
