package tick

import (
	"strconv"
)

// Tick is one decoded quote. Timestamp is UTC milliseconds since the epoch.
type Tick struct {
	Timestamp int64   `json:"timestamp"`
	Ask       float64 `json:"ask"`
	Bid       float64 `json:"bid"`
	AskVolume float64 `json:"ask_volume"`
	BidVolume float64 `json:"bid_volume"`
}

// Fields renders the tick in timestamp,ask,bid,askVolume,bidVolume order.
func (t Tick) Fields() []string {
	return []string{
		strconv.FormatInt(t.Timestamp, 10),
		formatFloat(t.Ask),
		formatFloat(t.Bid),
		formatFloat(t.AskVolume),
		formatFloat(t.BidVolume),
	}
}

// Candle is one minute bar of a single price side.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Fields renders the candle in timestamp,open,high,low,close,volume order.
func (c Candle) Fields() []string {
	return []string{
		strconv.FormatInt(c.Timestamp, 10),
		formatFloat(c.Open),
		formatFloat(c.High),
		formatFloat(c.Low),
		formatFloat(c.Close),
		formatFloat(c.Volume),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
