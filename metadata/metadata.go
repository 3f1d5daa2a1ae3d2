package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Metadata mirrors one entry of the datafeed's public instruments index.
type Metadata struct {
	Title              string   `json:"title"`
	Special            bool     `json:"special"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	HistoricalFilename string   `json:"historical_filename"`
	PipValue           float32  `json:"pipValue"`
	BaseCurrency       string   `json:"base_currency"`
	QuoteCurrency      string   `json:"quote_currency"`
	TagList            []string `json:"tag_list"`
	HistoryStartTick   string   `json:"history_start_tick"`
	HistoryStart10sec  string   `json:"history_start_10sec"`
	HistoryStart60sec  string   `json:"history_start_60sec"`
	HistoryStart60min  string   `json:"history_start_60min"`
	HistoryStartDay    string   `json:"history_start_day"`
}

// RemoteIndexURL serves the instruments index as JSONP.
const RemoteIndexURL = "https://freeserv.dukascopy.com/2.0/index.php?path=common/instruments"

type metadataResponse struct {
	Instruments map[string]*Metadata `json:"instruments"`
}

// FromRemote builds a Table from the body of RemoteIndexURL.
func FromRemote(body []byte) (*Table, error) {
	start := strings.IndexByte(string(body), '(')
	end := strings.LastIndexByte(string(body), ')')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("unexpected instruments payload")
	}

	resp := metadataResponse{}
	if err := json.Unmarshal(body[start+1:end], &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	instruments := make([]Instrument, 0, len(resp.Instruments))
	for _, m := range resp.Instruments {
		symbol := strings.ToLower(m.HistoricalFilename)
		if symbol == "" {
			continue
		}

		factor, err := decimalFactor(m, symbol)
		if err != nil {
			continue
		}

		ms, err := strconv.ParseInt(m.HistoryStartTick, 10, 64)
		if err != nil {
			continue
		}

		instruments = append(instruments, Instrument{
			Symbol:        symbol,
			DecimalFactor: factor,
			MinStartDate:  time.UnixMilli(ms).UTC().Truncate(24 * time.Hour),
		})
	}

	return NewTable(instruments...)
}

func decimalFactor(m *Metadata, symbol string) (float64, error) {
	// credits to Leo4815162342, commit 67c6903
	switch symbol {
	case "batusd":
		return 100000, nil
	case "uniusd", "lnkusd":
		return 1000, nil
	}

	if m.PipValue <= 0 {
		return 0, fmt.Errorf("no pip value for %s", symbol)
	}

	return math.Round(10 / float64(m.PipValue)), nil
}
