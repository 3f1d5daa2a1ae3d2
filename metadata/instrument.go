package metadata

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Instrument holds what the decoder and the walk need to know about a symbol.
type Instrument struct {
	Symbol        string    `yaml:"symbol"`
	DecimalFactor float64   `yaml:"decimal_factor"`
	MinStartDate  time.Time `yaml:"-"`
}

// Table is an immutable instrument lookup keyed by lower-cased symbol.
type Table struct {
	instruments map[string]Instrument
}

// NewTable validates and indexes the given instruments. Later entries win on
// duplicate symbols.
func NewTable(instruments ...Instrument) (*Table, error) {
	t := &Table{instruments: make(map[string]Instrument, len(instruments))}
	for _, in := range instruments {
		in.Symbol = strings.ToLower(strings.TrimSpace(in.Symbol))
		if in.Symbol == "" {
			return nil, fmt.Errorf("instrument without symbol")
		}
		if in.DecimalFactor <= 0 {
			return nil, fmt.Errorf("instrument %s: decimal factor must be positive", in.Symbol)
		}
		in.MinStartDate = in.MinStartDate.UTC().Truncate(24 * time.Hour)
		t.instruments[in.Symbol] = in
	}
	return t, nil
}

// Lookup finds an instrument regardless of the symbol's casing.
func (t *Table) Lookup(symbol string) (Instrument, bool) {
	in, ok := t.instruments[strings.ToLower(symbol)]
	return in, ok
}

// Symbols returns the known symbols in lexical order.
func (t *Table) Symbols() []string {
	symbols := make([]string, 0, len(t.instruments))
	for s := range t.instruments {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (t *Table) Len() int {
	return len(t.instruments)
}

// Merge returns a new table holding t's instruments overridden by other's.
func (t *Table) Merge(other *Table) *Table {
	merged := &Table{instruments: make(map[string]Instrument, len(t.instruments)+len(other.instruments))}
	for k, v := range t.instruments {
		merged.instruments[k] = v
	}
	for k, v := range other.instruments {
		merged.instruments[k] = v
	}
	return merged
}

type fileEntry struct {
	DecimalFactor float64 `yaml:"decimal_factor"`
	MinStartDate  string  `yaml:"min_start_date"`
}

// LoadFile reads a YAML document of the form
//
//	eurusd:
//	  decimal_factor: 100000
//	  min_start_date: 2003-05-04
func LoadFile(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}

	entries := map[string]fileEntry{}
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata file %s: %w", path, err)
	}

	instruments := make([]Instrument, 0, len(entries))
	for symbol, e := range entries {
		start, err := time.Parse(dateLayout, e.MinStartDate)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: invalid min_start_date %q: %w", symbol, e.MinStartDate, err)
		}
		instruments = append(instruments, Instrument{
			Symbol:        symbol,
			DecimalFactor: e.DecimalFactor,
			MinStartDate:  start,
		})
	}

	return NewTable(instruments...)
}

func mustDate(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// Default is the built-in table covering the majors, metals and a few crypto pairs.
func Default() *Table {
	t, err := NewTable(
		Instrument{Symbol: "eurusd", DecimalFactor: 100000, MinStartDate: mustDate("2003-05-04")},
		Instrument{Symbol: "gbpusd", DecimalFactor: 100000, MinStartDate: mustDate("2003-05-04")},
		Instrument{Symbol: "usdchf", DecimalFactor: 100000, MinStartDate: mustDate("2003-05-04")},
		Instrument{Symbol: "usdjpy", DecimalFactor: 1000, MinStartDate: mustDate("2003-05-04")},
		Instrument{Symbol: "audusd", DecimalFactor: 100000, MinStartDate: mustDate("2003-08-03")},
		Instrument{Symbol: "usdcad", DecimalFactor: 100000, MinStartDate: mustDate("2003-08-03")},
		Instrument{Symbol: "nzdusd", DecimalFactor: 100000, MinStartDate: mustDate("2003-08-03")},
		Instrument{Symbol: "eurjpy", DecimalFactor: 1000, MinStartDate: mustDate("2003-08-03")},
		Instrument{Symbol: "eurgbp", DecimalFactor: 100000, MinStartDate: mustDate("2003-08-03")},
		Instrument{Symbol: "xauusd", DecimalFactor: 1000, MinStartDate: mustDate("2003-05-05")},
		Instrument{Symbol: "xagusd", DecimalFactor: 1000, MinStartDate: mustDate("2003-05-05")},
		Instrument{Symbol: "btcusd", DecimalFactor: 10, MinStartDate: mustDate("2017-05-07")},
		Instrument{Symbol: "ethusd", DecimalFactor: 10, MinStartDate: mustDate("2017-12-11")},
		Instrument{Symbol: "batusd", DecimalFactor: 100000, MinStartDate: mustDate("2018-06-06")},
		Instrument{Symbol: "uniusd", DecimalFactor: 1000, MinStartDate: mustDate("2020-10-15")},
		Instrument{Symbol: "lnkusd", DecimalFactor: 1000, MinStartDate: mustDate("2019-03-15")},
	)
	if err != nil {
		panic(err)
	}
	return t
}
