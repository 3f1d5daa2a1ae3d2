package archiver

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/condrove10/dukascopy-archiver/internal/csvencoder"
	"github.com/condrove10/dukascopy-archiver/internal/feedurl"
)

// DumpHour fetches the single hourly container covering hour and writes it to
// dir as SYMBOL_YYYY_MM_DD_HHh_ticks.csv. Hour dumps bypass the failure log.
func (a *Archiver) DumpHour(ctx context.Context, instrument string, hour time.Time, dir string) SlotResult {
	hour = hour.UTC().Truncate(time.Hour)
	slot := Slot{Instrument: instrument, Start: hour, Granularity: GranularityTick}

	if err := a.validate(); err != nil {
		return failed(slot, KindConfig, err)
	}

	in, ok := a.instruments.Lookup(instrument)
	if !ok {
		return failed(slot, KindConfig, ErrUnknownInstrument)
	}
	slot.Instrument = in.Symbol

	res, err := a.fetchHour(ctx, slot, in, hour)
	if err != nil {
		return SlotResult{Slot: slot, Outcome: OutcomeFailed, Err: err}
	}
	if len(res.Ticks) == 0 {
		return SlotResult{Slot: slot, Outcome: OutcomeNoData, Discarded: res.Discarded}
	}

	name, err := feedurl.LocalFileName(feedurl.BuildURL(a.rootURL, in.Symbol, hour))
	if err != nil {
		return failed(slot, KindConfig, err)
	}
	path := filepath.Join(dir, name)

	rows := make([]csvencoder.Row, 0, len(res.Ticks))
	for _, t := range res.Ticks {
		rows = append(rows, t)
	}
	if err := csvencoder.WriteFile(path, func(w io.Writer) error {
		return csvencoder.NewCSVEncoder().Encode(w, rows)
	}); err != nil {
		return failed(slot, KindWrite, err)
	}

	return SlotResult{Slot: slot, Outcome: OutcomeData, Path: path, Rows: len(rows), Discarded: res.Discarded}
}

// DumpURL is DumpHour for a datafeed tick URL.
func (a *Archiver) DumpURL(ctx context.Context, url, dir string) SlotResult {
	instrument, hour, err := feedurl.ParseURL(url)
	if err != nil {
		return failed(Slot{Granularity: GranularityTick}, KindConfig, err)
	}
	return a.DumpHour(ctx, instrument, hour, dir)
}
