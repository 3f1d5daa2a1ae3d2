package archiver

import (
	"strings"
	"time"

	"github.com/condrove10/dukascopy-archiver/internal/failurelog"
)

type Granularity string

const (
	// GranularityTick builds one file per day from the day's 24 hourly tick containers.
	GranularityTick Granularity = "tick"
	// GranularityMinute stores the day's minute candles.
	GranularityMinute Granularity = "m1"
)

// Slot is one unit of work: an instrument and the UTC day (or hour) starting at Start.
type Slot struct {
	Instrument  string
	Start       time.Time
	Granularity Granularity
}

func (s Slot) Symbol() string {
	return strings.ToUpper(s.Instrument)
}

func (s Slot) Date() string {
	return s.Start.UTC().Format(failurelog.DateLayout)
}

func (s Slot) Record() failurelog.Record {
	return failurelog.Record{Instrument: s.Instrument, Date: s.Date()}
}

type Outcome int

const (
	OutcomeData Outcome = iota + 1
	OutcomeNoData
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeData:
		return "data"
	case OutcomeNoData:
		return "no_data"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SlotResult is the tagged outcome of one slot attempt. Err is a *SlotError
// exactly when Outcome is OutcomeFailed.
type SlotResult struct {
	Slot      Slot
	Outcome   Outcome
	Path      string
	Rows      int
	Discarded int
	Err       error
}

func failed(slot Slot, kind ErrorKind, err error) SlotResult {
	return SlotResult{
		Slot:    slot,
		Outcome: OutcomeFailed,
		Err:     &SlotError{Kind: kind, Slot: slot, Err: err},
	}
}

// Summary aggregates the slot results of a run or replay.
type Summary struct {
	Slots     int
	Data      int
	NoData    int
	Failed    int
	Rows      int
	Discarded int
	// Skipped counts replay records that could not be turned into a slot.
	Skipped int
}

func (s *Summary) add(r SlotResult) {
	s.Slots++
	s.Rows += r.Rows
	s.Discarded += r.Discarded
	switch r.Outcome {
	case OutcomeData:
		s.Data++
	case OutcomeNoData:
		s.NoData++
	case OutcomeFailed:
		s.Failed++
	}
}

// StartPolicy maps an instrument's earliest listed day to the first day worth
// requesting.
type StartPolicy func(minStartDate time.Time) time.Time

// DayAfterMinStart skips the earliest listed day, which the feed tends to
// report one day early.
func DayAfterMinStart(minStartDate time.Time) time.Time {
	return truncateDay(minStartDate).AddDate(0, 0, 1)
}

// MinStartAsIs trusts the listed earliest day.
func MinStartAsIs(minStartDate time.Time) time.Time {
	return truncateDay(minStartDate)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days lists every UTC day in [from, to], both ends included.
func Days(from, to time.Time) []time.Time {
	var days []time.Time
	for d := truncateDay(from); !d.After(truncateDay(to)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
