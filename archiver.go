package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/condrove10/dukascopy-archiver/internal/batch"
	"github.com/condrove10/dukascopy-archiver/internal/conversions"
	"github.com/condrove10/dukascopy-archiver/internal/csvencoder"
	"github.com/condrove10/dukascopy-archiver/internal/failurelog"
	"github.com/condrove10/dukascopy-archiver/internal/feedurl"
	"github.com/condrove10/dukascopy-archiver/internal/metrics"
	"github.com/condrove10/dukascopy-archiver/internal/parser"
	"github.com/condrove10/dukascopy-archiver/internal/transport"
	"github.com/condrove10/dukascopy-archiver/metadata"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const hoursPerDay = 24

// Archiver walks instrument/day ranges, fetching, decoding and persisting one
// slot at a time.
type Archiver struct {
	fetcher     transport.Fetcher
	instruments *metadata.Table
	outputDir   string
	format      csvencoder.Format
	header      bool
	granularity Granularity
	side        feedurl.Side
	batchSize   int
	rootURL     string
	startPolicy StartPolicy
	logger      zerolog.Logger
	metrics     *metrics.Registry
	now         func() time.Time
}

type settings struct {
	OutputDir   string `validate:"required"`
	Format      string `validate:"oneof=csv json"`
	Granularity string `validate:"oneof=tick m1"`
	Side        string `validate:"oneof=BID ASK"`
	BatchSize   int    `validate:"gt=0,lte=24"`
	RootURL     string `validate:"required,url"`
}

// New returns an Archiver writing CSV tick files under ./data, fetching one
// hour at a time.
func New(fetcher transport.Fetcher, instruments *metadata.Table) *Archiver {
	return &Archiver{
		fetcher:     fetcher,
		instruments: instruments,
		outputDir:   "data",
		format:      csvencoder.FormatCSV,
		granularity: GranularityTick,
		side:        feedurl.SideBid,
		batchSize:   1,
		rootURL:     feedurl.DefaultRoot,
		startPolicy: DayAfterMinStart,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
}

func (a *Archiver) WithOutputDir(dir string) *Archiver {
	a.outputDir = dir
	return a
}

func (a *Archiver) WithFormat(format csvencoder.Format) *Archiver {
	a.format = format
	return a
}

// WithHeader prefixes CSV day files with a line of column names.
func (a *Archiver) WithHeader(header bool) *Archiver {
	a.header = header
	return a
}

func (a *Archiver) WithGranularity(g Granularity) *Archiver {
	a.granularity = g
	return a
}

// WithSide selects the candle side used at minute granularity.
func (a *Archiver) WithSide(side feedurl.Side) *Archiver {
	a.side = side
	return a
}

// WithBatchSize bounds how many hourly containers of one day are fetched at once.
func (a *Archiver) WithBatchSize(batchSize int) *Archiver {
	if err := validator.New().Var(batchSize, "required,gt=0,lte=24"); err != nil {
		panic(fmt.Errorf("invalid value: %w", err))
	}
	a.batchSize = batchSize
	return a
}

func (a *Archiver) WithRootURL(root string) *Archiver {
	a.rootURL = strings.TrimSuffix(root, "/")
	return a
}

func (a *Archiver) WithStartPolicy(policy StartPolicy) *Archiver {
	a.startPolicy = policy
	return a
}

func (a *Archiver) WithLogger(logger zerolog.Logger) *Archiver {
	a.logger = logger
	return a
}

func (a *Archiver) WithMetrics(m *metrics.Registry) *Archiver {
	a.metrics = m
	return a
}

// WithClock replaces time.Now; hours that have not finished yet are never requested.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

func (a *Archiver) validate() error {
	if a.fetcher == nil {
		return fmt.Errorf("archiver has no fetcher")
	}
	if a.instruments == nil {
		return fmt.Errorf("archiver has no instrument table")
	}
	if a.startPolicy == nil || a.now == nil {
		return fmt.Errorf("archiver has no start policy or clock")
	}

	s := settings{
		OutputDir:   a.outputDir,
		Format:      string(a.format),
		Granularity: string(a.granularity),
		Side:        string(a.side),
		BatchSize:   a.batchSize,
		RootURL:     a.rootURL,
	}
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("failed to validate archiver instance: %w", err)
	}

	return nil
}

// Job is one range download: every instrument, every UTC day in [From, To].
type Job struct {
	Instruments []string
	From        time.Time
	To          time.Time
}

// Run walks the job day by day, instrument by instrument. Failed slots are
// appended to failures and never stop the walk. Cancellation is honoured
// between slots; the partial summary is returned with ctx.Err().
func (a *Archiver) Run(ctx context.Context, job Job, failures failurelog.Sink) (Summary, error) {
	summary := Summary{}

	if err := a.validate(); err != nil {
		return summary, err
	}
	if failures == nil {
		return summary, fmt.Errorf("no failure sink")
	}
	if len(job.Instruments) == 0 {
		return summary, fmt.Errorf("no instruments requested")
	}
	if job.To.Before(job.From) {
		return summary, fmt.Errorf("end date %s is before start date %s", job.To.Format(time.DateOnly), job.From.Format(time.DateOnly))
	}

	instruments := make([]metadata.Instrument, 0, len(job.Instruments))
	for _, symbol := range job.Instruments {
		in, ok := a.instruments.Lookup(symbol)
		if !ok {
			return summary, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
		}
		instruments = append(instruments, in)
	}

	to := truncateDay(job.To)
	for _, in := range instruments {
		date := truncateDay(job.From)
		if first := a.startPolicy(in.MinStartDate); first.After(date) {
			date = first
		}

		a.logger.Info().
			Str("symbol", strings.ToUpper(in.Symbol)).
			Str("from", date.Format(time.DateOnly)).
			Str("to", to.Format(time.DateOnly)).
			Str("granularity", string(a.granularity)).
			Msg("downloading")

		for !date.After(to) {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			slot := Slot{Instrument: in.Symbol, Start: date, Granularity: a.granularity}
			date = date.AddDate(0, 0, 1)

			res, err := a.process(ctx, slot, failures)
			summary.add(res)
			if err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// process runs one slot to completion, file write included, and records a
// failure when it did not succeed. The only error returned is a failure sink
// that stopped accepting records.
func (a *Archiver) process(ctx context.Context, slot Slot, failures failurelog.Sink) (SlotResult, error) {
	began := time.Now()
	res := a.FetchSlot(context.WithoutCancel(ctx), slot)

	a.metrics.ObserveSlot(slot.Instrument, res.Outcome.String(), res.Rows, res.Discarded, time.Since(began))
	a.logResult(res)

	if res.Outcome != OutcomeFailed {
		return res, nil
	}

	if err := failures.Append(slot.Record()); err != nil {
		return res, fmt.Errorf("failed to record failed slot %s: %w", slot.Record(), err)
	}
	a.metrics.ObserveFailureRecord()

	return res, nil
}

func (a *Archiver) logResult(res SlotResult) {
	switch res.Outcome {
	case OutcomeData:
		a.logger.Info().
			Str("symbol", res.Slot.Symbol()).
			Str("date", res.Slot.Date()).
			Int("rows", res.Rows).
			Str("file", res.Path).
			Msg("✔")
	case OutcomeNoData:
		a.logger.Info().
			Str("symbol", res.Slot.Symbol()).
			Str("date", res.Slot.Date()).
			Msg("no data")
	case OutcomeFailed:
		a.logger.Error().
			Err(res.Err).
			Str("symbol", res.Slot.Symbol()).
			Str("date", res.Slot.Date()).
			Str("kind", KindOf(res.Err).String()).
			Msg("slot failed")
	}

	if res.Discarded > 0 {
		a.logger.Warn().
			Str("symbol", res.Slot.Symbol()).
			Str("date", res.Slot.Date()).
			Int("bytes", res.Discarded).
			Msg("discarded trailing bytes")
	}
}

// FetchSlot fetches, decodes and writes a single day. It never panics on bad
// data and never returns a nil Outcome.
func (a *Archiver) FetchSlot(ctx context.Context, slot Slot) SlotResult {
	in, ok := a.instruments.Lookup(slot.Instrument)
	if !ok {
		return failed(slot, KindConfig, fmt.Errorf("%w: %s", ErrUnknownInstrument, slot.Instrument))
	}
	slot.Instrument = in.Symbol
	slot.Start = truncateDay(slot.Start)

	var (
		rows      []csvencoder.Row
		discarded int
		err       error
	)
	switch slot.Granularity {
	case GranularityTick, "":
		slot.Granularity = GranularityTick
		rows, discarded, err = a.fetchDayTicks(ctx, slot, in)
	case GranularityMinute:
		rows, discarded, err = a.fetchDayCandles(ctx, slot, in)
	default:
		return failed(slot, KindConfig, fmt.Errorf("unsupported granularity %q", slot.Granularity))
	}
	if err != nil {
		var se *SlotError
		if errors.As(err, &se) {
			se.Slot = slot
			return SlotResult{Slot: slot, Outcome: OutcomeFailed, Err: se}
		}
		return failed(slot, KindTransport, err)
	}

	if len(rows) == 0 {
		return SlotResult{Slot: slot, Outcome: OutcomeNoData, Discarded: discarded}
	}

	path := feedurl.DayFileName(a.outputDir, in.Symbol, slot.Start, string(a.format))
	if err := a.write(path, rows); err != nil {
		res := failed(slot, KindWrite, err)
		res.Discarded = discarded
		return res
	}

	return SlotResult{
		Slot:      slot,
		Outcome:   OutcomeData,
		Path:      path,
		Rows:      len(rows),
		Discarded: discarded,
	}
}

func (a *Archiver) write(path string, rows []csvencoder.Row) error {
	if !a.header || a.format != csvencoder.FormatCSV {
		return csvencoder.WriteFile(path, func(w io.Writer) error {
			return csvencoder.Encode(w, a.format, rows)
		})
	}

	columns, err := conversions.FieldNames(rows[0], "json")
	if err != nil {
		return err
	}
	enc := csvencoder.NewCSVEncoder()
	enc.SetHeaders(columns...)

	return csvencoder.WriteFile(path, func(w io.Writer) error {
		return enc.Encode(w, rows)
	})
}

// fetchDayTicks collects the day's finished hours in hour order.
func (a *Archiver) fetchDayTicks(ctx context.Context, slot Slot, in metadata.Instrument) ([]csvencoder.Row, int, error) {
	hours := hoursPerDay
	now := a.now().UTC()
	for hours > 0 && slot.Start.Add(time.Duration(hours)*time.Hour).After(now) {
		hours--
	}

	results, err := batch.Run(ctx, hours, a.batchSize, func(ctx context.Context, h int) (*parser.TickResult, error) {
		return a.fetchHour(ctx, slot, in, slot.Start.Add(time.Duration(h)*time.Hour))
	})
	if err != nil {
		return nil, 0, err
	}

	var (
		rows      []csvencoder.Row
		discarded int
	)
	for _, r := range results {
		discarded += r.Discarded
		for _, t := range r.Ticks {
			rows = append(rows, t)
		}
	}

	return rows, discarded, nil
}

// fetchHour returns an empty result for absent hours.
func (a *Archiver) fetchHour(ctx context.Context, slot Slot, in metadata.Instrument, hourStart time.Time) (*parser.TickResult, error) {
	url := feedurl.BuildURL(a.rootURL, in.Symbol, hourStart)

	body, err := a.fetcher.Fetch(ctx, url)
	if errors.Is(err, transport.ErrNotFound) {
		a.logger.Debug().Str("url", url).Msg("not found")
		return &parser.TickResult{}, nil
	}
	if err != nil {
		return nil, &SlotError{Kind: KindTransport, Slot: slot, Err: err}
	}
	if len(body) == 0 {
		a.logger.Debug().Str("url", url).Msg("empty body")
		return &parser.TickResult{}, nil
	}

	res, err := parser.DecodeTicks(body, hourStart, in.DecimalFactor)
	if err != nil {
		return nil, &SlotError{Kind: KindDecode, Slot: slot, Err: fmt.Errorf("failed to parse data for url '%s': %w", url, err)}
	}

	return res, nil
}

func (a *Archiver) fetchDayCandles(ctx context.Context, slot Slot, in metadata.Instrument) ([]csvencoder.Row, int, error) {
	url := feedurl.CandleURL(a.rootURL, in.Symbol, slot.Start, a.side)

	body, err := a.fetcher.Fetch(ctx, url)
	if errors.Is(err, transport.ErrNotFound) || (err == nil && len(body) == 0) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, &SlotError{Kind: KindTransport, Slot: slot, Err: err}
	}

	res, err := parser.DecodeCandles(body, slot.Start, in.DecimalFactor)
	if err != nil {
		return nil, 0, &SlotError{Kind: KindDecode, Slot: slot, Err: fmt.Errorf("failed to parse data for url '%s': %w", url, err)}
	}

	rows := make([]csvencoder.Row, 0, len(res.Candles))
	for _, c := range res.Candles {
		rows = append(rows, c)
	}

	return rows, res.Discarded, nil
}
