package archiver

import (
	"context"
	"fmt"
	"strings"

	"github.com/condrove10/dukascopy-archiver/internal/failurelog"
)

// Replay re-attempts every record once, in order and without de-duplication.
// Slots that fail again are appended to failures, which must not be the log
// the records were read from.
func (a *Archiver) Replay(ctx context.Context, records []failurelog.Record, failures failurelog.Sink) (Summary, error) {
	summary := Summary{}

	if err := a.validate(); err != nil {
		return summary, err
	}
	if failures == nil {
		return summary, fmt.Errorf("no failure sink")
	}

	a.logger.Info().Int("records", len(records)).Msg("replaying failed slots")

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		day, err := rec.Day()
		if err != nil || strings.TrimSpace(rec.Instrument) == "" {
			a.logger.Warn().Str("record", rec.String()).Msg("skipping unreadable failure record")
			summary.Skipped++
			continue
		}

		slot := Slot{
			Instrument:  strings.ToLower(strings.TrimSpace(rec.Instrument)),
			Start:       day,
			Granularity: a.granularity,
		}

		res, err := a.process(ctx, slot, failures)
		summary.add(res)
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}
