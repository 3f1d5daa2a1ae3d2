package main

import (
	"context"
	"errors"

	archiver "github.com/condrove10/dukascopy-archiver"
	"github.com/condrove10/dukascopy-archiver/internal/failurelog"
	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download every requested instrument for every day in the range",
		Example: `  dukafetch fetch -s eurusd,gbpusd -f 2021-01-01 -e 2021-01-03
  dukafetch fetch -s xauusd -f 2021-01-04 -t m1 --side ASK --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&a.overrides.Symbols, "symbols", "s", nil, "Instruments to download, comma separated")
	f.StringVarP(&a.overrides.From, "from", "f", "", "First day, YYYY-MM-DD")
	f.StringVarP(&a.overrides.To, "to", "e", "", "Last day, YYYY-MM-DD (defaults to --from)")
	f.StringVarP(&a.overrides.Granularity, "type", "t", a.overrides.Granularity, "Granularity (tick|m1)")
	f.StringVar(&a.overrides.Side, "side", a.overrides.Side, "Candle side at m1 granularity (BID|ASK)")
	f.IntVar(&a.overrides.BatchSize, "batch-size", a.overrides.BatchSize, "Hourly files of one day fetched concurrently")
	f.BoolVar(&a.overrides.TrustMinStart, "trust-min-start", false, "Start at the instrument's listed first day instead of the day after")
	f.StringVar(&a.overrides.FailureLog, "log", a.overrides.FailureLog, "Failure log appended to for every failed day")

	return cmd
}

func (a *app) runFetch(ctx context.Context) error {
	instruments := a.cfg.Instruments()
	if len(instruments) == 0 {
		return errors.New("no instruments given, use --symbols")
	}
	from, to, err := a.cfg.Range()
	if err != nil {
		return err
	}

	arch, err := a.archiver(ctx)
	if err != nil {
		return err
	}

	failures, err := failurelog.Open(a.cfg.FailureLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := failures.Close(); err != nil {
			a.logger.Error().Err(err).Str("file", failures.Path()).Msg("failed to close failure log")
		}
	}()

	summary, err := arch.Run(ctx, archiver.Job{Instruments: instruments, From: from, To: to}, failures)
	if errors.Is(err, context.Canceled) {
		a.logSummary("interrupted", summary)
		return err
	}
	if err != nil {
		return err
	}

	a.logSummary("done", summary)
	if summary.Failed > 0 {
		a.logger.Warn().Int("failed", summary.Failed).Str("file", failures.Path()).Msg("some days failed, run replay to retry them")
	}

	return nil
}
