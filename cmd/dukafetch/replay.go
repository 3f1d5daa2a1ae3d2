package main

import (
	"context"
	"errors"
	"os"

	"github.com/condrove10/dukascopy-archiver/internal/failurelog"
	"github.com/spf13/cobra"
)

func newReplayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Retry every day listed in the failure log",
		Long: `Replay reads the failure log in order and attempts every listed day again.
Days that still fail are appended to the recovery log; the failure log itself is
left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&a.overrides.Granularity, "type", "t", a.overrides.Granularity, "Granularity (tick|m1)")
	f.StringVar(&a.overrides.Side, "side", a.overrides.Side, "Candle side at m1 granularity (BID|ASK)")
	f.IntVar(&a.overrides.BatchSize, "batch-size", a.overrides.BatchSize, "Hourly files of one day fetched concurrently")
	f.StringVar(&a.overrides.FailureLog, "log", a.overrides.FailureLog, "Failure log to replay")
	f.StringVar(&a.overrides.RecoveryLog, "recover-log", a.overrides.RecoveryLog, "Log receiving days that fail again")

	return cmd
}

func (a *app) runReplay(ctx context.Context) error {
	records, malformed, err := failurelog.ReadFile(a.cfg.FailureLog)
	if errors.Is(err, os.ErrNotExist) {
		a.logger.Info().Str("file", a.cfg.FailureLog).Msg("no failure log, nothing to replay")
		return nil
	}
	if err != nil {
		return err
	}
	if malformed > 0 {
		a.logger.Warn().Int("lines", malformed).Str("file", a.cfg.FailureLog).Msg("skipping malformed failure log lines")
	}

	arch, err := a.archiver(ctx)
	if err != nil {
		return err
	}

	recovery, err := failurelog.Open(a.cfg.RecoveryLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := recovery.Close(); err != nil {
			a.logger.Error().Err(err).Str("file", recovery.Path()).Msg("failed to close recovery log")
		}
	}()

	summary, err := arch.Replay(ctx, records, recovery)
	if err != nil {
		a.logSummary("replay stopped", summary)
		return err
	}

	a.logSummary("replay done", summary)
	return nil
}
