package main

import (
	"fmt"
	"time"

	archiver "github.com/condrove10/dukascopy-archiver"
	"github.com/spf13/cobra"
)

const hourLayout = "2006-01-02T15"

func newHourCmd(a *app) *cobra.Command {
	var (
		symbol string
		at     string
		dir    string
	)

	cmd := &cobra.Command{
		Use:     "hour",
		Short:   "Dump a single hourly tick file as CSV",
		Example: "  dukafetch hour -s eurusd --at 2021-01-04T10",
		RunE: func(cmd *cobra.Command, args []string) error {
			hour, err := time.Parse(hourLayout, at)
			if err != nil {
				return fmt.Errorf("invalid --at, want YYYY-MM-DDTHH: %w", err)
			}
			arch, err := a.archiver(cmd.Context())
			if err != nil {
				return err
			}
			return a.reportDump(arch.DumpHour(cmd.Context(), symbol, hour, dir))
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Instrument")
	cmd.Flags().StringVar(&at, "at", "", "UTC hour, YYYY-MM-DDTHH")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory receiving the file")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func newURLCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "url <datafeed-url>",
		Short: "Dump the hourly tick file behind a datafeed URL as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, err := a.archiver(cmd.Context())
			if err != nil {
				return err
			}
			return a.reportDump(arch.DumpURL(cmd.Context(), args[0], dir))
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory receiving the file")

	return cmd
}

func (a *app) reportDump(res archiver.SlotResult) error {
	switch res.Outcome {
	case archiver.OutcomeData:
		a.logger.Info().Str("file", res.Path).Int("rows", res.Rows).Msg("✔")
	case archiver.OutcomeNoData:
		a.logger.Info().Str("symbol", res.Slot.Symbol()).Time("hour", res.Slot.Start).Msg("no data")
	default:
		return res.Err
	}
	return nil
}
