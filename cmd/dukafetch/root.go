package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	archiver "github.com/condrove10/dukascopy-archiver"
	"github.com/condrove10/dukascopy-archiver/internal/config"
	"github.com/condrove10/dukascopy-archiver/internal/csvencoder"
	"github.com/condrove10/dukascopy-archiver/internal/feedurl"
	"github.com/condrove10/dukascopy-archiver/internal/logging"
	"github.com/condrove10/dukascopy-archiver/internal/metrics"
	"github.com/condrove10/dukascopy-archiver/internal/transport"
	"github.com/condrove10/dukascopy-archiver/metadata"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every subcommand shares once the root pre-run has loaded
// the configuration.
type app struct {
	configPath string
	cfg        config.Config
	overrides  config.Config

	logger    zerolog.Logger
	logCloser io.Closer
	metrics   *metrics.Registry
	fetcher   transport.Fetcher
}

// newRootCmd returns the command tree and the app it configures. The caller
// runs app.teardown once the command has finished, whatever its outcome.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{overrides: config.Default()}

	root := &cobra.Command{
		Use:           "dukafetch",
		Short:         "Download Dukascopy historical ticks into daily files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.overrides.Logging.Level, "log-level", a.overrides.Logging.Level, "Log level (trace|debug|info|warn|error)")
	pf.StringVar(&a.overrides.Logging.Format, "log-format", a.overrides.Logging.Format, "Log format (console|json)")
	pf.StringVar(&a.overrides.Logging.File, "log-file", "", "Also write JSON logs to this rotating file")
	pf.StringVarP(&a.overrides.OutputDir, "output", "o", a.overrides.OutputDir, "Output directory")
	pf.StringVar(&a.overrides.Format, "format", a.overrides.Format, "Output format (csv|json)")
	pf.BoolVar(&a.overrides.Header, "header", false, "Start CSV day files with a line of column names")
	pf.StringVar(&a.overrides.MetadataFile, "metadata", "", "YAML instrument table merged over the built-in one")
	pf.BoolVar(&a.overrides.RemoteMetadata, "remote-metadata", false, "Merge the live Dukascopy instrument index over the built-in table")
	pf.StringVar(&a.overrides.MetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file when done")
	pf.StringVar(&a.overrides.RootURL, "root-url", a.overrides.RootURL, "Datafeed root URL")

	root.AddCommand(
		newFetchCmd(a),
		newReplayCmd(a),
		newHourCmd(a),
		newURLCmd(a),
	)

	return root, a
}

// overrideFlags maps flag names to the config fields they overwrite.
var overrideFlags = map[string]func(dst, src *config.Config){
	"log-level":       func(d, s *config.Config) { d.Logging.Level = s.Logging.Level },
	"log-format":      func(d, s *config.Config) { d.Logging.Format = s.Logging.Format },
	"log-file":        func(d, s *config.Config) { d.Logging.File = s.Logging.File },
	"output":          func(d, s *config.Config) { d.OutputDir = s.OutputDir },
	"format":          func(d, s *config.Config) { d.Format = s.Format },
	"header":          func(d, s *config.Config) { d.Header = s.Header },
	"metadata":        func(d, s *config.Config) { d.MetadataFile = s.MetadataFile },
	"remote-metadata": func(d, s *config.Config) { d.RemoteMetadata = s.RemoteMetadata },
	"metrics-file":    func(d, s *config.Config) { d.MetricsFile = s.MetricsFile },
	"root-url":        func(d, s *config.Config) { d.RootURL = s.RootURL },
	"symbols":         func(d, s *config.Config) { d.Symbols = s.Symbols },
	"from":            func(d, s *config.Config) { d.From = s.From },
	"to":              func(d, s *config.Config) { d.To = s.To },
	"type":            func(d, s *config.Config) { d.Granularity = s.Granularity },
	"side":            func(d, s *config.Config) { d.Side = s.Side },
	"batch-size":      func(d, s *config.Config) { d.BatchSize = s.BatchSize },
	"trust-min-start": func(d, s *config.Config) { d.TrustMinStart = s.TrustMinStart },
	"log":             func(d, s *config.Config) { d.FailureLog = s.FailureLog },
	"recover-log":     func(d, s *config.Config) { d.RecoveryLog = s.RecoveryLog },
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	for name, apply := range overrideFlags {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply(&cfg, &a.overrides)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	a.logCloser = closer
	a.metrics = metrics.NewRegistry()

	if a.fetcher == nil {
		a.fetcher = transport.NewHTTPFetcher(&http.Client{}, cfg.Transport.Options())
	}

	return nil
}

func (a *app) teardown() error {
	if a.metrics != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.logger.Error().Err(err).Str("file", a.cfg.MetricsFile).Msg("failed to write metrics")
		}
	}
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}

// instruments merges, in order, the built-in table, the remote index and the
// local metadata file.
func (a *app) instruments(ctx context.Context) (*metadata.Table, error) {
	table := metadata.Default()

	if a.cfg.RemoteMetadata {
		body, err := a.fetcher.Fetch(ctx, metadata.RemoteIndexURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch instrument index: %w", err)
		}
		remote, err := metadata.FromRemote(body)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Int("instruments", remote.Len()).Msg("loaded remote instrument index")
		table = table.Merge(remote)
	}

	if a.cfg.MetadataFile != "" {
		local, err := metadata.LoadFile(a.cfg.MetadataFile)
		if err != nil {
			return nil, err
		}
		table = table.Merge(local)
	}

	return table, nil
}

func (a *app) archiver(ctx context.Context) (*archiver.Archiver, error) {
	table, err := a.instruments(ctx)
	if err != nil {
		return nil, err
	}

	policy := archiver.DayAfterMinStart
	if a.cfg.TrustMinStart {
		policy = archiver.MinStartAsIs
	}

	return archiver.New(a.fetcher, table).
		WithOutputDir(a.cfg.OutputDir).
		WithFormat(csvencoder.Format(a.cfg.Format)).
		WithHeader(a.cfg.Header).
		WithGranularity(archiver.Granularity(a.cfg.Granularity)).
		WithSide(feedurl.Side(a.cfg.Side)).
		WithBatchSize(a.cfg.BatchSize).
		WithRootURL(a.cfg.RootURL).
		WithStartPolicy(policy).
		WithLogger(a.logger).
		WithMetrics(a.metrics), nil
}

func (a *app) logSummary(msg string, s archiver.Summary) {
	a.logger.Info().
		Int("slots", s.Slots).
		Int("data", s.Data).
		Int("no_data", s.NoData).
		Int("failed", s.Failed).
		Int("rows", s.Rows).
		Int("discarded_bytes", s.Discarded).
		Int("skipped", s.Skipped).
		Msg(msg)
}
