package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/condrove10/dukascopy-archiver/internal/logging"
	"github.com/condrove10/dukascopy-archiver/internal/transport"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DateLayout = time.DateOnly

// Config is everything the CLI needs for one invocation. Flags override the
// values loaded from file.
type Config struct {
	Symbols     []string `yaml:"symbols" validate:"dive,required"`
	From        string   `yaml:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string   `yaml:"to" validate:"omitempty,datetime=2006-01-02"`
	Granularity string   `yaml:"granularity" validate:"oneof=tick m1"`
	Side        string   `yaml:"side" validate:"oneof=BID ASK"`
	BatchSize   int      `yaml:"batch_size" validate:"gt=0,lte=24"`
	OutputDir   string   `yaml:"output_dir" validate:"required"`
	Format      string   `yaml:"format" validate:"oneof=csv json"`
	Header      bool     `yaml:"header"`
	RootURL     string   `yaml:"root_url" validate:"required,url"`
	// TrustMinStart requests the instrument's listed first day instead of the day after.
	TrustMinStart bool `yaml:"trust_min_start"`

	FailureLog  string `yaml:"failure_log" validate:"required"`
	RecoveryLog string `yaml:"recovery_log" validate:"required,nefield=FailureLog"`

	MetadataFile   string `yaml:"metadata_file"`
	RemoteMetadata bool   `yaml:"remote_metadata"`
	MetricsFile    string `yaml:"metrics_file"`

	Transport Transport      `yaml:"transport"`
	Logging   logging.Config `yaml:"logging"`
}

type Transport struct {
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	RetryDelay        time.Duration `yaml:"retry_delay" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	BreakerFailures   uint32        `yaml:"breaker_failures"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout" validate:"gte=0"`
}

func (t Transport) Options() transport.Options {
	return transport.Options{
		Timeout:           t.Timeout,
		RetryDelay:        t.RetryDelay,
		RequestsPerSecond: t.RequestsPerSecond,
		Burst:             t.Burst,
		BreakerFailures:   t.BreakerFailures,
		BreakerTimeout:    t.BreakerTimeout,
	}
}

func Default() Config {
	opts := transport.DefaultOptions()
	return Config{
		Granularity: "tick",
		Side:        "BID",
		BatchSize:   1,
		OutputDir:   "data",
		Format:      "csv",
		RootURL:     "https://datafeed.dukascopy.com/datafeed",
		FailureLog:  "log.txt",
		RecoveryLog: "recover_log.txt",
		Transport: Transport{
			Timeout:           opts.Timeout,
			RetryDelay:        opts.RetryDelay,
			RequestsPerSecond: opts.RequestsPerSecond,
			Burst:             opts.Burst,
			BreakerFailures:   opts.BreakerFailures,
			BreakerTimeout:    opts.BreakerTimeout,
		},
		Logging: logging.Config{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Range parses From and To. To defaults to From; a missing From is an error.
func (c *Config) Range() (time.Time, time.Time, error) {
	if c.From == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("no start date given")
	}
	from, err := time.Parse(DateLayout, c.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}

	to := from
	if c.To != "" {
		if to, err = time.Parse(DateLayout, c.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", c.To, c.From)
	}

	return from, to, nil
}

// Instruments returns the requested symbols lower-cased, splitting any
// comma-separated entries.
func (c *Config) Instruments() []string {
	var out []string
	for _, s := range c.Symbols {
		for _, part := range strings.Split(s, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
