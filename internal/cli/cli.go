// Package cli holds the plumbing the probe, group and upload commands share:
// configuration with flag overrides, the run logger, the metrics backend and
// the database connection string.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"schemagroup/internal/config"
	"schemagroup/internal/logging"
	"schemagroup/internal/metrics"
	"schemagroup/internal/metrics/datadog"
	"schemagroup/internal/run"
)

// Exit codes shared by every command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Common are the flags every command accepts.
type Common struct {
	ConfigPath string
	Dir        string
	LogLevel   string
	Metrics    string
	Encoding   string
	Flat       bool
}

// Register adds the common flags to fs.
func (c *Common) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", "", "optional YAML config path")
	fs.StringVar(&c.Dir, "dir", "", "input folder to scan")
	fs.StringVar(&c.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	fs.StringVar(&c.Metrics, "metrics-backend", "", "metrics backend: none|datadog")
	fs.StringVar(&c.Encoding, "encoding", "", "input text encoding (default utf-8)")
	fs.BoolVar(&c.Flat, "flat", false, "do not descend into subdirectories")
}

// Load reads the config file and environment, then applies every flag that
// was set explicitly on fs. apply handles command-specific flags; it may be
// nil.
func (c *Common) Load(fs *flag.FlagSet, apply func(cfg *config.Config, name string)) (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.Input.Dir = c.Dir
		case "log-level":
			cfg.Log.Level = c.LogLevel
		case "metrics-backend":
			cfg.Metrics.Backend = c.Metrics
		case "encoding":
			cfg.Input.Encoding = c.Encoding
		case "flat":
			cfg.Input.Flat = c.Flat
		default:
			if apply != nil {
				apply(cfg, f.Name)
			}
		}
	})
	return cfg, nil
}

// Parse parses args into fs. Usage problems print to stderr and return
// ExitUsage; ok is false when the caller should return that code.
func Parse(fs *flag.FlagSet, args []string, stderr io.Writer) (code int, ok bool) {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(stderr, config.Usage())
			return ExitOK, false
		}
		return ExitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return ExitUsage, false
	}
	return ExitOK, true
}

// Session is a started run: its context plus the resources to release.
type Session struct {
	Run     *run.Context
	LogPath string

	closers []func() error
}

// Start builds the run logger (console on stderr, plus logFile under
// cfg.Log.Dir or the working directory) and the metrics recorder, and returns
// the run context.
func Start(ctx context.Context, cfg *config.Config, job, logFile string, stderr io.Writer) (*Session, error) {
	s := &Session{}
	if logFile != "" {
		dir := cfg.Log.Dir
		if dir == "" {
			dir = "."
		}
		s.LogPath = filepath.Join(dir, logFile)
	}
	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    s.LogPath,
		Console: stderr,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error {
		_ = log.Sync()
		return closeLog()
	})

	rec, closeMetrics := initMetrics(ctx, cfg.Metrics, job, log)
	if closeMetrics != nil {
		// Metrics flush before the log file closes so flush errors are kept.
		s.closers = append([]func() error{closeMetrics}, s.closers...)
	}

	s.Run = run.New(cfg, log, rec)
	s.Run.Log.Info("run started", zap.String("job", job), zap.String("input", cfg.Input.Dir))
	return s, nil
}

// Close flushes metrics and closes the log file.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initMetrics returns a recorder for the configured backend. A backend that
// fails to start is logged and replaced by the no-op recorder.
func initMetrics(ctx context.Context, mc config.MetricsConfig, job string, log *zap.Logger) (*metrics.Recorder, func() error) {
	switch strings.ToLower(strings.TrimSpace(mc.Backend)) {
	case "datadog":
		tags := datadog.ParseTagsCSV(mc.Tags)
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       tags,
			FlushEvery: mc.FlushEvery,
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable, using nop", zap.Error(err))
			return metrics.NewRecorder(nil), nil
		}
		log.Info("metrics enabled", zap.String("backend", "datadog"), zap.String("job", job), zap.Strings("tags", tags))
		return metrics.NewRecorder(b), b.Close

	case "", "none":
		return metrics.NewRecorder(nil), nil

	default:
		log.Warn("metrics: unknown backend, metrics disabled", zap.String("backend", mc.Backend))
		return metrics.NewRecorder(nil), nil
	}
}
