// Package logging builds the zap loggers used by the command line tools and
// redacts secrets before they reach a log line.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where a run logs.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	// Empty means info.
	Level string

	// File, when set, receives every entry in addition to the console.
	// Parent directories are created.
	File string

	// Console is where human-readable entries go. Nil means os.Stderr.
	Console io.Writer
}

// New returns a logger that tees a console encoder and, when opt.File is
// set, the same entries to that file. The returned close func syncs and
// closes the file; it is never nil.
func New(opt Options) (*zap.Logger, func() error, error) {
	lvl := zapcore.InfoLevel
	if opt.Level != "" {
		if err := lvl.UnmarshalText([]byte(opt.Level)); err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", opt.Level, err)
		}
	}

	console := opt.Console
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), lvl),
	}

	closeFn := func() error { return nil }
	if opt.File != "" {
		if dir := filepath.Dir(opt.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("log dir: %w", err)
			}
		}
		f, err := os.OpenFile(opt.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), lvl))
		closeFn = func() error {
			_ = f.Sync()
			return f.Close()
		}
	}

	return zap.New(zapcore.NewTee(cores...)), closeFn, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
