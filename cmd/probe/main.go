// Command probe scans a folder of delimited files and writes a SQL Server
// CREATE TABLE script for them.
//
// Each file is sampled (delimiter from the first lines, types from the first
// rows), printed as a short per-table summary on stdout and emitted as one
// CREATE TABLE statement plus a commented BULK INSERT template in the output
// script.
//
// Configuration comes from an optional YAML file (-config), then environment
// variables, then flags. Per-file problems are logged to schema_detection.log
// and listed at the end; they never stop the scan.
//
// Exit codes: 0 on success (including runs where some files failed), 1 when
// the script cannot be written, 2 on usage or configuration errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"schemagroup/internal/cli"
	"schemagroup/internal/config"
	"schemagroup/internal/ddl"
	"schemagroup/internal/metrics"
	"schemagroup/internal/probe"
	"schemagroup/internal/textio"
)

const logFile = "schema_detection.log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	var (
		common cli.Common
		out    string
		rows   int
	)
	common.Register(fs)
	fs.StringVar(&out, "out", "", "DDL script path (default table_ddl.sql)")
	fs.IntVar(&rows, "rows", 0, "rows sampled per file for type inference (default 100)")
	if code, ok := cli.Parse(fs, args, stderr); !ok {
		return code
	}

	cfg, err := common.Load(fs, func(cfg *config.Config, name string) {
		switch name {
		case "out":
			cfg.DDL.OutputFile = out
		case "rows":
			cfg.Sampling.TypeRows = rows
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return cli.ExitUsage
	}
	if err := cfg.Validate(true); err != nil {
		fmt.Fprintf(stderr, "invalid configuration:\n%v\n", err)
		return cli.ExitUsage
	}

	sess, err := cli.Start(ctx, cfg, "schema_detection", logFile, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "start: %v\n", err)
		return cli.ExitFailure
	}
	defer func() {
		if err := sess.Close(); err != nil {
			fmt.Fprintf(stderr, "close: %v\n", err)
		}
	}()
	rc := sess.Run

	paths, err := textio.Discover(cfg.Input.Dir, cfg.Input.Extensions, !cfg.Input.Flat)
	if err != nil {
		rc.Log.Error("discover failed", zap.Error(err))
		return cli.ExitFailure
	}
	if len(paths) == 0 {
		fmt.Fprintf(stdout, "No delimited files found in %s\n", cfg.Input.Dir)
		return cli.ExitOK
	}
	rc.Log.Info("files found", zap.Int("count", len(paths)))

	opt := probe.Options{
		DetectLines: cfg.Sampling.DetectLines,
		SampleRows:  cfg.Sampling.TypeRows,
		Encoding:    cfg.Input.Encoding,
		NullValues:  cfg.Input.NullValues,
	}
	var tables []probe.FileSchema
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			rc.Log.Warn("interrupted", zap.Int("processed", i))
			return cli.ExitFailure
		}
		start := time.Now()
		t, err := probe.File(p, opt)
		rc.Metrics.File("detect", metrics.Status(err), time.Since(start))
		if err != nil {
			rc.Fail(p, err)
			continue
		}
		rc.Log.Info("schema detected",
			zap.String("file", p),
			zap.String("table", t.Table),
			zap.String("delimiter", t.Delimiter.Name()),
			zap.Int("columns", len(t.Columns)),
		)
		tables = append(tables, t)
	}

	if err := ddl.WriteSummary(stdout, tables); err != nil {
		rc.Log.Error("write summary", zap.Error(err))
		return cli.ExitFailure
	}

	script := ddl.Script{SourceDir: cfg.Input.Dir, GeneratedAt: time.Now(), Tables: tables}
	if err := writeScript(cfg.DDL.OutputFile, script); err != nil {
		rc.Log.Error("write ddl", zap.Error(err))
		return cli.ExitFailure
	}

	fmt.Fprintf(stdout, "\nDDL statements written to: %s\n", cfg.DDL.OutputFile)
	fmt.Fprintf(stdout, "Tables: %d of %d files\n", len(tables), len(paths))
	if fails := rc.Failures(); len(fails) > 0 {
		fmt.Fprintf(stdout, "\nFailed files:\n")
		for _, f := range fails {
			fmt.Fprintf(stdout, "  - %s: %s\n", filepath.Base(f.Path), f.Reason)
		}
	}
	if sess.LogPath != "" {
		fmt.Fprintf(stdout, "Check '%s' for processing details\n", sess.LogPath)
	}
	rc.Log.Info("run complete", zap.Int("tables", len(tables)), zap.Duration("elapsed", rc.Elapsed()))
	return cli.ExitOK
}

func writeScript(path string, s ddl.Script) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
