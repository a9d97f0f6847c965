// Command group partitions a folder of delimited files by schema and combines
// each group's files into one artifact.
//
// Files are fingerprinted by their sorted normalized column names and
// delimiter. Every group with at least -min-files members is concatenated
// (csv, parquet or excel) into the output folder together with a metadata
// manifest. A summary report lists every group, including those too small to
// combine, and every file that could not be read.
//
// Exit codes: 0 on success (including runs where some files failed), 1 when
// the run cannot complete, 2 on usage or configuration errors.
package main

import (
	"context"
	"errors"
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
	"schemagroup/internal/group"
	"schemagroup/internal/probe"
	"schemagroup/internal/report"
	"schemagroup/internal/schema"
	"schemagroup/internal/textio"
)

const logFile = "schema_grouping.log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type groupFlags struct {
	out      string
	format   string
	minFiles int
	maxFiles int
	workers  int
	rows     int
	html     bool
}

func (g *groupFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.out, "out", "", "output folder for combined files (default combined_files)")
	fs.StringVar(&g.format, "format", "", "combined file format: csv|parquet|excel")
	fs.IntVar(&g.minFiles, "min-files", 0, "minimum files a group needs to be combined (default 2)")
	fs.IntVar(&g.maxFiles, "max-files", 0, "maximum files combined per group, 0 for all")
	fs.IntVar(&g.workers, "workers", 0, "files classified in parallel (default 1)")
	fs.IntVar(&g.rows, "rows", 0, "rows sampled per file for fingerprinting (default 20)")
	fs.BoolVar(&g.html, "html", false, "also write an HTML summary report")
}

func (g *groupFlags) apply(cfg *config.Config, name string) {
	switch name {
	case "out":
		cfg.Group.OutputDir = g.out
	case "format":
		cfg.Group.OutputFormat = g.format
	case "min-files":
		cfg.Group.MinFiles = g.minFiles
	case "max-files":
		cfg.Group.MaxFiles = g.maxFiles
	case "workers":
		cfg.Group.Workers = g.workers
	case "rows":
		cfg.Sampling.GroupRows = g.rows
	case "html":
		cfg.Group.HTMLReport = g.html
	}
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("group", flag.ContinueOnError)
	var (
		common cli.Common
		gf     groupFlags
	)
	common.Register(fs)
	gf.register(fs)
	if code, ok := cli.Parse(fs, args, stderr); !ok {
		return code
	}

	cfg, err := common.Load(fs, gf.apply)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return cli.ExitUsage
	}
	if err := cfg.Validate(true); err != nil {
		fmt.Fprintf(stderr, "invalid configuration:\n%v\n", err)
		return cli.ExitUsage
	}

	if cfg.Log.Dir == "" {
		cfg.Log.Dir = cfg.Group.OutputDir
	}
	sess, err := cli.Start(ctx, cfg, "schema_grouping", logFile, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "start: %v\n", err)
		return cli.ExitFailure
	}
	defer func() {
		if err := sess.Close(); err != nil {
			fmt.Fprintf(stderr, "close: %v\n", err)
		}
	}()

	if err := run(ctx, sess, cfg, stdout); err != nil {
		sess.Run.Log.Error("run failed", zap.Error(err))
		fmt.Fprintf(stderr, "group: %v\n", err)
		return cli.ExitFailure
	}
	return cli.ExitOK
}

func run(ctx context.Context, sess *cli.Session, cfg *config.Config, stdout io.Writer) error {
	rc := sess.Run
	gc := cfg.Group

	paths, err := textio.Discover(cfg.Input.Dir, cfg.Input.Extensions, !cfg.Input.Flat)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintf(stdout, "No delimited files found in %s\n", cfg.Input.Dir)
		return nil
	}
	rc.Log.Info("files found", zap.Int("count", len(paths)))

	res, err := group.Classify(ctx, rc, paths, group.Options{
		Probe: probe.Options{
			DetectLines: cfg.Sampling.DetectLines,
			SampleRows:  cfg.Sampling.GroupRows,
			Encoding:    cfg.Input.Encoding,
			NullValues:  cfg.Input.NullValues,
		},
		Workers: gc.Workers,
	})
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	copt := group.CombineOptions{
		MinFiles:   gc.MinFiles,
		MaxFiles:   gc.MaxFiles,
		Format:     gc.OutputFormat,
		OutputDir:  gc.OutputDir,
		Encoding:   cfg.Input.Encoding,
		NullValues: cfg.Input.NullValues,
	}

	var arts []*group.Artifact
	byHash := make(map[string]*group.Artifact)
	for _, g := range res.Groups {
		if !group.Eligible(g, gc.MinFiles) {
			rc.Log.Info("group below minimum size, not combined",
				zap.String("hash", schema.ShortHash(g.Hash, 8)),
				zap.Int("files", len(g.Files)),
			)
			continue
		}
		art, err := group.Combine(ctx, rc, g, copt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, schema.ErrUnsupportedOutputFormat) {
				return err
			}
			rc.Log.Error("combine failed", zap.String("hash", schema.ShortHash(g.Hash, 8)), zap.Error(err))
			continue
		}
		if _, err := report.WriteMetadata(art, g, time.Now()); err != nil {
			rc.Log.Warn("metadata not written", zap.String("output", art.Path), zap.Error(err))
		}
		arts = append(arts, art)
		byHash[g.Hash] = art
	}

	sum := report.Summary{
		RunID:       rc.ID,
		GeneratedAt: time.Now(),
		SourceDir:   cfg.Input.Dir,
		OutputDir:   gc.OutputDir,
		Groups:      res.Groups,
		Artifacts:   byHash,
		Failures:    rc.Failures(),
	}
	if err := os.MkdirAll(gc.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	sumPath := filepath.Join(gc.OutputDir, report.SummaryFile)
	if err := writeFile(sumPath, func(w io.Writer) error {
		_, err := sum.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("summary report: %w", err)
	}
	if gc.HTMLReport {
		if err := writeFile(filepath.Join(gc.OutputDir, report.SummaryHTMLFile), sum.WriteHTML); err != nil {
			return fmt.Errorf("html report: %w", err)
		}
	}

	if err := report.WriteCombined(stdout, arts); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Check '%s' for detailed results\n", sumPath)
	if sess.LogPath != "" {
		fmt.Fprintf(stdout, "Check '%s' for processing details\n", sess.LogPath)
	}

	rc.Log.Info("run complete",
		zap.Int("schemas", len(res.Groups)),
		zap.Int("combined", len(arts)),
		zap.Int("failed", len(sum.Failures)),
		zap.Duration("elapsed", rc.Elapsed()),
	)
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
