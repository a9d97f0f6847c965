// Command upload loads every delimited file in a folder into its own database
// table.
//
// Each file becomes a table named after its stem, dropped and recreated with
// an identity key, filled in batches and verified by row count. The backend
// (mssql, postgres or sqlite) and its connection come from the config file,
// SCHEMAGROUP_* environment variables or flags; -dsn wins over the discrete
// connection settings. Credentials never reach the log or the report.
//
// Exit codes: 0 on success (including runs where some files failed), 1 when
// the database is unreachable or the report cannot be written, 2 on usage or
// configuration errors.
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
	"schemagroup/internal/logging"
	"schemagroup/internal/report"
	"schemagroup/internal/storage"
	_ "schemagroup/internal/storage/all"
	"schemagroup/internal/textio"
	"schemagroup/internal/upload"
)

const logFile = "csv_upload.log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type uploadFlags struct {
	backend   string
	dsn       string
	host      string
	port      int
	database  string
	user      string
	trusted   bool
	chunkSize int
	maxFiles  int
	noCleanup bool
	reportDir string
}

func (u *uploadFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&u.backend, "backend", "", "database backend: mssql|postgres|sqlite (default mssql)")
	fs.StringVar(&u.dsn, "dsn", "", "full connection string; overrides host, port, database and user")
	fs.StringVar(&u.host, "host", "", "database host")
	fs.IntVar(&u.port, "port", 0, "database port (backend default when 0)")
	fs.StringVar(&u.database, "database", "", "database name, or file path for sqlite")
	fs.StringVar(&u.user, "user", "", "database user; the password comes from SCHEMAGROUP_DB_PASSWORD")
	fs.BoolVar(&u.trusted, "trusted", false, "use integrated authentication (mssql)")
	fs.IntVar(&u.chunkSize, "chunk-size", 0, "rows per insert batch (default 10000)")
	fs.IntVar(&u.maxFiles, "max-files", 0, "maximum files to upload, 0 for all")
	fs.BoolVar(&u.noCleanup, "no-numeric-cleanup", false, "keep stray text in mostly numeric columns")
	fs.StringVar(&u.reportDir, "report-dir", "", "folder for csv_upload_report.txt (default .)")
}

func (u *uploadFlags) apply(cfg *config.Config, name string) {
	uc := &cfg.Upload
	switch name {
	case "backend":
		uc.Backend = u.backend
	case "dsn":
		uc.DSN = u.dsn
	case "host":
		uc.Host = u.host
	case "port":
		uc.Port = u.port
	case "database":
		uc.Database = u.database
	case "user":
		uc.User = u.user
	case "trusted":
		uc.TrustedConnection = u.trusted
	case "chunk-size":
		uc.ChunkSize = u.chunkSize
	case "max-files":
		uc.MaxFiles = u.maxFiles
	case "no-numeric-cleanup":
		uc.SkipNumericCleanup = u.noCleanup
	case "report-dir":
		uc.ReportDir = u.reportDir
	}
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var (
		common cli.Common
		uf     uploadFlags
	)
	common.Register(fs)
	uf.register(fs)
	if code, ok := cli.Parse(fs, args, stderr); !ok {
		return code
	}

	cfg, err := common.Load(fs, uf.apply)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return cli.ExitUsage
	}
	if err := cfg.Validate(true); err != nil {
		fmt.Fprintf(stderr, "invalid configuration:\n%v\n", err)
		return cli.ExitUsage
	}
	dsn, target, err := cli.DSN(cfg.Upload)
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration:\n%v\n", err)
		return cli.ExitUsage
	}

	sess, err := cli.Start(ctx, cfg, "csv_upload", logFile, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "start: %v\n", err)
		return cli.ExitFailure
	}
	defer func() {
		if err := sess.Close(); err != nil {
			fmt.Fprintf(stderr, "close: %v\n", err)
		}
	}()

	if err := run(ctx, sess, cfg, dsn, target, stdout); err != nil {
		sess.Run.Log.Error("run failed", zap.String("error", logging.RedactError(err)))
		fmt.Fprintf(stderr, "upload: %s\n", logging.RedactError(err))
		return cli.ExitFailure
	}
	return cli.ExitOK
}

func run(ctx context.Context, sess *cli.Session, cfg *config.Config, dsn, target string, stdout io.Writer) error {
	rc := sess.Run

	paths, err := textio.Discover(cfg.Input.Dir, cfg.Input.Extensions, !cfg.Input.Flat)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintf(stdout, "No delimited files found in %s\n", cfg.Input.Dir)
		return nil
	}
	rc.Log.Info("files found", zap.Int("count", len(paths)))

	rc.Log.Info("connecting", zap.String("backend", cfg.Upload.Backend), zap.String("dsn", logging.RedactDSN(dsn)))
	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Upload.Backend, DSN: dsn})
	if err != nil {
		return fmt.Errorf("connect %s: %w", target, err)
	}
	defer repo.Close()

	up := upload.New(rc, repo, upload.Options{
		ChunkSize:      cfg.Upload.ChunkSize,
		MaxFiles:       cfg.Upload.MaxFiles,
		Encoding:       cfg.Input.Encoding,
		NullValues:     cfg.Input.NullValues,
		DetectLines:    cfg.Sampling.DetectLines,
		NumericCleanup: !cfg.Upload.SkipNumericCleanup,
	})
	results, attempted, runErr := up.Run(ctx, paths)
	for _, r := range results {
		fmt.Fprintf(stdout, "Uploaded %s -> %s\n", filepath.Base(r.Path), r.Describe())
	}

	rep := report.Upload{
		RunID:       rc.ID,
		GeneratedAt: time.Now(),
		Target:      target,
		Total:       attempted,
		Results:     results,
		Failures:    rc.Failures(),
	}
	if err := os.MkdirAll(cfg.Upload.ReportDir, 0o755); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}
	repPath := filepath.Join(cfg.Upload.ReportDir, report.UploadFile)
	f, err := os.Create(repPath)
	if err != nil {
		return fmt.Errorf("upload report: %w", err)
	}
	if _, err := rep.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("upload report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("upload report: %w", err)
	}

	if err := rep.WriteConsole(stdout, repPath, sess.LogPath); err != nil {
		return err
	}
	rc.Log.Info("run complete",
		zap.Int("succeeded", len(results)),
		zap.Int("attempted", attempted),
		zap.Duration("elapsed", rc.Elapsed()),
	)
	return runErr
}
