// Package group partitions files into schema groups and combines each
// group's members into one artifact.
package group

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schemagroup/internal/metrics"
	"schemagroup/internal/probe"
	"schemagroup/internal/run"
)

// progressEvery is how often (in files) classification logs progress.
const progressEvery = 10

// Group is one equivalence class of files sharing a fingerprint hash.
type Group struct {
	Hash string
	// Schema is the first member's schema. Later members are trusted to
	// match on hash equality alone.
	Schema probe.FileSchema
	// Files are member paths in discovery order.
	Files []string
}

// Result is the outcome of one classification pass.
type Result struct {
	// Groups are in order of first appearance.
	Groups []*Group
	byHash map[string]*Group
	// Scanned counts files attempted, including failures.
	Scanned int
}

// Lookup returns the group for hash.
func (r *Result) Lookup(hash string) (*Group, bool) {
	g, ok := r.byHash[hash]
	return g, ok
}

// Files counts files placed in some group.
func (r *Result) Files() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Files)
	}
	return n
}

func newResult() *Result {
	return &Result{byHash: make(map[string]*Group)}
}

func (r *Result) add(fs probe.FileSchema) {
	g, ok := r.byHash[fs.Hash]
	if !ok {
		g = &Group{Hash: fs.Hash, Schema: fs}
		r.byHash[fs.Hash] = g
		r.Groups = append(r.Groups, g)
	}
	g.Files = append(g.Files, fs.Path)
}

// Options control classification.
type Options struct {
	Probe probe.Options
	// Workers > 1 probes files concurrently. Results are merged in discovery
	// order afterwards, so the output is identical to a sequential run.
	Workers int
}

// Classify probes every path and groups the readable ones by hash. Files that
// fail are recorded on rc and left out of every group. Only ctx cancellation
// returns an error.
func Classify(ctx context.Context, rc *run.Context, paths []string, opt Options) (*Result, error) {
	if opt.Workers > 1 {
		return classifyParallel(ctx, rc, paths, opt)
	}

	res := newResult()
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i > 0 && i%progressEvery == 0 {
			logProgress(rc, i, len(paths), res)
		}
		fs, err := probeOne(rc, p, opt.Probe)
		res.Scanned++
		if err != nil {
			rc.Fail(p, err)
			continue
		}
		res.add(fs)
	}

	logDone(rc, res)
	return res, nil
}

type outcome struct {
	fs  probe.FileSchema
	err error
}

func classifyParallel(ctx context.Context, rc *run.Context, paths []string, opt Options) (*Result, error) {
	outcomes := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fs, err := probeOne(rc, p, opt.Probe)
			outcomes[i] = outcome{fs: fs, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return newResult(), err
	}

	res := newResult()
	for i, o := range outcomes {
		res.Scanned++
		if o.err != nil {
			rc.Fail(paths[i], o.err)
			continue
		}
		res.add(o.fs)
	}

	logDone(rc, res)
	return res, nil
}

func probeOne(rc *run.Context, path string, opt probe.Options) (probe.FileSchema, error) {
	start := time.Now()
	fs, err := probe.File(path, opt)
	rc.Metrics.File("classify", metrics.Status(err), time.Since(start))
	if err == nil {
		rc.Metrics.Rows("sampled", fs.SampleRows)
		rc.Metrics.Rows("skipped", fs.SkippedRows)
		rc.Log.Debug("classified",
			zap.String("stage", "classify"),
			zap.String("file", path),
			zap.String("hash", fs.Hash),
			zap.Int("columns", len(fs.Columns)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return fs, err
}

func logProgress(rc *run.Context, done, total int, res *Result) {
	rc.Log.Info("progress",
		zap.String("stage", "classify"),
		zap.Int("processed", done),
		zap.Int("total", total),
		zap.Int("schemas", len(res.Groups)),
	)
}

func logDone(rc *run.Context, res *Result) {
	rc.Log.Info("classification complete",
		zap.String("stage", "classify"),
		zap.Int("scanned", res.Scanned),
		zap.Int("schemas", len(res.Groups)),
		zap.Int("failed", len(rc.Failures())),
	)
}
