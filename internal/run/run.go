// Package run holds the per-run state every tool threads through its
// components: identity, configuration, logger, metrics and the failures list.
package run

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"schemagroup/internal/config"
	"schemagroup/internal/logging"
	"schemagroup/internal/metrics"
	"schemagroup/internal/schema"
)

// Failure is one file that could not be processed.
type Failure struct {
	Path   string
	Kind   string
	Reason string
}

// Context is created at run start and discarded at run end.
// Fail and Failures are safe for concurrent use.
type Context struct {
	ID      string
	Started time.Time
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Recorder

	mu       sync.Mutex
	failures []Failure
}

// New returns a run context with a fresh ID. Nil arguments are replaced with
// defaults (config.Default, a no-op logger, a no-op recorder).
func New(cfg *config.Config, log *zap.Logger, rec *metrics.Recorder) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	if rec == nil {
		rec = metrics.NewRecorder(nil)
	}
	id := uuid.NewString()
	return &Context{
		ID:      id,
		Started: time.Now(),
		Config:  cfg,
		Log:     logging.OrNop(log).With(zap.String("run_id", id)),
		Metrics: rec,
	}
}

// Fail records a per-file failure and logs it. It never aborts the run.
func (c *Context) Fail(path string, err error) {
	f := Failure{Path: path, Kind: schema.KindOf(err), Reason: logging.RedactError(err)}

	c.mu.Lock()
	c.failures = append(c.failures, f)
	c.mu.Unlock()

	c.Log.Error("file failed",
		zap.String("file", path),
		zap.String("kind", f.Kind),
		zap.String("reason", f.Reason),
	)
}

// Failures returns a copy of the failures in the order they were recorded.
func (c *Context) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Failure(nil), c.failures...)
}

// Elapsed is the time since the run started.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.Started)
}
