// Package metrics is the backend-agnostic metrics surface used by the
// probe, group and upload tools.
//
// Components never talk to a vendor SDK. They record through a *Recorder,
// which forwards to whatever Backend the command wired in (Nop by default).
package metrics

import "time"

// Metric names.
const (
	FilesTotal    = "schemagroup_files_total"
	RowsTotal     = "schemagroup_rows_total"
	BatchesTotal  = "schemagroup_batches_total"
	StageDuration = "schemagroup_stage_duration_seconds"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives recorded values. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

var _ Backend = Nop{}

// Recorder wraps a Backend with the typed calls the tools make.
// The zero value and a nil *Recorder record nothing.
type Recorder struct {
	b Backend
}

// NewRecorder returns a Recorder for b. A nil b means Nop.
func NewRecorder(b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{b: b}
}

func (r *Recorder) backend() Backend {
	if r == nil || r.b == nil {
		return Nop{}
	}
	return r.b
}

// File records one file finishing a stage.
func (r *Recorder) File(stage, status string, d time.Duration) {
	l := Labels{"stage": stage, "status": status}
	r.backend().IncCounter(FilesTotal, 1, l)
	r.backend().ObserveHistogram(StageDuration, d.Seconds(), l)
}

// Rows records n rows of the given kind (read, written, nulled, skipped).
func (r *Recorder) Rows(kind string, n int) {
	if n <= 0 {
		return
	}
	r.backend().IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}

// Batch records one insert batch.
func (r *Recorder) Batch() {
	r.backend().IncCounter(BatchesTotal, 1, nil)
}

// Flush flushes the backend.
func (r *Recorder) Flush() error {
	return r.backend().Flush()
}

// Status maps an error to the status label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
