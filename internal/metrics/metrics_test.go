package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type call struct {
	kind   string
	name   string
	value  float64
	labels Labels
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"counter", name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"histogram", name, value, labels})
}

func (f *fakeBackend) Flush() error { return f.err }

func TestRecorder_File(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{}
	r := NewRecorder(fb)
	r.File("classify", "ok", 1500*time.Millisecond)

	if len(fb.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(fb.calls))
	}
	c, h := fb.calls[0], fb.calls[1]
	if c.name != FilesTotal || c.value != 1 || c.labels["stage"] != "classify" || c.labels["status"] != "ok" {
		t.Fatalf("counter call = %+v", c)
	}
	if h.name != StageDuration || h.value != 1.5 {
		t.Fatalf("histogram call = %+v", h)
	}
}

func TestRecorder_RowsIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{}
	r := NewRecorder(fb)
	r.Rows("written", 0)
	r.Rows("written", -3)
	r.Rows("written", 7)
	r.Batch()

	if len(fb.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(fb.calls))
	}
	if fb.calls[0].name != RowsTotal || fb.calls[0].value != 7 || fb.calls[0].labels["kind"] != "written" {
		t.Fatalf("rows call = %+v", fb.calls[0])
	}
	if fb.calls[1].name != BatchesTotal {
		t.Fatalf("batch call = %+v", fb.calls[1])
	}
}

func TestRecorder_NilIsNop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.File("upload", "error", time.Second)
	r.Rows("read", 1)
	r.Batch()
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush() = %v, want nil", err)
	}

	if err := NewRecorder(nil).Flush(); err != nil {
		t.Fatalf("NewRecorder(nil).Flush() = %v, want nil", err)
	}
}

func TestRecorder_FlushPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	if err := NewRecorder(&fakeBackend{err: boom}).Flush(); !errors.Is(err, boom) {
		t.Fatalf("Flush() = %v, want %v", err, boom)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	if got := Status(nil); got != "ok" {
		t.Fatalf("Status(nil) = %q, want ok", got)
	}
	if got := Status(errors.New("x")); got != "error" {
		t.Fatalf("Status(err) = %q, want error", got)
	}
}
