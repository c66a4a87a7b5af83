package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/surgefire/internal/metrics"
)

// syncBuffer guards a bytes.Buffer shared with the reporter goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatProgress(t *testing.T) {
	line := FormatProgress(metrics.LiveStats{
		Total:          12,
		Successes:      10,
		Failures:       2,
		P95:            123456 * time.Microsecond,
		RequestsPerSec: 4,
		UsersStarted:   5,
		UsersActive:    3,
		Elapsed:        3 * time.Second,
	})
	want := "[3s] Users: 3 active / 5 started | Requests: 12 (OK=10 KO=2) | RPS: 4.0 | P95: 123ms"
	if line != want {
		t.Errorf("FormatProgress() = %q, want %q", line, want)
	}
}

func TestProgressReporterWritesLines(t *testing.T) {
	collector := metrics.NewCollector(nil)
	collector.Start()
	for i := 0; i < 5; i++ {
		collector.Record(metrics.Outcome{Step: "Get Rooms", Duration: 30 * time.Millisecond, Success: true, StatusCode: 200})
	}

	var buf syncBuffer
	reporter := NewProgressReporter(collector, 20*time.Millisecond, &buf)
	reporter.Start()
	reporter.Start()
	time.Sleep(100 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	out := buf.String()
	if !strings.Contains(out, "Requests: 5 (OK=5 KO=0)") {
		t.Errorf("progress output = %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Stop() should end the progress line")
	}
}

func TestProgressReporterStopWithoutStart(t *testing.T) {
	var buf syncBuffer
	reporter := NewProgressReporter(metrics.NewCollector(nil), 0, &buf)
	reporter.Stop()
	if buf.String() != "" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
