package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/surgefire/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and ends the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, "\r"+FormatProgress(p.collector.Live()))
		case <-p.done:
			return
		}
	}
}

// FormatProgress renders one progress line.
func FormatProgress(live metrics.LiveStats) string {
	return fmt.Sprintf("[%s] Users: %d active / %d started | Requests: %d (OK=%d KO=%d) | RPS: %.1f | P95: %s",
		live.Elapsed.Round(time.Second),
		live.UsersActive, live.UsersStarted,
		live.Total, live.Successes, live.Failures,
		live.RequestsPerSec,
		live.P95.Round(time.Millisecond))
}
