package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LiveStats is an approximate, cheap view of the run used for progress
// output and metric exports.
type LiveStats struct {
	Total          int64
	Successes      int64
	Failures       int64
	P50            time.Duration
	P95            time.Duration
	P99            time.Duration
	Max            time.Duration
	RequestsPerSec float64
	UsersStarted   int64
	UsersActive    int64
	Elapsed        time.Duration
}

// Live merges the per-shard histograms. Unlike Snapshot it never copies raw
// samples and takes each shard lock only briefly.
func (c *Collector) Live() LiveStats {
	hist := hdrhistogram.New(1, 60_000_000, 3)
	var live LiveStats
	for _, s := range c.shards {
		s.mu.Lock()
		hist.Merge(s.bucket.hist)
		live.Successes += s.bucket.ok
		live.Failures += s.bucket.ko
		s.mu.Unlock()
	}
	live.Total = live.Successes + live.Failures
	live.Elapsed = c.Elapsed()
	live.UsersStarted, live.UsersActive = c.Users()
	if live.Elapsed > 0 {
		live.RequestsPerSec = float64(live.Total) / live.Elapsed.Seconds()
	}
	if hist.TotalCount() > 0 {
		live.P50 = time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond
		live.P95 = time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond
		live.P99 = time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond
		live.Max = time.Duration(hist.Max()) * time.Microsecond
	}
	return live
}
