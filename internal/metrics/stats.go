package metrics

import (
	"math"
	"sort"
	"time"
)

// Stats are aggregated figures over a set of outcomes. Latencies are in
// whole milliseconds, matching the resolution outcomes are compared at.
type Stats struct {
	Count          int64   `json:"count" yaml:"count"`
	Successes      int64   `json:"successes" yaml:"successes"`
	Failures       int64   `json:"failures" yaml:"failures"`
	SuccessPercent float64 `json:"success_percent" yaml:"success_percent"`
	FailurePercent float64 `json:"failure_percent" yaml:"failure_percent"`
	MinMs          int64   `json:"min_ms" yaml:"min_ms"`
	MaxMs          int64   `json:"max_ms" yaml:"max_ms"`
	MeanMs         float64 `json:"mean_ms" yaml:"mean_ms"`
	StdDevMs       float64 `json:"stddev_ms" yaml:"stddev_ms"`
	P50Ms          int64   `json:"p50_ms" yaml:"p50_ms"`
	P75Ms          int64   `json:"p75_ms" yaml:"p75_ms"`
	P90Ms          int64   `json:"p90_ms" yaml:"p90_ms"`
	P95Ms          int64   `json:"p95_ms" yaml:"p95_ms"`
	P99Ms          int64   `json:"p99_ms" yaml:"p99_ms"`
	RequestsPerSec float64 `json:"requests_per_sec" yaml:"requests_per_sec"`
}

// Summary is a point-in-time aggregate of a run.
type Summary struct {
	Global  Stats            `json:"global" yaml:"global"`
	Steps   map[string]Stats `json:"steps,omitempty" yaml:"steps,omitempty"`
	Elapsed time.Duration    `json:"-" yaml:"-"`

	ElapsedMs     float64                   `json:"elapsed_ms" yaml:"elapsed_ms"`
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty" yaml:"status_buckets,omitempty"`
	Errors        map[string]int            `json:"errors,omitempty" yaml:"errors,omitempty"`
	UsersStarted  int64                     `json:"users_started" yaml:"users_started"`
	UsersActive   int64                     `json:"users_active" yaml:"users_active"`
}

// Step returns the stats of one request name.
func (s Summary) Step(name string) (Stats, bool) {
	st, ok := s.Steps[name]
	return st, ok
}

func computeStats(durations []int64, ok, ko int64, elapsed time.Duration) Stats {
	total := ok + ko
	stats := Stats{Count: total, Successes: ok, Failures: ko}
	if total == 0 {
		return stats
	}
	stats.SuccessPercent = float64(ok) * 100 / float64(total)
	stats.FailurePercent = float64(ko) * 100 / float64(total)
	if elapsed > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(durations) == 0 {
		return stats
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var sum float64
	for _, d := range durations {
		sum += float64(d)
	}
	n := float64(len(durations))
	mean := sum / n
	var sq float64
	for _, d := range durations {
		diff := float64(d) - mean
		sq += diff * diff
	}

	stats.MinMs = durations[0]
	stats.MaxMs = durations[len(durations)-1]
	stats.MeanMs = mean
	stats.StdDevMs = math.Sqrt(sq / n)
	stats.P50Ms = Percentile(durations, 50)
	stats.P75Ms = Percentile(durations, 75)
	stats.P90Ms = Percentile(durations, 90)
	stats.P95Ms = Percentile(durations, 95)
	stats.P99Ms = Percentile(durations, 99)
	return stats
}

// Percentile returns the nearest-rank p-th percentile of sorted, the value at
// 1-based rank ceil(p/100 * len(sorted)). p is clamped to (0, 100]; an empty
// input yields 0.
func Percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(n) / 100))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
