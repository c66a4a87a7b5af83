// Package metrics aggregates request outcomes produced by virtual users.
//
// # Collector
//
// A [Collector] is the single sink shared by every virtual user of a run:
//
//	collector := metrics.NewCollector(clock)
//	collector.Record(metrics.Outcome{
//		Scenario:   "Health Check",
//		Step:       "Get Rooms",
//		Start:      start,
//		Duration:   latency,
//		Success:    true,
//		StatusCode: 200,
//	})
//	summary := collector.Snapshot()
//
// Record is safe for concurrent use. Outcomes are spread round-robin over
// 32 mutex-guarded shards so writers rarely contend. Snapshot locks every
// shard in a fixed order before reading any of them, so the returned
// [Summary] reflects exactly the outcomes recorded before the call.
//
// # Percentiles
//
// Summary percentiles use the nearest-rank method over exact millisecond
// durations: the p-th percentile of N sorted samples is the sample at 1-based
// rank ceil(p/100 * N). Assertions are evaluated against these values.
//
// For cheap periodic reads (progress output, Prometheus scrapes) each shard
// also feeds an HDR histogram; see [Collector.Live]. Live percentiles are
// approximate and never used for the run verdict.
package metrics
