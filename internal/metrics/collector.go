package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/jonboulle/clockwork"
)

const numShards = 32

// Collector records outcomes in a thread-safe manner.
type Collector struct {
	shards [numShards]*shard
	next   atomic.Uint64

	clock clockwork.Clock
	start atomic.Int64

	usersStarted  atomic.Int64
	usersFinished atomic.Int64
}

type shard struct {
	mu     sync.Mutex
	bucket *bucket
}

// bucket is the per-shard accumulation. It is only touched under its shard lock.
type bucket struct {
	steps  map[string]*stepData
	errors map[string]int
	hist   *hdrhistogram.Histogram
	ok     int64
	ko     int64
}

type stepData struct {
	durations []int64
	ok        int64
	ko        int64
	statuses  map[string]int
}

func newBucket() *bucket {
	return &bucket{
		steps:  make(map[string]*stepData),
		errors: make(map[string]int),
		// Track latencies from 1µs up to 60s with 3 significant figures.
		hist: hdrhistogram.New(1, 60_000_000, 3),
	}
}

func (b *bucket) record(o Outcome) {
	sd, ok := b.steps[o.Step]
	if !ok {
		sd = &stepData{statuses: make(map[string]int)}
		b.steps[o.Step] = sd
	}
	sd.durations = append(sd.durations, o.Millis())
	sd.statuses[o.Status()]++
	if o.Success {
		sd.ok++
		b.ok++
	} else {
		sd.ko++
		b.ko++
		if o.Error != "" {
			b.errors[o.Error]++
		}
	}

	us := o.Duration.Microseconds()
	if us < b.hist.LowestTrackableValue() {
		us = b.hist.LowestTrackableValue()
	}
	if us > b.hist.HighestTrackableValue() {
		us = b.hist.HighestTrackableValue()
	}
	_ = b.hist.RecordValue(us)
}

// NewCollector returns an empty collector. A nil clock uses the real clock.
func NewCollector(clock clockwork.Clock) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Collector{clock: clock}
	for i := range c.shards {
		c.shards[i] = &shard{bucket: newBucket()}
	}
	c.start.Store(clock.Now().UnixNano())
	return c
}

// Start marks the beginning of the run for throughput calculations.
func (c *Collector) Start() {
	c.start.Store(c.clock.Now().UnixNano())
}

// Elapsed returns the time since Start.
func (c *Collector) Elapsed() time.Duration {
	return c.clock.Since(time.Unix(0, c.start.Load()))
}

// Record adds one outcome. Safe for concurrent use.
func (c *Collector) Record(o Outcome) {
	s := c.shards[c.next.Add(1)%numShards]
	s.mu.Lock()
	s.bucket.record(o)
	s.mu.Unlock()
}

// UserStarted counts a virtual user that began its scenario.
func (c *Collector) UserStarted() { c.usersStarted.Add(1) }

// UserFinished counts a virtual user that left its scenario.
func (c *Collector) UserFinished() { c.usersFinished.Add(1) }

// Users returns how many users started and how many are still active.
func (c *Collector) Users() (started, active int64) {
	started = c.usersStarted.Load()
	return started, started - c.usersFinished.Load()
}

// Snapshot returns a consistent summary of every outcome recorded so far.
func (c *Collector) Snapshot() Summary {
	return c.snapshot(c.Elapsed())
}

func (c *Collector) snapshot(elapsed time.Duration) Summary {
	merged := &merged{
		steps:  make(map[string]*stepData),
		errors: make(map[string]int),
	}

	for _, s := range c.shards {
		s.mu.Lock()
	}
	for _, s := range c.shards {
		merged.add(s.bucket)
	}
	for i := len(c.shards) - 1; i >= 0; i-- {
		c.shards[i].mu.Unlock()
	}

	started, active := c.Users()
	summary := merged.summarize(elapsed)
	summary.UsersStarted = started
	summary.UsersActive = active
	return summary
}

// merged holds copies of shard data taken while all shards are locked.
type merged struct {
	steps  map[string]*stepData
	errors map[string]int
}

func (m *merged) add(b *bucket) {
	for name, sd := range b.steps {
		dst, ok := m.steps[name]
		if !ok {
			dst = &stepData{statuses: make(map[string]int)}
			m.steps[name] = dst
		}
		dst.durations = append(dst.durations, sd.durations...)
		dst.ok += sd.ok
		dst.ko += sd.ko
		for code, n := range sd.statuses {
			dst.statuses[code] += n
		}
	}
	for k, v := range b.errors {
		m.errors[k] += v
	}
}

func (m *merged) summarize(elapsed time.Duration) Summary {
	summary := Summary{
		Elapsed:       elapsed,
		ElapsedMs:     float64(elapsed) / float64(time.Millisecond),
		Steps:         make(map[string]Stats, len(m.steps)),
		StatusBuckets: make(map[string]map[string]int, len(m.steps)),
	}

	var all []int64
	var ok, ko int64
	for name, sd := range m.steps {
		summary.Steps[name] = computeStats(sd.durations, sd.ok, sd.ko, elapsed)
		summary.StatusBuckets[name] = sd.statuses
		all = append(all, sd.durations...)
		ok += sd.ok
		ko += sd.ko
	}
	summary.Global = computeStats(all, ok, ko, elapsed)
	if len(m.errors) > 0 {
		summary.Errors = m.errors
	}
	return summary
}
