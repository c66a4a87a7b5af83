// Package feeder supplies data records that Feed steps merge into a session.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Record represents a single row of data with named fields.
type Record map[string]string

// Feeder provides per-user data from a dataset.
// Implementations must be safe for concurrent use.
type Feeder interface {
	// Next returns the next record according to the feeder's strategy.
	Next(ctx context.Context) (Record, error)

	// Close releases any resources held by the feeder.
	Close() error

	// Len returns the total number of records in the dataset.
	Len() int
}

// ErrExhausted is returned when a queue feeder has no more records.
var ErrExhausted = errors.New("feeder exhausted: no more records available")

// Strategy selects how records are handed out.
type Strategy string

const (
	// StrategyQueue hands out each record once, then returns ErrExhausted.
	StrategyQueue Strategy = "queue"
	// StrategyCircular restarts from the first record after the last one.
	StrategyCircular Strategy = "circular"
	// StrategyRandom picks a uniformly random record every time.
	StrategyRandom Strategy = "random"
)

// ParseStrategy maps a configuration value to a Strategy. Empty means queue.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyQueue:
		return StrategyQueue, nil
	case StrategyCircular, StrategyRandom:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown feeder strategy %q (want queue, circular or random)", s)
	}
}

// memoryFeeder serves an in-memory record set.
type memoryFeeder struct {
	records  []Record
	strategy Strategy

	mu    sync.Mutex
	index int
	rng   *rand.Rand
}

// NewInline returns a feeder over records held in memory.
func NewInline(records []Record, strategy Strategy) (Feeder, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("feeder requires at least one record")
	}
	return newMemoryFeeder(records, strategy)
}

func newMemoryFeeder(records []Record, strategy Strategy) (*memoryFeeder, error) {
	strategy, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	f := &memoryFeeder{records: records, strategy: strategy}
	if strategy == StrategyRandom {
		f.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return f, nil
}

// Next returns the next record.
func (f *memoryFeeder) Next(ctx context.Context) (Record, error) {
	// Check context cancellation first
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.strategy {
	case StrategyRandom:
		return f.records[f.rng.IntN(len(f.records))], nil
	case StrategyCircular:
		record := f.records[f.index]
		f.index = (f.index + 1) % len(f.records)
		return record, nil
	default:
		if f.index >= len(f.records) {
			return nil, ErrExhausted
		}
		record := f.records[f.index]
		f.index++
		return record, nil
	}
}

// Close releases resources. For in-memory feeders, this is a no-op.
func (f *memoryFeeder) Close() error {
	return nil
}

// Len returns the total number of records in the dataset.
func (f *memoryFeeder) Len() int {
	return len(f.records)
}
