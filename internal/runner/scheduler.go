package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// InjectionStats describe how one injection's users were started.
type InjectionStats struct {
	Scenario  string        `json:"scenario" yaml:"scenario"`
	Scheduled int           `json:"scheduled" yaml:"scheduled"`
	Users     int64         `json:"users" yaml:"users"`
	Overruns  int64         `json:"overruns" yaml:"overruns"`
	MaxLag    time.Duration `json:"-" yaml:"-"`
	MaxLagMs  float64       `json:"max_lag_ms" yaml:"max_lag_ms"`
}

// scheduler starts users at the offsets of each injection's profile. All
// injections share one start instant, so their users interleave by absolute
// time. Whether the n-th user starts depends only on elapsed clock time,
// never on how earlier users are progressing.
type scheduler struct {
	clock     clockwork.Clock
	tolerance time.Duration
	logger    *zap.Logger
	launch    func(id int64, inj Injection)

	nextID atomic.Int64
}

// run drives every injection until its profile is exhausted or ctx is done.
func (s *scheduler) run(ctx context.Context, start time.Time, injections []Injection) []InjectionStats {
	stats := make([]InjectionStats, len(injections))
	g, gctx := errgroup.WithContext(ctx)
	for i := range injections {
		g.Go(func() error {
			stats[i] = s.inject(gctx, start, injections[i])
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

func (s *scheduler) inject(ctx context.Context, start time.Time, inj Injection) (stats InjectionStats) {
	stats = InjectionStats{
		Scenario:  inj.Scenario.Name,
		Scheduled: inj.Profile.TotalUsers(),
	}
	logger := s.logger.With(zap.String("scenario", inj.Scenario.Name))
	warn := rate.Sometimes{First: 1, Interval: time.Second}
	defer func() {
		stats.MaxLagMs = float64(stats.MaxLag) / float64(time.Millisecond)
	}()

	schedule := inj.Profile.Schedule()
	for {
		offset, ok := schedule.Next()
		if !ok {
			return stats
		}
		due := start.Add(offset)
		if wait := due.Sub(s.clock.Now()); wait > 0 {
			timer := s.clock.NewTimer(wait)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				timer.Stop()
				return stats
			}
		}
		// The timer and the stop may fire together; a stopped run never spawns.
		if ctx.Err() != nil {
			return stats
		}

		lag := s.clock.Since(due)
		if lag > s.tolerance {
			stats.Overruns++
			if lag > stats.MaxLag {
				stats.MaxLag = lag
			}
			warn.Do(func() {
				logger.Warn("user started behind schedule",
					zap.Duration("scheduled_at", offset),
					zap.Duration("lag", lag),
					zap.Int64("overruns", stats.Overruns))
			})
		}
		stats.Users++
		s.launch(s.nextID.Add(1), inj)
	}
}
