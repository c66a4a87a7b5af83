package runner

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/surgefire/internal/assertion"
	"github.com/torosent/surgefire/internal/metrics"
)

// Report is the complete result of one run.
type Report struct {
	RunID       string              `json:"run_id" yaml:"run_id"`
	Started     time.Time           `json:"started" yaml:"started"`
	Duration    time.Duration       `json:"-" yaml:"-"`
	DurationMs  float64             `json:"duration_ms" yaml:"duration_ms"`
	Interrupted bool                `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	Overruns    int64               `json:"overruns" yaml:"overruns"`
	Injections  []InjectionStats    `json:"injections" yaml:"injections"`
	Summary     metrics.Summary     `json:"summary" yaml:"summary"`
	Result      assertion.RunResult `json:"result" yaml:"result"`
}

// Pass reports the run verdict.
func (r *Report) Pass() bool {
	return r != nil && r.Result.Pass
}

// Runner executes injections of virtual users against a target.
type Runner struct {
	opt Options
}

// New returns a Runner for opt.
func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Collector returns the collector outcomes are recorded into, for live
// progress and metric exports while Run is in progress.
func (r *Runner) Collector() *metrics.Collector {
	return r.opt.Collector
}

// Run starts users according to every injection profile and blocks until
// all of them have stopped. When MaxDuration expires no new users or steps
// start; requests already in flight get GracePeriod to complete, after which
// they are cancelled and their outcomes discarded. Cancelling ctx stops the
// run the same way. The verdict is computed once every user has stopped.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	opt := r.opt
	if len(opt.Injections) == 0 {
		return nil, errors.New("runner: at least one injection is required")
	}
	if opt.Transport == nil {
		return nil, errors.New("runner: transport is required")
	}
	for i, inj := range opt.Injections {
		if inj.Scenario == nil {
			return nil, fmt.Errorf("runner: injection %d: scenario is required", i)
		}
	}

	runID := ulid.Make()
	seed := opt.Seed
	if seed == 0 {
		seed = binary.BigEndian.Uint64(runID[8:])
	}
	logger := opt.Logger.With(zap.String("component", "runner"), zap.String("run_id", runID.String()))

	soft, softCancel := context.WithCancel(ctx)
	defer softCancel()
	hard, hardCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer hardCancel()

	started := opt.Clock.Now()
	opt.Collector.Start()
	logger.Info("run started",
		zap.Int("injections", len(opt.Injections)),
		zap.Duration("max_duration", opt.MaxDuration))

	done := make(chan struct{})
	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		r.watch(soft, softCancel, hardCancel, done, logger)
	}()

	state := &run{opt: opt, soft: soft, hard: hard}
	var users sync.WaitGroup
	sched := &scheduler{
		clock:     opt.Clock,
		tolerance: opt.OverrunTolerance,
		logger:    logger,
		launch: func(id int64, inj Injection) {
			u := newVirtualUser(state, id, inj.Scenario, seed)
			users.Add(1)
			go func() {
				defer users.Done()
				u.Run()
			}()
		},
	}
	stats := sched.run(soft, started, opt.Injections)
	users.Wait()
	close(done)
	watcher.Wait()

	report := &Report{
		RunID:       runID.String(),
		Started:     started,
		Duration:    opt.Clock.Since(started),
		Interrupted: ctx.Err() != nil,
		Injections:  stats,
		Summary:     opt.Collector.Snapshot(),
	}
	report.DurationMs = float64(report.Duration) / float64(time.Millisecond)

	result := assertion.Evaluate(report.Summary, opt.Assertions)
	var maxLag time.Duration
	for _, st := range stats {
		report.Overruns += st.Overruns
		if st.MaxLag > maxLag {
			maxLag = st.MaxLag
		}
	}
	if report.Overruns > 0 {
		msg := fmt.Sprintf("%d users started more than %s behind schedule (max lag %s)",
			report.Overruns, opt.OverrunTolerance, maxLag)
		if opt.FailOnOverrun {
			result = result.WithViolation(assertion.Violation{
				Assertion: "schedule.overruns",
				Operator:  "==",
				Expected:  0,
				Observed:  float64(report.Overruns),
				Message:   msg,
			})
		} else {
			result = result.WithWarning(msg)
		}
	}
	if report.Interrupted {
		result = result.WithWarning("run interrupted before its injection profiles completed")
	}
	report.Result = result

	logger.Info("run finished",
		zap.Bool("pass", result.Pass),
		zap.Int64("requests", report.Summary.Global.Count),
		zap.Int64("overruns", report.Overruns),
		zap.Duration("elapsed", report.Duration))
	return report, nil
}

// watch enforces MaxDuration and, once the soft stop happens for any reason,
// the grace period that follows it.
func (r *Runner) watch(soft context.Context, softCancel, hardCancel context.CancelFunc, done <-chan struct{}, logger *zap.Logger) {
	var limit <-chan time.Time
	if r.opt.MaxDuration > 0 {
		timer := r.opt.Clock.NewTimer(r.opt.MaxDuration)
		defer timer.Stop()
		limit = timer.Chan()
	}

	select {
	case <-limit:
		logger.Info("max duration reached, stopping users", zap.Duration("grace_period", r.opt.GracePeriod))
		softCancel()
	case <-soft.Done():
	case <-done:
		return
	}

	grace := r.opt.Clock.NewTimer(r.opt.GracePeriod)
	defer grace.Stop()
	select {
	case <-grace.Chan():
		logger.Warn("grace period elapsed, abandoning in-flight requests")
		hardCancel()
	case <-done:
	}
}
