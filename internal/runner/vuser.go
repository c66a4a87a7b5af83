package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"go.uber.org/zap"

	"github.com/torosent/surgefire/internal/check"
	"github.com/torosent/surgefire/internal/feeder"
	"github.com/torosent/surgefire/internal/metrics"
	"github.com/torosent/surgefire/internal/scenario"
	"github.com/torosent/surgefire/internal/tracing"
	"github.com/torosent/surgefire/internal/variables"
)

var (
	// errStopped ends a user whose run reached its maximum duration.
	errStopped = errors.New("run stopped")
	// errExit ends a user after a failed request marked exit-on-failure.
	errExit = errors.New("exit on failure")
)

// run is the state shared by every virtual user of one run.
type run struct {
	opt Options
	// soft is cancelled when no new steps may start.
	soft context.Context
	// hard is cancelled when in-flight requests must be abandoned.
	hard context.Context
}

// virtualUser walks one scenario with its own session. It is owned by a
// single goroutine.
type virtualUser struct {
	id       int64
	scenario *scenario.Scenario
	session  variables.Session
	rng      *rand.Rand
	run      *run
	logger   *zap.Logger
}

func newVirtualUser(r *run, id int64, sc *scenario.Scenario, seed uint64) *virtualUser {
	rng := rand.New(rand.NewPCG(seed, uint64(id)))
	return &virtualUser{
		id:       id,
		scenario: sc,
		session:  variables.NewSession().WithRand(rng),
		rng:      rng,
		run:      r,
		logger:   r.opt.Logger.With(zap.String("scenario", sc.Name), zap.Int64("user", id)),
	}
}

// Run executes the scenario until its last step, an exit-on-failure request,
// a broken session or the end of the run.
func (u *virtualUser) Run() {
	c := u.run.opt.Collector
	c.UserStarted()
	defer c.UserFinished()

	err := u.steps(u.scenario.Steps)
	switch {
	case err == nil, errors.Is(err, errStopped):
	case errors.Is(err, errExit):
		u.logger.Debug("user exited after failed request")
	case errors.Is(err, feeder.ErrExhausted):
		u.logger.Info("user stopped, feeder exhausted", zap.Error(err))
	default:
		u.logger.Warn("user aborted", zap.Error(err))
	}
}

func (u *virtualUser) steps(steps []scenario.Step) error {
	for _, step := range steps {
		if u.run.soft.Err() != nil {
			return errStopped
		}
		if err := u.step(step); err != nil {
			return err
		}
	}
	return nil
}

func (u *virtualUser) step(step scenario.Step) error {
	switch st := step.(type) {
	case *scenario.Request:
		if !u.request(st) && st.ExitOnFailure {
			return errExit
		}
	case *scenario.Pause:
		return u.pause(st)
	case *scenario.Repeat:
		for i := 0; i < st.Times; i++ {
			if st.CounterName != "" {
				u.session = u.session.Set(st.CounterName, strconv.Itoa(i))
			}
			if err := u.steps(st.Steps); err != nil {
				return err
			}
		}
	case *scenario.Exec:
		next, err := st.Fn(u.session)
		if err != nil {
			return fmt.Errorf("exec %q: %w", st.Name, err)
		}
		u.session = next
	case *scenario.Feed:
		record, err := st.Feeder.Next(u.run.soft)
		if err != nil {
			if u.run.soft.Err() != nil {
				return errStopped
			}
			return fmt.Errorf("feed %q: %w", st.Name, err)
		}
		u.session = u.session.Merge(record)
	default:
		return fmt.Errorf("unsupported step %T", step)
	}
	return nil
}

func (u *virtualUser) pause(p *scenario.Pause) error {
	d := p.Resolve(u.rng)
	if d <= 0 {
		return nil
	}
	timer := u.run.opt.Clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-u.run.soft.Done():
		return errStopped
	}
}

// request sends one request step and records its outcome. It reports whether
// the request succeeded. A request abandoned by the hard stop is not recorded.
func (u *virtualUser) request(step *scenario.Request) bool {
	opt := &u.run.opt
	start := opt.Clock.Now()
	outcome := metrics.Outcome{
		Scenario: u.scenario.Name,
		Step:     step.Name,
		Start:    start,
	}

	req, err := buildRequest(opt.BaseURL, opt.Headers, step, u.session)
	if err != nil {
		outcome.Error = err.Error()
		opt.Collector.Record(outcome)
		u.logger.Debug("request not sent", zap.String("step", step.Name), zap.Error(err))
		return false
	}

	ctx := tracing.WithUser(u.run.hard, u.id)
	resp, err := opt.Transport.Send(ctx, req)
	if u.run.hard.Err() != nil {
		return false
	}
	outcome.Duration = opt.Clock.Since(start)
	if resp != nil && resp.Latency > 0 {
		outcome.Duration = resp.Latency
	}
	if err != nil {
		outcome.Error = metrics.ErrorLabel(err)
		if resp != nil {
			outcome.StatusCode = resp.StatusCode
		}
		opt.Collector.Record(outcome)
		return false
	}

	outcome.StatusCode = resp.StatusCode
	results, session := check.Evaluate(
		check.Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body},
		step.Checks, u.session, check.Options{FailFast: step.FailFast},
	)
	u.session = session
	if failed, ok := check.FirstFailure(results); ok {
		outcome.Error = failed.Label()
	} else {
		outcome.Success = true
	}
	opt.Collector.Record(outcome)
	return outcome.Success
}
