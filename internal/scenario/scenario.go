// Package scenario defines the ordered steps a virtual user executes.
//
// A Scenario is built once, validated, and then shared read-only by every
// virtual user running it. Per-user state lives in the session the runner
// threads through the steps, never in the steps themselves.
package scenario

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/surgefire/internal/check"
	"github.com/torosent/surgefire/internal/feeder"
	"github.com/torosent/surgefire/internal/variables"
)

// Kind names a step type.
type Kind string

const (
	KindRequest Kind = "request"
	KindPause   Kind = "pause"
	KindRepeat  Kind = "repeat"
	KindExec    Kind = "exec"
	KindFeed    Kind = "feed"
)

// Step is one element of a scenario. The concrete types are *Request,
// *Pause, *Repeat, *Exec and *Feed.
type Step interface {
	Kind() Kind
	validate() error
}

// Scenario is a named, ordered sequence of steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// QueryParam is a single query string parameter. Value is a session template.
type QueryParam struct {
	Name  string
	Value string
}

// Request sends one HTTP request and applies its checks.
type Request struct {
	Name    string
	Method  string
	Path    string
	Query   []QueryParam
	Headers map[string]string
	Body    string
	Checks  []check.Check

	// FailFast stops evaluating checks after the first failure.
	FailFast bool
	// ExitOnFailure ends the virtual user when this request fails.
	ExitOnFailure bool
}

// Kind implements Step.
func (*Request) Kind() Kind { return KindRequest }

func (r *Request) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("request name is required")
	}
	if r.Path == "" {
		return fmt.Errorf("request %q: path is required", r.Name)
	}
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	r.Method = strings.ToUpper(r.Method)
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions:
	default:
		return fmt.Errorf("request %q: unsupported method %q", r.Name, r.Method)
	}
	for i, q := range r.Query {
		if q.Name == "" {
			return fmt.Errorf("request %q: query[%d] name is required", r.Name, i)
		}
	}
	for i := range r.Checks {
		if err := r.Checks[i].Compile(); err != nil {
			return fmt.Errorf("request %q: checks[%d]: %w", r.Name, i, err)
		}
	}
	return nil
}

// Pause suspends the virtual user. A fixed Duration wins over a Min/Max range.
type Pause struct {
	Duration time.Duration
	Min      time.Duration
	Max      time.Duration
}

// Kind implements Step.
func (*Pause) Kind() Kind { return KindPause }

func (p *Pause) validate() error {
	if p.Duration < 0 || p.Min < 0 || p.Max < 0 {
		return errors.New("pause must not be negative")
	}
	if p.Duration == 0 && p.Max < p.Min {
		return fmt.Errorf("pause max %s is less than min %s", p.Max, p.Min)
	}
	return nil
}

// Resolve returns the length of this pause, drawing from [Min, Max] when
// the pause is a range.
func (p *Pause) Resolve(rng *rand.Rand) time.Duration {
	if p.Duration > 0 {
		return p.Duration
	}
	if p.Max <= p.Min {
		return p.Min
	}
	n := int64(p.Max-p.Min) + 1
	var offset int64
	if rng != nil {
		offset = rng.Int64N(n)
	} else {
		offset = rand.Int64N(n)
	}
	return p.Min + time.Duration(offset)
}

// Repeat runs Steps Times times in the same session. When CounterName is set
// the zero-based iteration index is stored under that name.
type Repeat struct {
	Times       int
	CounterName string
	Steps       []Step
}

// Kind implements Step.
func (*Repeat) Kind() Kind { return KindRepeat }

func (r *Repeat) validate() error {
	if r.Times < 0 {
		return fmt.Errorf("repeat times must not be negative, got %d", r.Times)
	}
	if len(r.Steps) == 0 {
		return errors.New("repeat requires at least one step")
	}
	return validateSteps(r.Steps, "repeat.steps")
}

// SessionFunc derives a new session from the current one. It must not have
// side effects outside the returned session.
type SessionFunc func(variables.Session) (variables.Session, error)

// Exec applies a SessionFunc.
type Exec struct {
	Name string
	Fn   SessionFunc
}

// Kind implements Step.
func (*Exec) Kind() Kind { return KindExec }

func (e *Exec) validate() error {
	if e.Fn == nil {
		return fmt.Errorf("exec %q: function is required", e.Name)
	}
	return nil
}

// Feed merges the next record of Feeder into the session.
type Feed struct {
	Name   string
	Feeder feeder.Feeder
}

// Kind implements Step.
func (*Feed) Kind() Kind { return KindFeed }

func (f *Feed) validate() error {
	if f.Feeder == nil {
		return fmt.Errorf("feed %q: feeder is required", f.Name)
	}
	return nil
}

// Validate checks the scenario and compiles its checks. It must be called
// before the scenario is shared between virtual users.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q: at least one step is required", s.Name)
	}
	if err := validateSteps(s.Steps, "steps"); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return nil
}

func validateSteps(steps []Step, path string) error {
	for i, step := range steps {
		if step == nil {
			return fmt.Errorf("%s[%d]: step is nil", path, i)
		}
		if err := step.validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", path, i, err)
		}
	}
	return nil
}

// RequestCount returns how many requests one pass through the scenario issues.
func (s *Scenario) RequestCount() int {
	return countRequests(s.Steps)
}

func countRequests(steps []Step) int {
	n := 0
	for _, step := range steps {
		switch st := step.(type) {
		case *Request:
			n++
		case *Repeat:
			n += st.Times * countRequests(st.Steps)
		}
	}
	return n
}

// RequestNames returns the distinct request names in declaration order.
func (s *Scenario) RequestNames() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func([]Step)
	walk = func(steps []Step) {
		for _, step := range steps {
			switch st := step.(type) {
			case *Request:
				if !seen[st.Name] {
					seen[st.Name] = true
					names = append(names, st.Name)
				}
			case *Repeat:
				walk(st.Steps)
			}
		}
	}
	walk(s.Steps)
	return names
}
