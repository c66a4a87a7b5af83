package scenario

import (
	"time"

	"github.com/torosent/surgefire/internal/check"
	"github.com/torosent/surgefire/internal/feeder"
)

// Builder assembles a scenario step by step.
//
//	s, err := scenario.New("Health Check").
//		Get("Get Rooms", "/api/rooms", check.Status(200)).
//		Pause(time.Second).
//		Build()
type Builder struct {
	name  string
	steps []Step
}

// New starts a scenario named name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Get appends a GET request.
func (b *Builder) Get(name, path string, checks ...check.Check) *Builder {
	return b.Request(&Request{Name: name, Method: "GET", Path: path, Checks: checks})
}

// Post appends a POST request with a JSON body template.
func (b *Builder) Post(name, path, body string, checks ...check.Check) *Builder {
	return b.Request(&Request{
		Name:    name,
		Method:  "POST",
		Path:    path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Checks:  checks,
	})
}

// Request appends a fully specified request.
func (b *Builder) Request(r *Request) *Builder {
	b.steps = append(b.steps, r)
	return b
}

// Pause appends a fixed pause.
func (b *Builder) Pause(d time.Duration) *Builder {
	b.steps = append(b.steps, &Pause{Duration: d})
	return b
}

// PauseBetween appends a uniformly random pause in [min, max].
func (b *Builder) PauseBetween(min, max time.Duration) *Builder {
	b.steps = append(b.steps, &Pause{Min: min, Max: max})
	return b
}

// Exec appends a session transform.
func (b *Builder) Exec(name string, fn SessionFunc) *Builder {
	b.steps = append(b.steps, &Exec{Name: name, Fn: fn})
	return b
}

// Feed appends a feed step.
func (b *Builder) Feed(f feeder.Feeder) *Builder {
	b.steps = append(b.steps, &Feed{Feeder: f})
	return b
}

// Repeat appends a loop whose body is built by body.
func (b *Builder) Repeat(times int, counterName string, body func(*Builder)) *Builder {
	inner := &Builder{}
	body(inner)
	b.steps = append(b.steps, &Repeat{Times: times, CounterName: counterName, Steps: inner.steps})
	return b
}

// Build validates and returns the scenario.
func (b *Builder) Build() (*Scenario, error) {
	s := &Scenario{Name: b.name, Steps: b.steps}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
