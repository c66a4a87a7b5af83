package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/torosent/surgefire/internal/assertion"
	"github.com/torosent/surgefire/internal/check"
	"github.com/torosent/surgefire/internal/feeder"
	"github.com/torosent/surgefire/internal/injection"
	"github.com/torosent/surgefire/internal/scenario"
)

// Plan is a configuration compiled into runnable parts.
type Plan struct {
	Injections []Injection
	Assertions []assertion.Assertion

	feeders []feeder.Feeder
}

// Injection pairs a scenario with the profile that spawns its users.
type Injection struct {
	Scenario *scenario.Scenario
	Profile  injection.Profile
}

// Close releases every feeder the plan opened.
func (p *Plan) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, f := range p.feeders {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.feeders = nil
	return errors.Join(errs...)
}

// Build compiles the configuration. Every scenario, profile and assertion
// problem is reported together as a ValidationError. Feeders referenced by
// the plan are opened here; call Close when the run is over.
func (c Config) Build() (*Plan, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	feeders, err := openFeeders(c.Feeders)
	if err != nil {
		return nil, err
	}
	plan := &Plan{feeders: values(feeders)}

	var issues []string
	for idx, sc := range c.Scenarios {
		label := fmt.Sprintf("scenarios[%d]", idx)

		steps, err := buildSteps(sc.Steps, feeders)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s.steps%v", label, err))
			continue
		}
		s := &scenario.Scenario{Name: sc.Name, Steps: steps}
		if err := s.Validate(); err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", label, err))
			continue
		}

		for i, phases := range sc.Profiles() {
			profile, err := buildProfile(phases)
			if err != nil {
				issues = append(issues, fmt.Sprintf("%s.injection(%d): %v", label, i, err))
				continue
			}
			plan.Injections = append(plan.Injections, Injection{Scenario: s, Profile: profile})
		}
	}

	assertions, err := assertion.ParseMultiple(c.Assertions)
	if err != nil {
		issues = append(issues, err.Error())
	}
	plan.Assertions = assertions

	if len(issues) > 0 {
		_ = plan.Close()
		return nil, ValidationError{issues: issues}
	}
	return plan, nil
}

func values(m map[string]feeder.Feeder) []feeder.Feeder {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]feeder.Feeder, 0, len(names))
	for _, name := range names {
		out = append(out, m[name])
	}
	return out
}

func openFeeders(cfgs map[string]FeederConfig) (map[string]feeder.Feeder, error) {
	opened := make(map[string]feeder.Feeder, len(cfgs))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for name, fc := range cfgs {
		strategy, err := feeder.ParseStrategy(fc.Strategy)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("feeders.%s: %w", name, err)
		}
		var f feeder.Feeder
		switch fc.Type {
		case "csv":
			f, err = feeder.NewCSVFeeder(fc.Path, strategy)
		case "json":
			f, err = feeder.NewJSONFeeder(fc.Path, strategy)
		default:
			err = fmt.Errorf("unsupported type %q", fc.Type)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("feeders.%s: %w", name, err)
		}
		opened[name] = f
	}
	return opened, nil
}

func buildSteps(cfgs []StepConfig, feeders map[string]feeder.Feeder) ([]scenario.Step, error) {
	steps := make([]scenario.Step, 0, len(cfgs))
	for idx, sc := range cfgs {
		step, err := buildScenarioStep(sc, feeders)
		if err != nil {
			return nil, indexError{idx, err}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func buildScenarioStep(sc StepConfig, feeders map[string]feeder.Feeder) (scenario.Step, error) {
	switch sc.Type {
	case StepRequest:
		return buildRequest(sc)
	case StepPause:
		return &scenario.Pause{Duration: sc.Duration, Min: sc.Min, Max: sc.Max}, nil
	case StepRepeat:
		inner, err := buildSteps(sc.Steps, feeders)
		if err != nil {
			return nil, fmt.Errorf("repeat.steps%w", err)
		}
		return &scenario.Repeat{Times: sc.Times, CounterName: sc.Counter, Steps: inner}, nil
	case StepFeed:
		f, ok := feeders[sc.Feeder]
		if !ok {
			return nil, fmt.Errorf("feeder %q is not defined", sc.Feeder)
		}
		return &scenario.Feed{Name: sc.Feeder, Feeder: f}, nil
	case StepSet:
		assignments := make([]scenario.Assignment, 0, len(sc.Values))
		for i, v := range sc.Values {
			gen, err := scenario.ParseGenerator(v.Generator, v.Min, v.Max, v.Template)
			if err != nil {
				return nil, fmt.Errorf("set[%d] %s: %w", i, v.Var, err)
			}
			assignments = append(assignments, scenario.Assignment{Name: v.Var, Generator: gen})
		}
		name := sc.Name
		if name == "" {
			name = "set"
		}
		return scenario.Set(name, assignments...), nil
	default:
		return nil, fmt.Errorf("unsupported step type %q", sc.Type)
	}
}

func buildRequest(sc StepConfig) (*scenario.Request, error) {
	req := &scenario.Request{
		Name:          sc.Name,
		Method:        sc.Method,
		Path:          sc.Path,
		Body:          sc.Body,
		FailFast:      sc.FailFast,
		ExitOnFailure: sc.ExitOnFailure,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if sc.BodyFile != "" {
		data, err := os.ReadFile(sc.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("request %q: body_file: %w", sc.Name, err)
		}
		req.Body = string(data)
	}
	if len(sc.Headers) > 0 {
		req.Headers = make(map[string]string, len(sc.Headers))
		for k, v := range sc.Headers {
			req.Headers[k] = v
		}
	}
	for _, q := range sc.Query {
		req.Query = append(req.Query, scenario.QueryParam{Name: q.Name, Value: q.Value})
	}
	for _, cc := range sc.Checks {
		req.Checks = append(req.Checks, toCheck(cc))
	}
	return req, nil
}

func toCheck(cc CheckConfig) check.Check {
	return check.Check{
		Kind:       check.Kind(cc.Kind),
		Expression: cc.Expression,
		Condition:  check.Condition(cc.Condition),
		Expected:   cc.Expected,
		Statuses:   append([]int(nil), cc.Statuses...),
		SaveAs:     cc.SaveAs,
	}
}

func buildProfile(phases []PhaseConfig) (injection.Profile, error) {
	out := make([]injection.Phase, 0, len(phases))
	for idx, pc := range phases {
		typ, err := injection.ParsePhaseType(pc.Type)
		if err != nil {
			return injection.Profile{}, fmt.Errorf("phases[%d]: %w", idx, err)
		}
		out = append(out, injection.Phase{
			Type:     typ,
			Users:    pc.Users,
			Rate:     pc.Rate,
			ToRate:   pc.ToRate,
			Duration: pc.Duration,
		})
	}
	profile := injection.NewProfile(out...)
	if err := profile.Validate(); err != nil {
		return injection.Profile{}, err
	}
	return profile, nil
}

// ScenarioNames lists configured scenario names, for CLI summaries.
func (c Config) ScenarioNames() []string {
	names := make([]string, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		names[i] = strings.TrimSpace(sc.Name)
	}
	return names
}
