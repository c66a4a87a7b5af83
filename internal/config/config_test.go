package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/surgefire/internal/config"
	"github.com/torosent/surgefire/internal/scenario"
)

func TestLoadDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{"--base-url", "http://localhost:8080/"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.GracePeriod != 5*time.Second {
		t.Errorf("GracePeriod = %s, want 5s", cfg.GracePeriod)
	}
	if cfg.Overrun.Policy != config.OverrunWarn {
		t.Errorf("Overrun.Policy = %q, want warn", cfg.Overrun.Policy)
	}
	if cfg.Report.Format != config.ReportText {
		t.Errorf("Report.Format = %q, want text", cfg.Report.Format)
	}
	if cfg.MaxDuration != 0 {
		t.Errorf("MaxDuration = %s, want 0", cfg.MaxDuration)
	}
	if len(cfg.Headers) != 0 {
		t.Errorf("Headers len = %d, want 0", len(cfg.Headers))
	}
}

func TestLoadNoArgsRequestsHelp(t *testing.T) {
	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

const libraryYAML = `
base_url: http://localhost:8080
headers:
  Accept: application/json
max_duration: 90s
overrun:
  tolerance: 250ms
  policy: fail
assertions:
  - global.response_time.max < 5000
  - details(Login).failed_requests.count == 0
scenarios:
  - name: User Login
    injection:
      - type: at_once
        users: 2
      - type: nothing_for
        duration: 5s
      - type: constant_rate
        rate: 0.5
        duration: 10s
    steps:
      - set:
          - var: n
            generator: random_int
            max: 1000
          - var: email
            generator: template
            template: "test#{n}@example.com"
      - name: Login
        method: POST
        path: /api/auth/login
        body: '{"email":"#{email}"}'
        fail_fast: true
        checks:
          - status: 200
          - json_path: $.userId
            save_as: userId
          - json_path: $.role
            is: ADMIN
      - pause: 1s
      - repeat: 2
        counter: i
        steps:
          - name: Get Rooms
            path: /api/rooms
            checks:
              - status: [200, 401]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeFile(t, "library.yaml", libraryYAML)

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--header", "X-Env=staging"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.MaxDuration != 90*time.Second {
		t.Errorf("MaxDuration = %s, want 90s", cfg.MaxDuration)
	}
	if cfg.Overrun.Tolerance != 250*time.Millisecond || cfg.Overrun.Policy != config.OverrunFail {
		t.Errorf("Overrun = %+v", cfg.Overrun)
	}
	if cfg.Headers["Accept"] != "application/json" || cfg.Headers["X-Env"] != "staging" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if len(cfg.Assertions) != 2 {
		t.Errorf("Assertions = %v", cfg.Assertions)
	}
	if len(cfg.Scenarios) != 1 || len(cfg.Scenarios[0].Steps) != 4 {
		t.Fatalf("Scenarios = %+v", cfg.Scenarios)
	}

	login := cfg.Scenarios[0].Steps[1]
	if login.Checks[1].SaveAs != "userId" || login.Checks[1].Expression != "$.userId" {
		t.Errorf("save_as check = %+v", login.Checks[1])
	}

	plan, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer plan.Close()

	if len(plan.Injections) != 1 || len(plan.Assertions) != 2 {
		t.Fatalf("plan = %+v", plan)
	}
	inj := plan.Injections[0]
	if got := inj.Profile.TotalUsers(); got != 7 {
		t.Errorf("TotalUsers() = %d, want 7 (2 at once + 5 at 0.5/s for 10s)", got)
	}
	if inj.Profile.Duration() != 15*time.Second {
		t.Errorf("profile Duration() = %s, want 15s", inj.Profile.Duration())
	}
	if got := inj.Scenario.RequestCount(); got != 3 {
		t.Errorf("RequestCount() = %d, want 3", got)
	}
	req, ok := inj.Scenario.Steps[1].(*scenario.Request)
	if !ok {
		t.Fatalf("step 1 is %T, want *scenario.Request", inj.Scenario.Steps[1])
	}
	if !req.FailFast || req.Method != "POST" || len(req.Checks) != 3 {
		t.Errorf("request = %+v", req)
	}
	if _, ok := inj.Scenario.Steps[0].(*scenario.Exec); !ok {
		t.Errorf("step 0 is %T, want *scenario.Exec", inj.Scenario.Steps[0])
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeFile(t, "smoke.json", `{
		"base_url": "https://api.example.com",
		"timeout": "10s",
		"throttle_rps": 25,
		"report": {"format": "json", "file": "out.json"},
		"scenarios": [{
			"name": "Smoke",
			"injection": [{"type": "rampUsers", "users": 10, "duration": "30s"}],
			"steps": [{"name": "Rooms", "path": "/api/rooms", "checks": [{"status": [200, 304]}]}]
		}]
	}`)

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--timeout", "3s"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s, want flag override 3s", cfg.Timeout)
	}
	if cfg.ThrottleRPS != 25 {
		t.Errorf("ThrottleRPS = %g, want 25", cfg.ThrottleRPS)
	}
	if cfg.Report.Format != config.ReportJSON || cfg.Report.File != "out.json" {
		t.Errorf("Report = %+v", cfg.Report)
	}
	statuses := cfg.Scenarios[0].Steps[0].Checks[0].Statuses
	if len(statuses) != 2 || statuses[0] != 200 || statuses[1] != 304 {
		t.Errorf("Statuses = %v", statuses)
	}
	if _, err := cfg.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
}

func TestLoadPresetWithOverrides(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{
		"--preset", "load",
		"--base-url", "http://staging:9000",
		"--assert", "global.response_time.p95 < 800",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Preset != "load" {
		t.Errorf("Preset = %q", cfg.Preset)
	}
	if cfg.BaseURL != "http://staging:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if len(cfg.Assertions) != 1 {
		t.Errorf("Assertions = %v, want flag to replace preset assertions", cfg.Assertions)
	}
	if cfg.Headers["Origin"] != "http://localhost:4201" {
		t.Errorf("Headers = %v", cfg.Headers)
	}

	plan, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer plan.Close()

	want := map[string]int{
		"User Registration":       10,
		"User Login":              20,
		"Room Availability Check": 50,
		"Create Reservation":      30,
		"Admin Operations":        60,
	}
	if len(plan.Injections) != len(want) {
		t.Fatalf("Injections = %d, want %d", len(plan.Injections), len(want))
	}
	for _, inj := range plan.Injections {
		if got := inj.Profile.TotalUsers(); got != want[inj.Scenario.Name] {
			t.Errorf("%s users = %d, want %d", inj.Scenario.Name, got, want[inj.Scenario.Name])
		}
	}
}

func TestEveryPresetBuilds(t *testing.T) {
	for _, name := range []string{"smoke", "load", "stress"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.NewLoader().Load([]string{"--preset", name})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			plan, err := cfg.Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			_ = plan.Close()
		})
	}
}

func TestStressPresetMatchesSimulation(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{"--preset", "stress"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxDuration != 2*time.Minute {
		t.Errorf("MaxDuration = %s, want 2m", cfg.MaxDuration)
	}
	plan, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	inj := plan.Injections[0]
	// 10 ramped + 5/s for 20s + 50 ramped + 20/s for 40s
	if got := inj.Profile.TotalUsers(); got != 10+100+50+800 {
		t.Errorf("TotalUsers() = %d, want 960", got)
	}
	// login + 10 room checks
	if got := inj.Scenario.RequestCount(); got != 11 {
		t.Errorf("RequestCount() = %d, want 11", got)
	}
}

func TestValidateCollectsIssues(t *testing.T) {
	cfg := config.Config{
		BaseURL:     "ftp://example.com",
		Timeout:     -time.Second,
		ThrottleRPS: -1,
		Overrun:     config.OverrunConfig{Policy: "panic"},
		Scenarios: []config.ScenarioConfig{
			{Name: "a", Steps: []config.StepConfig{{Type: config.StepFeed, Feeder: "users"}}},
			{Name: "A"},
		},
		Report: config.ReportConfig{Format: "xml"},
	}

	err := cfg.Validate()
	var vErr config.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}

	joined := strings.Join(vErr.Issues(), "\n")
	for _, want := range []string{
		"base_url: scheme must be http or https",
		"timeout must be >= 0",
		"throttle_rps must be >= 0",
		"overrun: policy must be 'warn' or 'fail'",
		"scenarios[0]: injection requires at least one phase",
		`scenarios[0].steps[0]: feeder "users" is not defined`,
		"scenarios[1]: duplicate name also defined at index 0",
		"scenarios[1]: at least one step is required",
		"report: format must be text, json, yaml or html",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing issue %q in:\n%s", want, joined)
		}
	}
}

func TestBuildReportsEveryProblem(t *testing.T) {
	cfg := config.Config{
		BaseURL: "http://localhost:8080",
		Scenarios: []config.ScenarioConfig{
			{
				Name:      "bad status",
				Injection: []config.PhaseConfig{{Type: "at_once", Users: 1}},
				Steps: []config.StepConfig{{
					Type: config.StepRequest, Name: "x", Path: "/x",
					Checks: []config.CheckConfig{{Kind: "status", Statuses: []int{700}}},
				}},
			},
			{
				Name:      "bad phase",
				Injection: []config.PhaseConfig{{Type: "heaviside_users", Users: 1}},
				Steps:     []config.StepConfig{{Type: config.StepRequest, Name: "y", Path: "/y"}},
			},
		},
		Assertions: []string{"global.response_time.max < 5000", "global.vibes.max < 1"},
	}

	_, err := cfg.Build()
	var vErr config.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Build() error = %v, want ValidationError", err)
	}
	if n := len(vErr.Issues()); n != 3 {
		t.Errorf("issues = %d, want 3:\n%s", n, strings.Join(vErr.Issues(), "\n"))
	}
}

func TestBuildOpensFeeders(t *testing.T) {
	csvPath := writeFile(t, "users.csv", "email,password\na@example.com,secret\nb@example.com,hunter2\n")
	cfg := config.Config{
		BaseURL: "http://localhost:8080",
		Feeders: map[string]config.FeederConfig{"users": {Path: csvPath, Type: "csv", Strategy: "circular"}},
		Scenarios: []config.ScenarioConfig{{
			Name:      "fed",
			Injection: []config.PhaseConfig{{Type: "at_once", Users: 1}},
			Steps: []config.StepConfig{
				{Type: config.StepFeed, Feeder: "users"},
				{Type: config.StepRequest, Name: "Login", Method: "POST", Path: "/api/auth/login", Body: `{"email":"#{email}"}`},
			},
		}},
	}

	plan, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	feed, ok := plan.Injections[0].Scenario.Steps[0].(*scenario.Feed)
	if !ok || feed.Feeder.Len() != 2 {
		t.Fatalf("feed step = %#v", plan.Injections[0].Scenario.Steps[0])
	}
	if err := plan.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestBuildMissingFeederFile(t *testing.T) {
	cfg := config.Config{
		BaseURL: "http://localhost:8080",
		Feeders: map[string]config.FeederConfig{"users": {Path: filepath.Join(t.TempDir(), "missing.csv"), Type: "csv"}},
		Scenarios: []config.ScenarioConfig{{
			Name:      "fed",
			Injection: []config.PhaseConfig{{Type: "at_once", Users: 1}},
			Steps:     []config.StepConfig{{Type: config.StepFeed, Feeder: "users"}},
		}},
	}
	if _, err := cfg.Build(); err == nil {
		t.Fatal("expected error for missing feeder file")
	}
}

func TestTracingConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	if (config.TracingConfig{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(config.TracingConfig{Endpoint: "localhost:4317"}).ShouldPropagate() {
		t.Error("endpoint without override should propagate")
	}
	off := false
	if (config.TracingConfig{Endpoint: "localhost:4317", Propagate: &off}).ShouldPropagate() {
		t.Error("explicit false should win")
	}
	on := true
	tc := config.TracingConfig{Propagate: &on}
	if !tc.Enabled() || !tc.ShouldPropagate() {
		t.Error("propagation-only config should be enabled")
	}
}

func TestScenarioWithSeveralInjectionProfiles(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
base_url: http://localhost:8080
scenarios:
  - name: Browse Rooms
    injection:
      - type: at_once
        users: 2
    injections:
      - - type: ramp_users
          users: 10
          duration: 10s
      - - type: nothing_for
          duration: 5s
        - type: constant_rate
          rate: 2
          duration: 5s
    steps:
      - name: Rooms
        path: /api/rooms
`)
	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	plan, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer plan.Close()

	want := []int{2, 10, 10}
	if len(plan.Injections) != len(want) {
		t.Fatalf("Injections = %d, want %d", len(plan.Injections), len(want))
	}
	for i, inj := range plan.Injections {
		if inj.Scenario != plan.Injections[0].Scenario {
			t.Errorf("injection %d does not share the scenario", i)
		}
		if got := inj.Profile.TotalUsers(); got != want[i] {
			t.Errorf("injection %d users = %d, want %d", i, got, want[i])
		}
	}
}

func TestEmptyInjectionProfileIsRejected(t *testing.T) {
	cfg := config.Config{
		BaseURL: "http://localhost:8080",
		Timeout: time.Second,
		Scenarios: []config.ScenarioConfig{{
			Name:       "Rooms",
			Steps:      []config.StepConfig{{Type: config.StepRequest, Name: "Rooms", Method: "GET", Path: "/api/rooms"}},
			Injections: [][]config.PhaseConfig{{{Type: "at_once", Users: 1}}, {}},
		}},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "scenarios[0].injections[1]: at least one phase is required") {
		t.Fatalf("Validate() error = %v", err)
	}
}
