package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Defaults applied by the loader before any file, preset or flag.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultGracePeriod      = 5 * time.Second
	DefaultOverrunTolerance = 100 * time.Millisecond
)

// Config is a complete run configuration.
type Config struct {
	BaseURL       string                  `mapstructure:"base_url"`
	Headers       map[string]string       `mapstructure:"headers"`
	Timeout       time.Duration           `mapstructure:"timeout"`
	MaxDuration   time.Duration           `mapstructure:"max_duration"`
	GracePeriod   time.Duration           `mapstructure:"grace_period"`
	ThrottleRPS   float64                 `mapstructure:"throttle_rps"`
	ThrottleBurst int                     `mapstructure:"throttle_burst"`
	Seed          uint64                  `mapstructure:"seed"`
	Overrun       OverrunConfig           `mapstructure:"overrun"`
	Scenarios     []ScenarioConfig        `mapstructure:"scenarios"`
	Assertions    []string                `mapstructure:"assertions"`
	Feeders       map[string]FeederConfig `mapstructure:"feeders"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
	Log           LogConfig               `mapstructure:"log"`
	MetricsAddr   string                  `mapstructure:"metrics_addr"`
	Report        ReportConfig            `mapstructure:"report"`
	Progress      time.Duration           `mapstructure:"progress"`
	Preset        string                  `mapstructure:"-"`
	ConfigFile    string                  `mapstructure:"-"`
}

// OverrunPolicy decides what a late spawn means for the verdict.
type OverrunPolicy string

const (
	OverrunWarn OverrunPolicy = "warn"
	OverrunFail OverrunPolicy = "fail"
)

// OverrunConfig bounds how late the scheduler may start a user before the
// delay counts as a schedule overrun.
type OverrunConfig struct {
	Tolerance time.Duration `mapstructure:"tolerance"`
	Policy    OverrunPolicy `mapstructure:"policy"`
}

// ScenarioConfig is one scenario and the injection profiles driving it.
// Injection is a single profile; Injections adds further profiles that run
// concurrently against the same scenario.
type ScenarioConfig struct {
	Name       string          `mapstructure:"name"`
	Steps      []StepConfig    `mapstructure:"steps"`
	Injection  []PhaseConfig   `mapstructure:"injection"`
	Injections [][]PhaseConfig `mapstructure:"injections"`
}

// Profiles returns every configured phase list, Injection first.
func (sc ScenarioConfig) Profiles() [][]PhaseConfig {
	var out [][]PhaseConfig
	if len(sc.Injection) > 0 {
		out = append(out, sc.Injection)
	}
	return append(out, sc.Injections...)
}

// StepType names the kind of a configured step.
type StepType string

const (
	StepRequest StepType = "request"
	StepPause   StepType = "pause"
	StepRepeat  StepType = "repeat"
	StepFeed    StepType = "feed"
	StepSet     StepType = "set"
)

// StepConfig is the union of every step kind; Type selects the fields that apply.
type StepConfig struct {
	Type StepType `mapstructure:"type"`

	// request
	Name          string            `mapstructure:"name"`
	Method        string            `mapstructure:"method"`
	Path          string            `mapstructure:"path"`
	Query         []QueryConfig     `mapstructure:"query"`
	Headers       map[string]string `mapstructure:"headers"`
	Body          string            `mapstructure:"body"`
	BodyFile      string            `mapstructure:"body_file"`
	Checks        []CheckConfig     `mapstructure:"checks"`
	FailFast      bool              `mapstructure:"fail_fast"`
	ExitOnFailure bool              `mapstructure:"exit_on_failure"`

	// pause
	Duration time.Duration `mapstructure:"pause"`
	Min      time.Duration `mapstructure:"min"`
	Max      time.Duration `mapstructure:"max"`

	// repeat
	Times   int          `mapstructure:"repeat"`
	Counter string       `mapstructure:"counter"`
	Steps   []StepConfig `mapstructure:"steps"`

	// feed
	Feeder string `mapstructure:"feed"`

	// set
	Values []SetConfig `mapstructure:"set"`
}

// QueryConfig is one query parameter; Value is a session template.
type QueryConfig struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

// CheckConfig is one response check.
type CheckConfig struct {
	Kind       string `mapstructure:"kind"`
	Expression string `mapstructure:"expression"`
	Condition  string `mapstructure:"condition"`
	Expected   string `mapstructure:"is"`
	Statuses   []int  `mapstructure:"status"`
	SaveAs     string `mapstructure:"save_as"`
}

// SetConfig assigns a generated value to a session variable.
type SetConfig struct {
	Var       string `mapstructure:"var"`
	Generator string `mapstructure:"generator"`
	Min       int64  `mapstructure:"min"`
	Max       int64  `mapstructure:"max"`
	Template  string `mapstructure:"template"`
}

// PhaseConfig is one injection phase.
type PhaseConfig struct {
	Type     string        `mapstructure:"type"`
	Users    int           `mapstructure:"users"`
	Rate     float64       `mapstructure:"rate"`
	ToRate   float64       `mapstructure:"to_rate"`
	Duration time.Duration `mapstructure:"duration"`
}

// FeederConfig describes a data file merged into sessions by feed steps.
type FeederConfig struct {
	Path     string `mapstructure:"path"`
	Type     string `mapstructure:"type"` // "csv" or "json"
	Strategy string `mapstructure:"strategy"`
}

// TracingConfig configures OpenTelemetry export and propagation.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	// Propagate overrides whether W3C trace context is injected into
	// requests. Nil means propagate whenever tracing is enabled.
	Propagate *bool `mapstructure:"propagate"`
}

// Enabled reports whether spans should be created at all.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		return true
	}
	return t.Propagate != nil && *t.Propagate
}

// ShouldPropagate reports whether trace context is injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// ReportFormat selects how the final report is rendered.
type ReportFormat string

const (
	ReportText ReportFormat = "text"
	ReportJSON ReportFormat = "json"
	ReportYAML ReportFormat = "yaml"
	ReportHTML ReportFormat = "html"
)

// ReportConfig selects the final report format and destination.
// An empty File writes to stdout.
type ReportConfig struct {
	Format ReportFormat `mapstructure:"format"`
	File   string       `mapstructure:"file"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate reports every structural problem in the configuration at once.
// Semantic checks on scenarios, profiles and assertions happen in Build.
func (c Config) Validate() error {
	var issues []string

	issues = append(issues, validateBaseURL(c.BaseURL)...)

	if c.ThrottleRPS > 1000 {
		fmt.Fprintf(os.Stderr, "WARNING: High throttle configured (%g RPS). Ensure you have authorization to test the target system.\n", c.ThrottleRPS)
	}

	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.MaxDuration < 0 {
		issues = append(issues, "max_duration must be >= 0")
	}
	if c.GracePeriod < 0 {
		issues = append(issues, "grace_period must be >= 0")
	}
	if c.ThrottleRPS < 0 {
		issues = append(issues, "throttle_rps must be >= 0")
	}
	if c.ThrottleBurst < 0 {
		issues = append(issues, "throttle_burst must be >= 0")
	}
	if c.Progress < 0 {
		issues = append(issues, "progress must be >= 0")
	}

	issues = append(issues, validateOverrun(c.Overrun)...)
	issues = append(issues, validateScenarios(c.Scenarios, c.Feeders)...)
	issues = append(issues, validateFeeders(c.Feeders)...)
	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateReport(c.Report)...)

	if t := strings.ToLower(c.Tracing.Protocol); t != "" && t != "grpc" && t != "http" {
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", c.Tracing.Protocol))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateBaseURL(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"base_url is required (use --help for usage information)"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("base_url: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("base_url: scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return []string{"base_url: host is required"}
	}
	return nil
}

func validateOverrun(o OverrunConfig) []string {
	var issues []string
	if o.Tolerance < 0 {
		issues = append(issues, "overrun: tolerance must be >= 0")
	}
	switch o.Policy {
	case "", OverrunWarn, OverrunFail:
	default:
		issues = append(issues, fmt.Sprintf("overrun: policy must be 'warn' or 'fail', got %q", o.Policy))
	}
	return issues
}

func validateScenarios(scenarios []ScenarioConfig, feeders map[string]FeederConfig) []string {
	if len(scenarios) == 0 {
		return []string{"at least one scenario is required"}
	}
	var issues []string
	seen := map[string]int{}
	for idx, sc := range scenarios {
		label := fmt.Sprintf("scenarios[%d]", idx)
		name := strings.TrimSpace(sc.Name)
		if name == "" {
			issues = append(issues, label+": name is required")
		} else {
			key := strings.ToLower(name)
			if prev, ok := seen[key]; ok {
				issues = append(issues, fmt.Sprintf("%s: duplicate name also defined at index %d", label, prev))
			} else {
				seen[key] = idx
			}
		}
		if len(sc.Steps) == 0 {
			issues = append(issues, label+": at least one step is required")
		}
		if len(sc.Profiles()) == 0 {
			issues = append(issues, label+": injection requires at least one phase")
		}
		for i, phases := range sc.Injections {
			if len(phases) == 0 {
				issues = append(issues, fmt.Sprintf("%s.injections[%d]: at least one phase is required", label, i))
			}
		}
		issues = append(issues, validateSteps(sc.Steps, label+".steps", feeders)...)
	}
	return issues
}

func validateSteps(steps []StepConfig, path string, feeders map[string]FeederConfig) []string {
	var issues []string
	for idx, st := range steps {
		label := fmt.Sprintf("%s[%d]", path, idx)
		switch st.Type {
		case StepRequest:
			if strings.TrimSpace(st.Name) == "" {
				issues = append(issues, label+": name is required")
			}
			if strings.TrimSpace(st.Path) == "" {
				issues = append(issues, label+": path is required")
			}
			if st.Body != "" && st.BodyFile != "" {
				issues = append(issues, label+": body and body_file are mutually exclusive")
			}
		case StepPause:
			if st.Duration <= 0 && st.Max <= 0 {
				issues = append(issues, label+": pause requires a duration or a min/max range")
			}
		case StepRepeat:
			if st.Times < 0 {
				issues = append(issues, label+": repeat must be >= 0")
			}
			if len(st.Steps) == 0 {
				issues = append(issues, label+": repeat requires at least one step")
			}
			issues = append(issues, validateSteps(st.Steps, label+".steps", feeders)...)
		case StepFeed:
			if _, ok := feeders[strings.ToLower(st.Feeder)]; !ok {
				issues = append(issues, fmt.Sprintf("%s: feeder %q is not defined", label, st.Feeder))
			}
		case StepSet:
			if len(st.Values) == 0 {
				issues = append(issues, label+": set requires at least one variable")
			}
			for i, v := range st.Values {
				if strings.TrimSpace(v.Var) == "" {
					issues = append(issues, fmt.Sprintf("%s.set[%d]: var is required", label, i))
				}
			}
		default:
			issues = append(issues, fmt.Sprintf("%s: unsupported step type %q", label, st.Type))
		}
	}
	return issues
}

func validateFeeders(feeders map[string]FeederConfig) []string {
	var issues []string
	for name, f := range feeders {
		if strings.TrimSpace(f.Path) == "" {
			issues = append(issues, fmt.Sprintf("feeders.%s: path is required", name))
		}
		if f.Type != "csv" && f.Type != "json" {
			issues = append(issues, fmt.Sprintf("feeders.%s: type must be 'csv' or 'json', got %q", name, f.Type))
		}
		switch f.Strategy {
		case "", "queue", "circular", "random":
		default:
			issues = append(issues, fmt.Sprintf("feeders.%s: strategy must be 'queue', 'circular' or 'random', got %q", name, f.Strategy))
		}
	}
	return issues
}

func validateLog(l LogConfig) []string {
	var issues []string
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log: level must be debug, info, warn or error, got %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log: format must be 'console' or 'json', got %q", l.Format))
	}
	return issues
}

func validateReport(r ReportConfig) []string {
	switch r.Format {
	case "", ReportText, ReportJSON, ReportYAML, ReportHTML:
		return nil
	default:
		return []string{fmt.Sprintf("report: format must be text, json, yaml or html, got %q", r.Format)}
	}
}
