package config

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/surgefire/internal/presets"
)

// Loader handles loading configuration from presets, files and command-line arguments.
type Loader struct {
	preset func(name string) (map[string]interface{}, error)
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader backed by the built-in presets.
func NewLoader() *Loader {
	return &Loader{preset: func(name string) (map[string]interface{}, error) {
		p, err := presets.Get(name)
		if err != nil {
			return nil, err
		}
		return p.Settings, nil
	}}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (l *Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// Nothing to run: show usage.
	if len(args) == 0 {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	return l.LoadFlags(flagSet)
}

// LoadFlags builds a Config from an already parsed flag set. Layers apply in
// order: defaults, --preset, --config file, then individual flags.
func (l *Loader) LoadFlags(flagSet *pflag.FlagSet) (*Config, error) {
	cfg := defaultConfig()

	if f := flagSet.Lookup("preset"); f != nil && f.Value.String() != "" {
		name := f.Value.String()
		if l.preset == nil {
			return nil, fmt.Errorf("preset %q: no presets available", name)
		}
		settings, err := l.preset(name)
		if err != nil {
			return nil, err
		}
		if err := applyConfigSettings(cfg, settings); err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
		cfg.Preset = name
	}

	if f := flagSet.Lookup("config"); f != nil && f.Value.String() != "" {
		configPath := f.Value.String()
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configPath
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	normalize(cfg)
	return cfg, nil
}

// FromSettings builds a Config from decoded settings, as read from a file.
func FromSettings(settings map[string]interface{}) (*Config, error) {
	cfg := defaultConfig()
	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}
	normalize(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Headers:     map[string]string{},
		Timeout:     DefaultTimeout,
		GracePeriod: DefaultGracePeriod,
		Overrun:     OverrunConfig{Tolerance: DefaultOverrunTolerance, Policy: OverrunWarn},
		Log:         LogConfig{Level: "info", Format: "console"},
		Report:      ReportConfig{Format: ReportText},
		Tracing:     TracingConfig{SampleRate: 1.0},
	}
}

func normalize(cfg *Config) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.Overrun.Policy == "" {
		cfg.Overrun.Policy = OverrunWarn
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = ReportText
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
}

// applyConfigSettings applies settings from a config file or preset to the Config struct.
func applyConfigSettings(cfg *Config, raw map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	settings, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}

	if raw, ok := lookupSetting(settings, "base_url", "baseurl", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "max_duration", "maxduration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("max_duration: %w", err)
		}
		cfg.MaxDuration = dur
	}

	if raw, ok := lookupSetting(settings, "grace_period", "graceperiod"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("grace_period: %w", err)
		}
		cfg.GracePeriod = dur
	}

	if raw, ok := lookupSetting(settings, "throttle_rps", "throttle"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("throttle_rps: %w", err)
		}
		cfg.ThrottleRPS = val
	}

	if raw, ok := lookupSetting(settings, "throttle_burst"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("throttle_burst: %w", err)
		}
		cfg.ThrottleBurst = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asUint64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "overrun"); ok {
		overrun, err := parseOverrun(raw, cfg.Overrun)
		if err != nil {
			return fmt.Errorf("overrun: %w", err)
		}
		cfg.Overrun = overrun
	}

	if raw, ok := lookupSetting(settings, "feeders"); ok {
		feeders, err := parseFeeders(raw)
		if err != nil {
			return fmt.Errorf("feeders: %w", err)
		}
		cfg.Feeders = feeders
	}

	if raw, ok := lookupSetting(settings, "scenarios"); ok {
		scenarios, err := parseScenarios(raw)
		if err != nil {
			return fmt.Errorf("scenarios: %w", err)
		}
		cfg.Scenarios = scenarios
	}

	if raw, ok := lookupSetting(settings, "assertions"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("assertions: %w", err)
		}
		cfg.Assertions = vals
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tc, err := parseTracing(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tc
	}

	if raw, ok := lookupSetting(settings, "log"); ok {
		m, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		if v, ok := lookupSetting(m, "level"); ok {
			s, _ := asString(v)
			cfg.Log.Level = s
		}
		if v, ok := lookupSetting(m, "format"); ok {
			s, _ := asString(v)
			cfg.Log.Format = s
		}
	}

	if raw, ok := lookupSetting(settings, "metrics_addr", "metricsaddr"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "report"); ok {
		m, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if v, ok := lookupSetting(m, "format"); ok {
			s, _ := asString(v)
			cfg.Report.Format = ReportFormat(strings.ToLower(strings.TrimSpace(s)))
		}
		if v, ok := lookupSetting(m, "file"); ok {
			s, _ := asString(v)
			cfg.Report.File = strings.TrimSpace(s)
		}
	}

	if raw, ok := lookupSetting(settings, "progress"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		cfg.Progress = dur
	}

	return nil
}

func parseOverrun(value interface{}, base OverrunConfig) (OverrunConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return OverrunConfig{}, err
	}
	out := base
	if raw, ok := lookupSetting(settings, "tolerance"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return OverrunConfig{}, fmt.Errorf("tolerance: %w", err)
		}
		out.Tolerance = dur
	}
	if raw, ok := lookupSetting(settings, "policy"); ok {
		val, err := asString(raw)
		if err != nil {
			return OverrunConfig{}, fmt.Errorf("policy: %w", err)
		}
		out.Policy = OverrunPolicy(strings.ToLower(strings.TrimSpace(val)))
	}
	return out, nil
}

func parseFeeders(value interface{}) (map[string]FeederConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return nil, err
	}
	feeders := make(map[string]FeederConfig, len(settings))
	for name, raw := range settings {
		m, err := toStringKeyMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		var fc FeederConfig
		if v, ok := lookupSetting(m, "path"); ok {
			fc.Path, _ = asString(v)
			fc.Path = strings.TrimSpace(fc.Path)
		}
		if v, ok := lookupSetting(m, "type"); ok {
			fc.Type, _ = asString(v)
			fc.Type = strings.ToLower(strings.TrimSpace(fc.Type))
		}
		if fc.Type == "" {
			switch {
			case strings.HasSuffix(strings.ToLower(fc.Path), ".csv"):
				fc.Type = "csv"
			case strings.HasSuffix(strings.ToLower(fc.Path), ".json"):
				fc.Type = "json"
			}
		}
		if v, ok := lookupSetting(m, "strategy"); ok {
			fc.Strategy, _ = asString(v)
			fc.Strategy = strings.ToLower(strings.TrimSpace(fc.Strategy))
		}
		feeders[name] = fc
	}
	return feeders, nil
}

func parseScenarios(value interface{}) ([]ScenarioConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	result := make([]ScenarioConfig, 0, len(items))
	for idx, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", idx, err)
		}
		sc, err := buildScenario(settings)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", idx, err)
		}
		result = append(result, sc)
	}
	return result, nil
}

func buildScenario(settings map[string]interface{}) (ScenarioConfig, error) {
	var sc ScenarioConfig
	if raw, ok := lookupSetting(settings, "name"); ok {
		name, err := asString(raw)
		if err != nil {
			return sc, fmt.Errorf("name: %w", err)
		}
		sc.Name = strings.TrimSpace(name)
	}
	if raw, ok := lookupSetting(settings, "steps"); ok {
		steps, err := parseSteps(raw)
		if err != nil {
			return sc, fmt.Errorf("steps%w", err)
		}
		sc.Steps = steps
	}
	if raw, ok := lookupSetting(settings, "injection", "inject"); ok {
		phases, err := parsePhases(raw)
		if err != nil {
			return sc, fmt.Errorf("injection%w", err)
		}
		sc.Injection = phases
	}
	if raw, ok := lookupSetting(settings, "injections"); ok {
		profiles, err := toInterfaceSlice(raw)
		if err != nil {
			return sc, fmt.Errorf("injections: %w", err)
		}
		for idx, item := range profiles {
			phases, err := parsePhases(item)
			if err != nil {
				return sc, fmt.Errorf("injections%w", indexError{idx, err})
			}
			sc.Injections = append(sc.Injections, phases)
		}
	}
	return sc, nil
}

// indexError prefixes an error with a list index so wrapped paths read
// like "steps[2].checks[0]: ...".
type indexError struct {
	idx int
	err error
}

func (e indexError) Error() string { return fmt.Sprintf("[%d]: %v", e.idx, e.err) }
func (e indexError) Unwrap() error { return e.err }

func parseSteps(value interface{}) ([]StepConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, fmt.Errorf(": %w", err)
	}
	steps := make([]StepConfig, 0, len(items))
	for idx, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, indexError{idx, err}
		}
		step, err := buildStep(settings)
		if err != nil {
			return nil, indexError{idx, err}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// inferStepType picks the step kind from its distinguishing key when no
// explicit type is given.
func inferStepType(settings map[string]interface{}) StepType {
	if raw, ok := lookupSetting(settings, "type"); ok {
		if s, _ := asString(raw); s != "" {
			return StepType(strings.ToLower(strings.TrimSpace(s)))
		}
	}
	for _, candidate := range []StepType{StepRepeat, StepPause, StepFeed, StepSet} {
		if _, ok := settings[string(candidate)]; ok {
			return candidate
		}
	}
	return StepRequest
}

func buildStep(settings map[string]interface{}) (StepConfig, error) {
	step := StepConfig{Type: inferStepType(settings)}

	switch step.Type {
	case StepRequest:
		return buildRequestStep(step, settings)

	case StepPause:
		if raw, ok := lookupSetting(settings, "pause", "duration"); ok {
			if m, err := toStringKeyMap(raw); err == nil {
				// pause: {min: 1s, max: 3s}
				for k, v := range m {
					settings[k] = v
				}
			} else {
				dur, err := asDuration(raw)
				if err != nil {
					return step, fmt.Errorf("pause: %w", err)
				}
				step.Duration = dur
			}
		}
		if raw, ok := lookupSetting(settings, "min"); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return step, fmt.Errorf("min: %w", err)
			}
			step.Min = dur
		}
		if raw, ok := lookupSetting(settings, "max"); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return step, fmt.Errorf("max: %w", err)
			}
			step.Max = dur
		}
		return step, nil

	case StepRepeat:
		if raw, ok := lookupSetting(settings, "repeat", "times"); ok {
			n, err := asInt(raw)
			if err != nil {
				return step, fmt.Errorf("repeat: %w", err)
			}
			step.Times = n
		}
		if raw, ok := lookupSetting(settings, "counter"); ok {
			step.Counter, _ = asString(raw)
		}
		if raw, ok := lookupSetting(settings, "steps"); ok {
			inner, err := parseSteps(raw)
			if err != nil {
				return step, fmt.Errorf("steps%w", err)
			}
			step.Steps = inner
		}
		return step, nil

	case StepFeed:
		if raw, ok := lookupSetting(settings, "feed", "feeder"); ok {
			name, _ := asString(raw)
			step.Feeder = strings.ToLower(strings.TrimSpace(name))
		}
		return step, nil

	case StepSet:
		if raw, ok := lookupSetting(settings, "name"); ok {
			step.Name, _ = asString(raw)
		}
		raw, _ := lookupSetting(settings, "set", "values")
		values, err := parseSetValues(raw)
		if err != nil {
			return step, fmt.Errorf("set%w", err)
		}
		step.Values = values
		return step, nil

	default:
		return step, fmt.Errorf("unsupported step type %q", step.Type)
	}
}

func buildRequestStep(step StepConfig, settings map[string]interface{}) (StepConfig, error) {
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return step, fmt.Errorf("name: %w", err)
		}
		step.Name = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return step, fmt.Errorf("method: %w", err)
		}
		step.Method = strings.ToUpper(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "path", "url"); ok {
		val, err := asString(raw)
		if err != nil {
			return step, fmt.Errorf("path: %w", err)
		}
		step.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "query"); ok {
		query, err := parseQuery(raw)
		if err != nil {
			return step, fmt.Errorf("query: %w", err)
		}
		step.Query = query
	}
	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return step, fmt.Errorf("headers: %w", err)
		}
		step.Headers = make(map[string]string, len(hdrs))
		for k, v := range hdrs {
			step.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}
	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return step, fmt.Errorf("body: %w", err)
		}
		step.Body = val
	}
	if raw, ok := lookupSetting(settings, "body_file", "bodyfile"); ok {
		val, err := asString(raw)
		if err != nil {
			return step, fmt.Errorf("body_file: %w", err)
		}
		step.BodyFile = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "checks"); ok {
		checks, err := parseChecks(raw)
		if err != nil {
			return step, fmt.Errorf("checks%w", err)
		}
		step.Checks = checks
	}
	if raw, ok := lookupSetting(settings, "fail_fast", "failfast"); ok {
		val, err := asBool(raw)
		if err != nil {
			return step, fmt.Errorf("fail_fast: %w", err)
		}
		step.FailFast = val
	}
	if raw, ok := lookupSetting(settings, "exit_on_failure", "exitonfailure", "exit_here_if_failed"); ok {
		val, err := asBool(raw)
		if err != nil {
			return step, fmt.Errorf("exit_on_failure: %w", err)
		}
		step.ExitOnFailure = val
	}
	return step, nil
}

// parseQuery accepts a list of {name, value} pairs, which keeps order, or a
// map, which is sorted by name. Config files lowercase map keys, so
// parameter names with capitals need the list form.
func parseQuery(value interface{}) ([]QueryConfig, error) {
	if _, isList := value.([]interface{}); !isList {
		m, err := asStringMap(value)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		sort.Strings(names)
		out := make([]QueryConfig, 0, len(names))
		for _, k := range names {
			out = append(out, QueryConfig{Name: k, Value: m[k]})
		}
		return out, nil
	}

	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	out := make([]QueryConfig, 0, len(items))
	for idx, item := range items {
		m, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", idx, err)
		}
		var q QueryConfig
		if v, ok := lookupSetting(m, "name"); ok {
			q.Name, _ = asString(v)
		}
		if v, ok := lookupSetting(m, "value"); ok {
			q.Value, _ = asString(v)
		}
		out = append(out, q)
	}
	return out, nil
}

func parseChecks(value interface{}) ([]CheckConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, fmt.Errorf(": %w", err)
	}
	checks := make([]CheckConfig, 0, len(items))
	for idx, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, indexError{idx, err}
		}
		c, err := buildCheck(settings)
		if err != nil {
			return nil, indexError{idx, err}
		}
		checks = append(checks, c)
	}
	return checks, nil
}

// buildCheck reads one check. The kind is either explicit (kind +
// expression) or given by the key holding the expression, e.g.
// "json_path: $.userId" or "status: [200, 201]".
func buildCheck(settings map[string]interface{}) (CheckConfig, error) {
	var c CheckConfig

	kinds := 0
	if raw, ok := lookupSetting(settings, "status"); ok {
		codes, err := asIntSlice(raw)
		if err != nil {
			return c, fmt.Errorf("status: %w", err)
		}
		c.Kind = "status"
		c.Statuses = codes
		kinds++
	}
	for _, k := range []struct{ kind, key, alias string }{
		{"json_path", "json_path", "jsonpath"},
		{"regex", "regex", "regexp"},
		{"header", "header", "header"},
	} {
		if raw, ok := lookupSetting(settings, k.key, k.alias); ok {
			expr, err := asString(raw)
			if err != nil {
				return c, fmt.Errorf("%s: %w", k.key, err)
			}
			c.Kind = k.kind
			c.Expression = expr
			kinds++
		}
	}
	if raw, ok := lookupSetting(settings, "kind"); ok {
		kind, _ := asString(raw)
		c.Kind = strings.ToLower(strings.TrimSpace(kind))
		if raw, ok := lookupSetting(settings, "expression"); ok {
			c.Expression, _ = asString(raw)
		}
		kinds++
	}
	switch {
	case kinds == 0:
		return c, errors.New("check kind is required (status, json_path, regex or header)")
	case kinds > 1:
		return c, errors.New("a check must have exactly one kind")
	}

	if raw, ok := lookupSetting(settings, "condition"); ok {
		val, _ := asString(raw)
		c.Condition = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "is"); ok {
		val, err := asString(raw)
		if err != nil {
			return c, fmt.Errorf("is: %w", err)
		}
		c.Expected = val
		if c.Condition == "" {
			c.Condition = "is"
		}
	}
	if raw, ok := lookupSetting(settings, "exists"); ok {
		exists, err := asBool(raw)
		if err != nil {
			return c, fmt.Errorf("exists: %w", err)
		}
		if !exists {
			c.Condition = "not_exists"
		} else if c.Condition == "" {
			c.Condition = "exists"
		}
	}
	if raw, ok := lookupSetting(settings, "save_as", "saveas"); ok {
		val, err := asString(raw)
		if err != nil {
			return c, fmt.Errorf("save_as: %w", err)
		}
		c.SaveAs = strings.TrimSpace(val)
	}
	return c, nil
}

func parseSetValues(value interface{}) ([]SetConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, fmt.Errorf(": %w", err)
	}
	out := make([]SetConfig, 0, len(items))
	for idx, item := range items {
		m, err := toStringKeyMap(item)
		if err != nil {
			return nil, indexError{idx, err}
		}
		var sc SetConfig
		if v, ok := lookupSetting(m, "var", "name"); ok {
			sc.Var, _ = asString(v)
			sc.Var = strings.TrimSpace(sc.Var)
		}
		if v, ok := lookupSetting(m, "generator"); ok {
			sc.Generator, _ = asString(v)
		}
		if v, ok := lookupSetting(m, "min"); ok {
			n, err := asInt(v)
			if err != nil {
				return nil, indexError{idx, fmt.Errorf("min: %w", err)}
			}
			sc.Min = int64(n)
		}
		if v, ok := lookupSetting(m, "max"); ok {
			n, err := asInt(v)
			if err != nil {
				return nil, indexError{idx, fmt.Errorf("max: %w", err)}
			}
			sc.Max = int64(n)
		}
		if v, ok := lookupSetting(m, "template", "value"); ok {
			sc.Template, _ = asString(v)
		}
		out = append(out, sc)
	}
	return out, nil
}

func parsePhases(value interface{}) ([]PhaseConfig, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, fmt.Errorf(": %w", err)
	}
	phases := make([]PhaseConfig, 0, len(items))
	for idx, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, indexError{idx, err}
		}
		phase, err := buildPhase(settings)
		if err != nil {
			return nil, indexError{idx, err}
		}
		phases = append(phases, phase)
	}
	return phases, nil
}

func buildPhase(settings map[string]interface{}) (PhaseConfig, error) {
	var p PhaseConfig
	if raw, ok := lookupSetting(settings, "type"); ok {
		p.Type, _ = asString(raw)
	}
	if raw, ok := lookupSetting(settings, "users"); ok {
		n, err := asInt(raw)
		if err != nil {
			return p, fmt.Errorf("users: %w", err)
		}
		p.Users = n
	}
	if raw, ok := lookupSetting(settings, "rate", "from_rate", "from"); ok {
		r, err := asFloat64(raw)
		if err != nil {
			return p, fmt.Errorf("rate: %w", err)
		}
		p.Rate = r
	}
	if raw, ok := lookupSetting(settings, "to_rate", "to"); ok {
		r, err := asFloat64(raw)
		if err != nil {
			return p, fmt.Errorf("to_rate: %w", err)
		}
		p.ToRate = r
	}
	if raw, ok := lookupSetting(settings, "duration", "during"); ok {
		d, err := asDuration(raw)
		if err != nil {
			return p, fmt.Errorf("duration: %w", err)
		}
		p.Duration = d
	}
	return p, nil
}

func parseTracing(value interface{}) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	var tc TracingConfig
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		tc.Endpoint, _ = asString(raw)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		tc.Protocol, _ = asString(raw)
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename"); ok {
		tc.ServiceName, _ = asString(raw)
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate"); ok {
		rate, err := asFloat64(raw)
		if err != nil {
			return tc, fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = rate
	} else {
		tc.SampleRate = 1.0
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		b, err := asBool(raw)
		if err != nil {
			return tc, fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = b
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		b, err := asBool(raw)
		if err != nil {
			return tc, fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = &b
	}
	return tc, nil
}
