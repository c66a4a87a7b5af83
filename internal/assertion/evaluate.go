package assertion

import (
	"fmt"
	"math"

	"github.com/torosent/surgefire/internal/metrics"
)

// Result is the outcome of one assertion.
type Result struct {
	Assertion Assertion `json:"-" yaml:"-"`
	Name      string    `json:"assertion" yaml:"assertion"`
	Observed  float64   `json:"observed" yaml:"observed"`
	Pass      bool      `json:"pass" yaml:"pass"`
	Message   string    `json:"message" yaml:"message"`
}

// Violation describes a failed assertion with its expected and observed values.
type Violation struct {
	Assertion string  `json:"assertion" yaml:"assertion"`
	Operator  string  `json:"operator,omitempty" yaml:"operator,omitempty"`
	Expected  float64 `json:"expected" yaml:"expected"`
	Observed  float64 `json:"observed" yaml:"observed"`
	Message   string  `json:"message" yaml:"message"`
}

// RunResult is the verdict of a run.
type RunResult struct {
	Pass          bool        `json:"pass" yaml:"pass"`
	TotalRequests int64       `json:"total_requests" yaml:"total_requests"`
	Results       []Result    `json:"results,omitempty" yaml:"results,omitempty"`
	Violations    []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
	Warnings      []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// WithViolation returns a copy of r carrying one more violation. The copy
// fails regardless of its assertion results.
func (r RunResult) WithViolation(v Violation) RunResult {
	out := r.clone()
	out.Violations = append(out.Violations, v)
	out.Pass = false
	return out
}

// WithWarning returns a copy of r carrying one more warning.
func (r RunResult) WithWarning(msg string) RunResult {
	out := r.clone()
	out.Warnings = append(out.Warnings, msg)
	return out
}

func (r RunResult) clone() RunResult {
	out := r
	out.Results = append([]Result(nil), r.Results...)
	out.Violations = append([]Violation(nil), r.Violations...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return out
}

// Evaluate checks every assertion against summary. All assertions are
// evaluated; the run passes only if each one does. Evaluate has no side
// effects, so repeated calls over the same summary return equal results.
func Evaluate(summary metrics.Summary, assertions []Assertion) RunResult {
	result := RunResult{
		Pass:          true,
		TotalRequests: summary.Global.Count,
	}
	if len(assertions) == 0 {
		return result
	}

	result.Results = make([]Result, 0, len(assertions))
	for _, a := range assertions {
		res := evaluateOne(a, summary)
		result.Results = append(result.Results, res)
		if !res.Pass {
			result.Pass = false
			result.Violations = append(result.Violations, Violation{
				Assertion: res.Name,
				Operator:  a.Operator,
				Expected:  a.Value,
				Observed:  res.Observed,
				Message:   res.Message,
			})
		}
	}
	return result
}

func evaluateOne(a Assertion, summary metrics.Summary) Result {
	name := a.Raw
	if name == "" {
		name = a.String()
	}

	observed, err := observe(a, summary)
	if err != nil {
		return Result{
			Assertion: a,
			Name:      name,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(observed, a.Operator, a.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Assertion: a,
		Name:      name,
		Observed:  observed,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: observed %s, expected %s %s", status, name, formatValue(observed), a.Operator, formatValue(a.Value)),
	}
}

func observe(a Assertion, summary metrics.Summary) (float64, error) {
	stats := summary.Global
	if a.Step != "" {
		st, ok := summary.Step(a.Step)
		if !ok {
			return 0, fmt.Errorf("no requests named %q were recorded", a.Step)
		}
		stats = st
	}

	switch a.Metric {
	case MetricResponseTime:
		return extractLatencyMetric(a.Aggregate, stats)
	case MetricSuccessfulRequests:
		switch a.Aggregate {
		case "percent":
			return stats.SuccessPercent, nil
		case "count":
			return float64(stats.Successes), nil
		}
	case MetricFailedRequests:
		switch a.Aggregate {
		case "percent":
			return stats.FailurePercent, nil
		case "count":
			return float64(stats.Failures), nil
		}
	case MetricAllRequests:
		switch a.Aggregate {
		case "count":
			return float64(stats.Count), nil
		case "per_sec":
			return stats.RequestsPerSec, nil
		}
	default:
		return 0, fmt.Errorf("unknown metric: %s", a.Metric)
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s", a.Aggregate, a.Metric)
}

func extractLatencyMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "min":
		return float64(stats.MinMs), nil
	case "max":
		return float64(stats.MaxMs), nil
	case "mean":
		return stats.MeanMs, nil
	case "stddev":
		return stats.StdDevMs, nil
	case "p50":
		return float64(stats.P50Ms), nil
	case "p75":
		return float64(stats.P75Ms), nil
	case "p90":
		return float64(stats.P90Ms), nil
	case "p95":
		return float64(stats.P95Ms), nil
	case "p99":
		return float64(stats.P99Ms), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for response_time", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected && math.Abs(actual-expected) >= epsilon
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected && math.Abs(actual-expected) >= epsilon
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	case "!=":
		return math.Abs(actual-expected) >= epsilon
	default:
		return false
	}
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
