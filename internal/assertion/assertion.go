// Package assertion parses and evaluates pass/fail conditions over a run's
// aggregated metrics.
//
// An assertion reads
//
//	<scope>.<metric>.<aggregate> <operator> <value>
//
// for example "global.response_time.max < 5000" or
// "details(Login).successful_requests.percent >= 95". Scope is "global" or
// "details(<request name>)". Latencies are in milliseconds and percentages
// in the range 0-100.
package assertion

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Metric is the statistic family an assertion reads.
type Metric string

const (
	MetricResponseTime       Metric = "response_time"
	MetricSuccessfulRequests Metric = "successful_requests"
	MetricFailedRequests     Metric = "failed_requests"
	MetricAllRequests        Metric = "all_requests"
)

// Assertion is one parsed condition.
type Assertion struct {
	// Step is the request name for details(...) scope; empty means global.
	Step      string
	Metric    Metric
	Aggregate string
	Operator  string
	Value     float64
	Raw       string
}

// Scope renders the assertion's scope.
func (a Assertion) Scope() string {
	if a.Step == "" {
		return "global"
	}
	return fmt.Sprintf("details(%s)", a.Step)
}

// Path renders the left-hand side in canonical form.
func (a Assertion) Path() string {
	return fmt.Sprintf("%s.%s.%s", a.Scope(), a.Metric, a.Aggregate)
}

// String renders the assertion in canonical form.
func (a Assertion) String() string {
	return fmt.Sprintf("%s %s %s", a.Path(), a.Operator, strconv.FormatFloat(a.Value, 'f', -1, 64))
}

var pattern = regexp.MustCompile(`^(global|details\(\s*([^)]*?)\s*\))\.([A-Za-z_]+)\.([A-Za-z0-9_]+)\s*(<=|>=|==|!=|<|>|[a-z]+)\s*(-?[0-9]+(?:\.[0-9]+)?)$`)

var metricAliases = map[string]Metric{
	"response_time":       MetricResponseTime,
	"responsetime":        MetricResponseTime,
	"successful_requests": MetricSuccessfulRequests,
	"successfulrequests":  MetricSuccessfulRequests,
	"failed_requests":     MetricFailedRequests,
	"failedrequests":      MetricFailedRequests,
	"all_requests":        MetricAllRequests,
	"allrequests":         MetricAllRequests,
	"requests":            MetricAllRequests,
}

var aggregates = map[Metric]map[string]string{
	MetricResponseTime: {
		"min": "min", "max": "max", "mean": "mean", "avg": "mean",
		"stddev": "stddev", "std_dev": "stddev",
		"p50": "p50", "median": "p50", "percentile50": "p50",
		"p75": "p75", "percentile75": "p75",
		"p90": "p90", "percentile90": "p90",
		"p95": "p95", "percentile95": "p95",
		"p99": "p99", "percentile99": "p99",
	},
	MetricSuccessfulRequests: {"percent": "percent", "count": "count"},
	MetricFailedRequests:     {"percent": "percent", "count": "count"},
	MetricAllRequests: {
		"count": "count", "per_sec": "per_sec", "persec": "per_sec",
		"rate": "per_sec", "requests_per_sec": "per_sec",
	},
}

var operatorAliases = map[string]string{
	"<": "<", "<=": "<=", ">": ">", ">=": ">=", "==": "==", "!=": "!=",
	"lt": "<", "lte": "<=", "gt": ">", "gte": ">=",
	"is": "==", "eq": "==", "ne": "!=",
}

// Parse parses an assertion string.
func Parse(s string) (Assertion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Assertion{}, fmt.Errorf("empty assertion string")
	}

	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Assertion{}, fmt.Errorf("invalid assertion format: %q (expected <scope>.<metric>.<aggregate> <op> <value>, e.g. 'global.response_time.max < 5000')", s)
	}

	a := Assertion{Raw: s}
	if strings.HasPrefix(matches[1], "details") {
		if matches[2] == "" {
			return Assertion{}, fmt.Errorf("details scope requires a request name: %q", s)
		}
		a.Step = matches[2]
	}

	metric, ok := metricAliases[strings.ToLower(matches[3])]
	if !ok {
		return Assertion{}, fmt.Errorf("unsupported metric: %q (supported: response_time, successful_requests, failed_requests, all_requests)", matches[3])
	}
	a.Metric = metric

	aggregate, ok := aggregates[metric][strings.ToLower(matches[4])]
	if !ok {
		return Assertion{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", matches[4], metric, supportedAggregates(metric))
	}
	a.Aggregate = aggregate

	op, ok := operatorAliases[matches[5]]
	if !ok {
		return Assertion{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==, !=)", matches[5])
	}
	a.Operator = op

	value, err := strconv.ParseFloat(matches[6], 64)
	if err != nil {
		return Assertion{}, fmt.Errorf("invalid assertion value %q: %v", matches[6], err)
	}
	if math.IsInf(value, 0) {
		return Assertion{}, fmt.Errorf("assertion value out of range: %q", matches[6])
	}
	a.Value = value
	return a, nil
}

// MustParse is like Parse but panics on error. For literals in code and tests.
func MustParse(s string) Assertion {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseMultiple parses every string and reports all malformed ones together.
func ParseMultiple(specs []string) ([]Assertion, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	result := make([]Assertion, 0, len(specs))
	var errs []string

	for i, s := range specs {
		a, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
			continue
		}
		result = append(result, a)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("assertion parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

func supportedAggregates(m Metric) string {
	switch m {
	case MetricResponseTime:
		return "min, max, mean, stddev, p50, p75, p90, p95, p99"
	case MetricAllRequests:
		return "count, per_sec"
	default:
		return "percent, count"
	}
}
