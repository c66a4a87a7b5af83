package check

import (
	"fmt"
	"strconv"

	"github.com/torosent/surgefire/internal/extractor"
	"github.com/torosent/surgefire/internal/placeholders"
	"github.com/torosent/surgefire/internal/variables"
)

// Result is the outcome of one check.
type Result struct {
	Kind     Kind
	Check    string
	Passed   bool
	Found    bool
	Observed string
	Error    string
}

// Options tune evaluation of a request's checks.
type Options struct {
	// FailFast stops evaluating after the first failed check.
	FailFast bool
}

// Evaluate applies checks in order and returns every result together with the
// session extended by any save_as extractions. A request without a status
// check is implicitly held to DefaultStatuses.
func Evaluate(resp Response, checks []Check, session variables.Session, opts Options) ([]Result, variables.Session) {
	if !HasStatus(checks) {
		implicit := Status(DefaultStatuses()...)
		all := make([]Check, 0, len(checks)+1)
		all = append(all, implicit)
		checks = append(all, checks...)
	}

	results := make([]Result, 0, len(checks))
	for i := range checks {
		res, next := evaluateOne(resp, checks[i], session)
		session = next
		results = append(results, res)
		if !res.Passed && opts.FailFast {
			break
		}
	}
	return results, session
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Label renders a failed result as a short message suitable for grouping
// failures in reports.
func (r Result) Label() string {
	if r.Kind == KindStatus {
		return r.Error
	}
	return r.Check + ": " + r.Error
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}

func evaluateOne(resp Response, c Check, session variables.Session) (Result, variables.Session) {
	res := Result{Kind: c.Kind, Check: c.String()}

	if c.Kind == KindStatus {
		observed := strconv.Itoa(resp.StatusCode)
		res.Found = resp.StatusCode != 0
		res.Observed = observed
		for _, code := range c.Statuses {
			if code == resp.StatusCode {
				res.Passed = true
				break
			}
		}
		if !res.Passed {
			res.Error = fmt.Sprintf("status %d not in allowed set", resp.StatusCode)
		}
		if c.SaveAs != "" && res.Found {
			session = session.Set(c.SaveAs, observed)
		}
		return res, session
	}

	if c.extractor == nil {
		if err := c.Compile(); err != nil {
			res.Error = err.Error()
			return res, session
		}
	}

	value, found := c.extractor.Find(extractor.Response{Header: resp.Header, Body: resp.Body})
	res.Found = found
	res.Observed = value

	switch c.Condition {
	case ConditionExists:
		res.Passed = found
		if !found {
			res.Error = "value not found"
		}
	case ConditionNotExists:
		res.Passed = !found
		if found {
			res.Error = fmt.Sprintf("unexpected value %q", value)
		}
	case ConditionIs:
		expected, err := placeholders.Apply(c.Expected, session)
		switch {
		case err != nil:
			res.Error = fmt.Sprintf("expected value: %v", err)
		case !found:
			res.Error = "value not found"
		case value != expected:
			res.Error = fmt.Sprintf("expected %q, got %q", expected, value)
		default:
			res.Passed = true
		}
	default:
		res.Error = fmt.Sprintf("unsupported condition %q", c.Condition)
	}

	// Saved after validation so an expected template reads the prior value.
	if found && c.SaveAs != "" {
		session = session.Set(c.SaveAs, value)
	}
	return res, session
}
