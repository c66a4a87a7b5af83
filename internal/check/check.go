// Package check validates responses against declared expectations and
// extracts values from them into the session.
package check

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/torosent/surgefire/internal/extractor"
)

// Kind selects what part of the response a check reads.
type Kind string

const (
	KindStatus   Kind = "status"
	KindJSONPath Kind = "json_path"
	KindRegex    Kind = "regex"
	KindHeader   Kind = "header"
)

// Condition is the validation applied to the value a check reads.
type Condition string

const (
	ConditionExists    Condition = "exists"
	ConditionNotExists Condition = "not_exists"
	ConditionIs        Condition = "is"
	ConditionIn        Condition = "in"
)

// Response is what the evaluator needs from a completed request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Check is one validation, with an optional extraction, over a response.
//
// For KindStatus the allowed codes are Statuses and the condition is always
// membership. For the other kinds Expression selects the value and Condition
// decides what counts as a pass; Expected is a session template compared with
// ConditionIs. When SaveAs is set the read value is written to the session
// whenever it was found, whatever the validation result.
type Check struct {
	Kind       Kind
	Expression string
	Condition  Condition
	Expected   string
	Statuses   []int
	SaveAs     string

	extractor *extractor.Extractor
}

// Status returns a status-membership check.
func Status(codes ...int) Check {
	return Check{Kind: KindStatus, Condition: ConditionIn, Statuses: codes}
}

// JSONPath returns a json_path check with the given condition.
func JSONPath(path string, cond Condition) Check {
	return Check{Kind: KindJSONPath, Expression: path, Condition: cond}
}

// Is sets the expected value and switches the condition to equality.
func (c Check) Is(expected string) Check {
	c.Condition = ConditionIs
	c.Expected = expected
	return c
}

// Save sets the session variable the read value is stored into.
func (c Check) Save(name string) Check {
	c.SaveAs = name
	return c
}

// Compile validates the check and prepares its extractor.
func (c *Check) Compile() error {
	switch c.Kind {
	case KindStatus:
		if len(c.Statuses) == 0 {
			return fmt.Errorf("status check requires at least one status code")
		}
		for _, code := range c.Statuses {
			if code < 100 || code > 599 {
				return fmt.Errorf("status check: invalid status code %d", code)
			}
		}
		if c.Condition == "" {
			c.Condition = ConditionIn
		}
		if c.Condition != ConditionIn {
			return fmt.Errorf("status check: unsupported condition %q", c.Condition)
		}
		return nil
	case KindJSONPath, KindRegex, KindHeader:
	default:
		return fmt.Errorf("unsupported check kind %q", c.Kind)
	}

	if c.Condition == "" {
		c.Condition = ConditionExists
	}
	switch c.Condition {
	case ConditionExists, ConditionIs:
	case ConditionNotExists:
		if c.SaveAs != "" {
			return fmt.Errorf("%s check: save_as cannot be combined with not_exists", c.Kind)
		}
	default:
		return fmt.Errorf("%s check: unsupported condition %q", c.Kind, c.Condition)
	}

	ex, err := extractor.New(extractor.Source(c.Kind), c.Expression)
	if err != nil {
		return fmt.Errorf("%s check: %w", c.Kind, err)
	}
	c.extractor = ex
	return nil
}

// String renders the check for reports and logs.
func (c Check) String() string {
	var b strings.Builder
	if c.Kind == KindStatus {
		codes := make([]string, len(c.Statuses))
		for i, code := range c.Statuses {
			codes[i] = strconv.Itoa(code)
		}
		fmt.Fprintf(&b, "status in [%s]", strings.Join(codes, ","))
	} else {
		fmt.Fprintf(&b, "%s(%s) %s", c.Kind, c.Expression, c.Condition)
		if c.Condition == ConditionIs {
			fmt.Fprintf(&b, " %q", c.Expected)
		}
	}
	if c.SaveAs != "" {
		fmt.Fprintf(&b, " save_as %s", c.SaveAs)
	}
	return b.String()
}

// HasStatus reports whether any of checks is a status check.
func HasStatus(checks []Check) bool {
	for _, c := range checks {
		if c.Kind == KindStatus {
			return true
		}
	}
	return false
}

// DefaultStatuses are accepted when a request declares no status check.
func DefaultStatuses() []int {
	codes := make([]int, 0, 101)
	for code := 200; code < 300; code++ {
		codes = append(codes, code)
	}
	return append(codes, http.StatusNotModified)
}
