// Package extractor reads single values out of HTTP responses for checks.
//
// Lookups report whether the value was present separately from the value
// itself, so callers can distinguish "missing" from "present but empty".
package extractor

import (
	"fmt"
	"net/http"
	"regexp"
)

// Source identifies where in a response a value is read from.
type Source string

const (
	SourceJSONPath Source = "json_path"
	SourceRegex    Source = "regex"
	SourceHeader   Source = "header"
)

// Response is the minimal view of a response an extraction needs.
type Response struct {
	Header http.Header
	Body   []byte
}

// Extractor is a compiled lookup of one value.
type Extractor struct {
	Source     Source
	Expression string

	regex *regexp.Regexp
	path  string
}

// New compiles an extractor for the given source and expression.
func New(source Source, expression string) (*Extractor, error) {
	if expression == "" {
		return nil, fmt.Errorf("%s: expression is required", source)
	}
	e := &Extractor{Source: source, Expression: expression}
	switch source {
	case SourceJSONPath:
		e.path = NormalizeJSONPath(expression)
	case SourceRegex:
		re, err := regexp.Compile(expression)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", expression, err)
		}
		e.regex = re
	case SourceHeader:
		e.path = http.CanonicalHeaderKey(expression)
	default:
		return nil, fmt.Errorf("unsupported extraction source %q", source)
	}
	return e, nil
}

// Find returns the extracted value and whether it was present.
func (e *Extractor) Find(resp Response) (string, bool) {
	if e == nil {
		return "", false
	}
	switch e.Source {
	case SourceJSONPath:
		return findJSONPath(resp.Body, e.path)
	case SourceRegex:
		return findRegex(resp.Body, e.regex)
	case SourceHeader:
		if resp.Header == nil {
			return "", false
		}
		values, ok := resp.Header[e.path]
		if !ok || len(values) == 0 {
			return "", false
		}
		return values[0], true
	default:
		return "", false
	}
}

func (e *Extractor) String() string {
	return fmt.Sprintf("%s(%s)", e.Source, e.Expression)
}
