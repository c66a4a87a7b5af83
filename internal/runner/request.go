package runner

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/torosent/surgefire/internal/placeholders"
	"github.com/torosent/surgefire/internal/scenario"
	"github.com/torosent/surgefire/internal/transport"
	"github.com/torosent/surgefire/internal/variables"
)

// buildRequest interpolates a request step against the session. Any
// reference to an undefined variable fails the build.
func buildRequest(baseURL string, defaults map[string]string, step *scenario.Request, session variables.Session) (*transport.Request, error) {
	path, err := placeholders.Apply(step.Path, session)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	target := resolveURL(baseURL, path)
	if _, err := url.Parse(target); err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", target, err)
	}

	if len(step.Query) > 0 {
		pairs := make([]string, 0, len(step.Query))
		for _, q := range step.Query {
			value, err := placeholders.Apply(q.Value, session)
			if err != nil {
				return nil, fmt.Errorf("query %s: %w", q.Name, err)
			}
			pairs = append(pairs, url.QueryEscape(q.Name)+"="+url.QueryEscape(value))
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + strings.Join(pairs, "&")
	}

	header := make(http.Header, len(defaults)+len(step.Headers))
	for k, v := range defaults {
		header.Set(k, v)
	}
	stepHeaders, err := placeholders.ApplyToMap(step.Headers, session)
	if err != nil {
		return nil, fmt.Errorf("header %w", err)
	}
	for k, v := range stepHeaders {
		header.Set(k, v)
	}
	for k, values := range header {
		for _, v := range values {
			if strings.ContainsAny(v, "\r\n") {
				return nil, fmt.Errorf("header %s: value contains a line break", k)
			}
		}
	}

	var body []byte
	if step.Body != "" {
		applied, err := placeholders.Apply(step.Body, session)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		body = []byte(applied)
	}

	return &transport.Request{
		Name:   step.Name,
		Method: step.Method,
		URL:    target,
		Header: header,
		Body:   body,
	}, nil
}

func resolveURL(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if baseURL == "" {
		return path
	}
	return baseURL + "/" + strings.TrimPrefix(path, "/")
}
