// Package placeholders interpolates session variables into request templates.
//
// Two spellings are recognised:
//
//	#{name}            Gatling-style expression
//	{{name}}           mustache-style expression
//	{{name|default}}   falls back to default when name is unset
//	{{name|}}          falls back to the empty string
//
// A reference without a default to a variable the session does not hold is an
// error wrapping variables.ErrUndefined.
package placeholders

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/torosent/surgefire/internal/variables"
)

var (
	mustacheRegex = regexp.MustCompile(`\{\{([^}|]+)(?:(\|)([^}]*))?\}\}`)
	hashRegex     = regexp.MustCompile(`#\{([^}]+)\}`)
)

// Apply substitutes every placeholder in template with values from session.
func Apply(template string, session variables.Session) (string, error) {
	if !strings.Contains(template, "{") {
		return template, nil
	}

	var firstErr error
	result := mustacheRegex.ReplaceAllStringFunc(template, func(match string) string {
		parts := mustacheRegex.FindStringSubmatch(match)
		key := strings.TrimSpace(parts[1])
		if val, ok := session.Get(key); ok {
			return val
		}
		if parts[2] == "|" {
			return parts[3]
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: %q", variables.ErrUndefined, key)
		}
		return match
	})

	result = hashRegex.ReplaceAllStringFunc(result, func(match string) string {
		key := strings.TrimSpace(hashRegex.FindStringSubmatch(match)[1])
		if val, ok := session.Get(key); ok {
			return val
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: %q", variables.ErrUndefined, key)
		}
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// ApplyToMap applies placeholders to all values in a map.
func ApplyToMap(values map[string]string, session variables.Session) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		applied, err := Apply(value, session)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = applied
	}
	return out, nil
}

// References returns the variable names a template refers to without a default.
// Used at scenario validation time to report obviously unbound templates.
func References(template string) []string {
	var refs []string
	for _, m := range mustacheRegex.FindAllStringSubmatch(template, -1) {
		if m[2] == "|" {
			continue
		}
		refs = append(refs, strings.TrimSpace(m[1]))
	}
	for _, m := range hashRegex.FindAllStringSubmatch(template, -1) {
		refs = append(refs, strings.TrimSpace(m[1]))
	}
	return refs
}
