package extractor

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// NormalizeJSONPath rewrites $.a.b[0].c style paths to gjson syntax (a.b.0.c).
// A bare "$" selects the whole document.
func NormalizeJSONPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "$" {
		return "@this"
	}
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	path = bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(path, ".")
}

// findJSONPath extracts a value from JSON using gjson.
// JSON null counts as absent.
func findJSONPath(body []byte, path string) (string, bool) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", false
	}
	result := gjson.GetBytes(body, path)
	if !result.Exists() || result.Type == gjson.Null {
		return "", false
	}
	return result.String(), true
}
