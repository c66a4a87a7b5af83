package extractor

import (
	"regexp"
)

// findRegex extracts a value from text using a regex pattern.
// If the regex has a capture group, returns the first capture group.
// If no capture group, returns the full match.
func findRegex(body []byte, regex *regexp.Regexp) (string, bool) {
	if regex == nil {
		return "", false
	}
	match := regex.FindSubmatch(body)
	if match == nil {
		return "", false
	}
	if len(match) > 1 {
		return string(match[1]), true
	}
	return string(match[0]), true
}
