package metrics

import (
	"strconv"
	"time"
)

// NoStatus labels outcomes that never received a response.
const NoStatus = "none"

// Outcome is the immutable record of one executed request step.
type Outcome struct {
	Scenario   string
	Step       string
	Start      time.Time
	Duration   time.Duration
	Success    bool
	StatusCode int
	Error      string
}

// Millis returns the duration in whole milliseconds.
func (o Outcome) Millis() int64 {
	return o.Duration.Milliseconds()
}

// Status returns the status code as text, or NoStatus.
func (o Outcome) Status() string {
	if o.StatusCode == 0 {
		return NoStatus
	}
	return strconv.Itoa(o.StatusCode)
}
