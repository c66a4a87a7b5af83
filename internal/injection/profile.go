// Package injection describes virtual-user arrival profiles and turns them
// into time-ordered start offsets.
//
// A Profile is a list of phases run back to back. Rate-driven phases
// (ConstantRate, RampRate) share one cumulative arrival counter across the
// whole profile, so fractional arrivals left over at the end of one phase
// carry into the next and are never lost.
package injection

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// PhaseType identifies an injection step.
type PhaseType string

const (
	PhaseAtOnce       PhaseType = "at_once"
	PhaseRampUsers    PhaseType = "ramp_users"
	PhaseConstantRate PhaseType = "constant_rate"
	PhaseRampRate     PhaseType = "ramp_rate"
	PhaseNothingFor   PhaseType = "nothing_for"
)

// ParsePhaseType maps configuration spellings, including the Gatling DSL
// names, to a PhaseType.
func ParsePhaseType(s string) (PhaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "at_once", "atonce", "at_once_users", "atonceusers":
		return PhaseAtOnce, nil
	case "ramp_users", "rampusers", "ramp":
		return PhaseRampUsers, nil
	case "constant_rate", "constantrate", "constant_users_per_sec", "constantuserspersec":
		return PhaseConstantRate, nil
	case "ramp_rate", "ramprate", "ramp_users_per_sec", "rampuserspersec":
		return PhaseRampRate, nil
	case "nothing_for", "nothingfor", "pause":
		return PhaseNothingFor, nil
	default:
		return "", fmt.Errorf("unknown injection phase %q", s)
	}
}

// Phase is one step of a profile. Which fields apply depends on Type.
type Phase struct {
	Type     PhaseType
	Users    int
	Rate     float64
	ToRate   float64
	Duration time.Duration
}

// AtOnce starts n users at the beginning of the phase.
func AtOnce(n int) Phase {
	return Phase{Type: PhaseAtOnce, Users: n}
}

// RampUsers starts n users evenly spaced over d.
func RampUsers(n int, d time.Duration) Phase {
	return Phase{Type: PhaseRampUsers, Users: n, Duration: d}
}

// ConstantRate starts users at a fixed rate per second for d.
func ConstantRate(rate float64, d time.Duration) Phase {
	return Phase{Type: PhaseConstantRate, Rate: rate, Duration: d}
}

// RampRate starts users at a rate moving linearly from one value to another over d.
func RampRate(from, to float64, d time.Duration) Phase {
	return Phase{Type: PhaseRampRate, Rate: from, ToRate: to, Duration: d}
}

// NothingFor delays the following phases by d.
func NothingFor(d time.Duration) Phase {
	return Phase{Type: PhaseNothingFor, Duration: d}
}

func (p Phase) String() string {
	switch p.Type {
	case PhaseAtOnce:
		return fmt.Sprintf("atOnce(%d)", p.Users)
	case PhaseRampUsers:
		return fmt.Sprintf("rampUsers(%d) during %s", p.Users, p.Duration)
	case PhaseConstantRate:
		return fmt.Sprintf("constantRate(%g/s) during %s", p.Rate, p.Duration)
	case PhaseRampRate:
		return fmt.Sprintf("rampRate(%g/s to %g/s) during %s", p.Rate, p.ToRate, p.Duration)
	case PhaseNothingFor:
		return fmt.Sprintf("nothingFor(%s)", p.Duration)
	default:
		return string(p.Type)
	}
}

func (p Phase) validate() error {
	switch p.Type {
	case PhaseAtOnce:
		if p.Users < 0 {
			return fmt.Errorf("users must not be negative, got %d", p.Users)
		}
	case PhaseRampUsers:
		if p.Users < 0 {
			return fmt.Errorf("users must not be negative, got %d", p.Users)
		}
		if p.Duration < 0 {
			return errors.New("duration must not be negative")
		}
	case PhaseConstantRate:
		if p.Rate < 0 || math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0) {
			return fmt.Errorf("rate must be a non-negative number, got %g", p.Rate)
		}
		if p.Duration <= 0 {
			return errors.New("duration must be greater than 0")
		}
	case PhaseRampRate:
		for _, r := range []float64{p.Rate, p.ToRate} {
			if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
				return fmt.Errorf("rate must be a non-negative number, got %g", r)
			}
		}
		if p.Duration <= 0 {
			return errors.New("duration must be greater than 0")
		}
	case PhaseNothingFor:
		if p.Duration < 0 {
			return errors.New("duration must not be negative")
		}
	default:
		return fmt.Errorf("unknown phase type %q", p.Type)
	}
	return nil
}

// arrivals is the expected number of rate-driven arrivals in the phase.
func (p Phase) arrivals() float64 {
	secs := p.Duration.Seconds()
	switch p.Type {
	case PhaseConstantRate:
		return p.Rate * secs
	case PhaseRampRate:
		return (p.Rate + p.ToRate) / 2 * secs
	default:
		return 0
	}
}

// Profile is an ordered list of phases executed back to back.
type Profile struct {
	Phases []Phase
}

// NewProfile returns a profile of the given phases.
func NewProfile(phases ...Phase) Profile {
	return Profile{Phases: phases}
}

// Validate reports the first malformed phase.
func (p Profile) Validate() error {
	if len(p.Phases) == 0 {
		return errors.New("injection profile requires at least one phase")
	}
	for i, ph := range p.Phases {
		if err := ph.validate(); err != nil {
			return fmt.Errorf("phases[%d] %s: %w", i, ph.Type, err)
		}
	}
	return nil
}

// Duration is the time from profile start to the end of its last phase.
func (p Profile) Duration() time.Duration {
	var total time.Duration
	for _, ph := range p.Phases {
		total += ph.Duration
	}
	return total
}

// TotalUsers returns the exact number of users Schedule will yield.
func (p Profile) TotalUsers() int {
	total := 0
	var counter float64
	for _, ph := range p.Phases {
		switch ph.Type {
		case PhaseAtOnce, PhaseRampUsers:
			total += ph.Users
		case PhaseConstantRate, PhaseRampRate:
			counter = snap(counter + ph.arrivals())
		}
	}
	return total + int(math.Ceil(counter))
}

func (p Profile) String() string {
	parts := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		parts[i] = ph.String()
	}
	return strings.Join(parts, ", ")
}

// snap removes floating point noise from cumulative arrival counts so that,
// for example, 0.1/s for 30s counts as exactly 3 arrivals.
func snap(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
