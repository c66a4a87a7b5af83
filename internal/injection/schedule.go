package injection

import (
	"math"
	"time"
)

type segment struct {
	phase    Phase
	start    time.Duration
	gStart   float64
	gEnd     float64
	accel    float64
	fromRate float64
}

// Schedule lazily yields start offsets of a profile in non-decreasing order.
// It is not safe for concurrent use; each consumer calls Profile.Schedule.
type Schedule struct {
	segments []segment
	seg      int
	next     int64
	started  bool
}

// Schedule compiles the profile into a fresh iterator positioned at the start.
func (p Profile) Schedule() *Schedule {
	s := &Schedule{}
	var offset time.Duration
	var counter float64
	for _, ph := range p.Phases {
		seg := segment{phase: ph, start: offset}
		switch ph.Type {
		case PhaseConstantRate, PhaseRampRate:
			seg.gStart = counter
			counter = snap(counter + ph.arrivals())
			seg.gEnd = counter
			seg.fromRate = ph.Rate
			if ph.Type == PhaseRampRate && ph.Duration > 0 {
				seg.accel = (ph.ToRate - ph.Rate) / (2 * ph.Duration.Seconds())
			}
		}
		s.segments = append(s.segments, seg)
		offset += ph.Duration
	}
	return s
}

// Next returns the offset from profile start at which the next user starts.
// ok is false once the profile is exhausted.
func (s *Schedule) Next() (offset time.Duration, ok bool) {
	for s.seg < len(s.segments) {
		seg := &s.segments[s.seg]
		if !s.started {
			s.started = true
			s.next = 0
			if seg.phase.Type == PhaseConstantRate || seg.phase.Type == PhaseRampRate {
				s.next = int64(math.Ceil(seg.gStart))
			}
		}
		if at, ok := seg.at(s.next); ok {
			s.next++
			return at, true
		}
		s.seg++
		s.started = false
	}
	return 0, false
}

// at returns the start offset of arrival i within the segment. For rate
// segments i is the absolute value of the profile's arrival counter.
func (seg *segment) at(i int64) (time.Duration, bool) {
	ph := seg.phase
	switch ph.Type {
	case PhaseAtOnce:
		if i >= int64(ph.Users) {
			return 0, false
		}
		return seg.start, true
	case PhaseRampUsers:
		if i >= int64(ph.Users) {
			return 0, false
		}
		step := float64(ph.Duration) / float64(ph.Users)
		return seg.start + time.Duration(float64(i)*step), true
	case PhaseConstantRate, PhaseRampRate:
		k := float64(i)
		if k >= seg.gEnd {
			return 0, false
		}
		return seg.start + seg.arrivalTime(k-seg.gStart), true
	default:
		return 0, false
	}
}

// arrivalTime solves accel*t^2 + fromRate*t = x for the smallest t >= 0.
// The rationalized form covers constant rates (accel == 0) and ramps
// starting from zero without dividing by either.
func (seg *segment) arrivalTime(x float64) time.Duration {
	if x <= 0 {
		return 0
	}
	b := seg.fromRate
	disc := b*b + 4*seg.accel*x
	if disc < 0 {
		disc = 0
	}
	denom := b + math.Sqrt(disc)
	if denom <= 0 {
		return 0
	}
	secs := 2 * x / denom
	d := time.Duration(secs * float64(time.Second))
	if d > seg.phase.Duration {
		d = seg.phase.Duration
	}
	return d
}

// Offsets drains a fresh schedule of p. Intended for small profiles and tests.
func (p Profile) Offsets() []time.Duration {
	var out []time.Duration
	s := p.Schedule()
	for {
		at, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, at)
	}
}
