// Package variables provides the per-user session that scenario steps read and extend.
package variables

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// ErrUndefined is returned when a step references a variable the session does not hold.
var ErrUndefined = errors.New("session variable is not defined")

// Session is an immutable mapping from variable name to value.
// Every mutation returns a new Session; the receiver is never modified, so a
// Session value may be handed to another goroutine without synchronization.
type Session struct {
	values map[string]string
	rng    *rand.Rand
}

// NewSession returns an empty session.
func NewSession() Session {
	return Session{}
}

// FromMap builds a session holding a copy of values.
func FromMap(values map[string]string) Session {
	if len(values) == 0 {
		return Session{}
	}
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Session{values: copied}
}

// Get retrieves a variable by key. Returns (value, true) if found,
// or ("", false) if the key is not present.
func (s Session) Get(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// MustGet returns the value for key or an error wrapping ErrUndefined.
func (s Session) MustGet(key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUndefined, key)
	}
	return value, nil
}

// Set returns a copy of the session with key bound to value.
func (s Session) Set(key, value string) Session {
	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value
	return Session{values: next, rng: s.rng}
}

// Merge returns a copy of the session with every entry of record bound.
// Entries in record override existing variables.
func (s Session) Merge(record map[string]string) Session {
	if len(record) == 0 {
		return s
	}
	next := make(map[string]string, len(s.values)+len(record))
	for k, v := range s.values {
		next[k] = v
	}
	for k, v := range record {
		next[k] = v
	}
	return Session{values: next, rng: s.rng}
}

// Remove returns a copy of the session without key.
func (s Session) Remove(key string) Session {
	if _, ok := s.values[key]; !ok {
		return s
	}
	next := make(map[string]string, len(s.values))
	for k, v := range s.values {
		if k != key {
			next[k] = v
		}
	}
	return Session{values: next, rng: s.rng}
}

// WithRand returns a copy of the session drawing random values from r.
// The source belongs to the user owning the session and is not locked.
func (s Session) WithRand(r *rand.Rand) Session {
	s.rng = r
	return s
}

// Rand returns the session's random source, or nil when none was attached.
func (s Session) Rand() *rand.Rand {
	return s.rng
}

// Len returns the number of variables held.
func (s Session) Len() int {
	return len(s.values)
}

// Keys returns the variable names in sorted order.
func (s Session) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAll returns a copy of all stored variables.
func (s Session) GetAll() map[string]string {
	result := make(map[string]string, len(s.values))
	for key, value := range s.values {
		result[key] = value
	}
	return result
}

type contextKey struct{}

var sessionKey = contextKey{}

// FromContext retrieves the session attached to ctx.
// Returns an empty session and false if none is attached.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// NewContext returns a new context carrying session.
func NewContext(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey, session)
}
