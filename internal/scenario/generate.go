package scenario

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/surgefire/internal/placeholders"
	"github.com/torosent/surgefire/internal/variables"
)

// Generator produces a value for a session variable. Generators are shared by
// every virtual user and must be safe for concurrent use.
type Generator func(variables.Session) (string, error)

// Assignment binds the output of a generator to a session variable.
type Assignment struct {
	Name      string
	Generator Generator
}

// RandomInt draws uniformly from [min, max) using the session's random
// source when it has one.
func RandomInt(min, max int64) Generator {
	return func(s variables.Session) (string, error) {
		if max <= min {
			return strconv.FormatInt(min, 10), nil
		}
		var n int64
		if r := s.Rand(); r != nil {
			n = r.Int64N(max - min)
		} else {
			n = rand.Int64N(max - min)
		}
		return strconv.FormatInt(min+n, 10), nil
	}
}

// UUID returns a random (version 4) UUID. With a session random source the
// sequence is reproducible.
func UUID() Generator {
	return func(s variables.Session) (string, error) {
		r := s.Rand()
		if r == nil {
			return uuid.NewString(), nil
		}
		id, err := uuid.NewRandomFromReader(randReader{r})
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

// ULID returns a lexically sortable unique identifier. Its time prefix makes
// it unique per call even when the entropy is seeded.
func ULID() Generator {
	return func(s variables.Session) (string, error) {
		r := s.Rand()
		if r == nil {
			return ulid.Make().String(), nil
		}
		id, err := ulid.New(ulid.Now(), randReader{r})
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

// randReader adapts a math/rand source to io.Reader.
type randReader struct{ r *rand.Rand }

func (rr randReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := rr.r.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

// Template interpolates t against the session as it stands when the
// assignment runs, including variables set earlier in the same step.
func Template(t string) Generator {
	return func(s variables.Session) (string, error) {
		return placeholders.Apply(t, s)
	}
}

// Constant always returns v.
func Constant(v string) Generator {
	return func(variables.Session) (string, error) {
		return v, nil
	}
}

// ParseGenerator builds a generator from its configuration name.
// min and max apply to random_int; template applies to template.
func ParseGenerator(kind string, min, max int64, template string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "random_int", "randomint", "random":
		if max == 0 && min == 0 {
			max = 100000
		}
		if max <= min {
			return nil, fmt.Errorf("random_int max %d must be greater than min %d", max, min)
		}
		return RandomInt(min, max), nil
	case "uuid":
		return UUID(), nil
	case "ulid":
		return ULID(), nil
	case "template":
		if template == "" {
			return nil, errors.New("template generator requires a template")
		}
		return Template(template), nil
	case "", "constant", "value":
		return Constant(template), nil
	default:
		return nil, fmt.Errorf("unknown generator %q (want random_int, uuid, ulid, template or constant)", kind)
	}
}

// Set returns an Exec step applying assignments in order.
func Set(name string, assignments ...Assignment) *Exec {
	list := append([]Assignment(nil), assignments...)
	return &Exec{
		Name: name,
		Fn: func(s variables.Session) (variables.Session, error) {
			for _, a := range list {
				if a.Generator == nil {
					return s, fmt.Errorf("variable %q has no generator", a.Name)
				}
				v, err := a.Generator(s)
				if err != nil {
					return s, fmt.Errorf("variable %q: %w", a.Name, err)
				}
				s = s.Set(a.Name, v)
			}
			return s, nil
		},
	}
}

// Set appends an assignment step.
func (b *Builder) Set(name string, assignments ...Assignment) *Builder {
	b.steps = append(b.steps, Set(name, assignments...))
	return b
}
