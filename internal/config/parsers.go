// Package config loads surgefire run configurations from presets, files and
// flags, validates them and builds the scenarios, profiles and assertions a
// run executes.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// lookupSetting returns the first candidate key present in settings, trying
// each key as written and lowercased.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func blank(value interface{}) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func asString(value interface{}) (string, error) {
	if s, err := cast.ToStringE(value); err == nil {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

// asInt accepts any number or numeric string; blank means zero.
func asInt(value interface{}) (int, error) {
	if blank(value) {
		return 0, nil
	}
	if s, ok := value.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return cast.ToIntE(value)
}

func asUint64(value interface{}) (uint64, error) {
	if blank(value) {
		return 0, nil
	}
	if s, ok := value.(string); ok {
		return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	}
	return cast.ToUint64E(value)
}

func asFloat64(value interface{}) (float64, error) {
	if blank(value) {
		return 0, nil
	}
	if s, ok := value.(string); ok {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return cast.ToFloat64E(value)
}

func asBool(value interface{}) (bool, error) {
	if blank(value) {
		return false, nil
	}
	if s, ok := value.(string); ok {
		return strconv.ParseBool(strings.TrimSpace(s))
	}
	return cast.ToBoolE(value)
}

// asDuration parses Go duration strings. Bare numbers, quoted or not, are
// seconds, matching how the simulations express pauses and phase lengths.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(v)
	default:
		secs, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, fmt.Errorf("unsupported duration type %T", value)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
}

func asStringMap(value interface{}) (map[string]string, error) {
	if value == nil {
		return nil, nil
	}
	m, err := cast.ToStringMapStringE(value)
	if err != nil {
		return nil, fmt.Errorf("expected a map of strings, got %T", value)
	}
	return m, nil
}

// asStringSlice keeps a lone string whole; assertions contain spaces.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	default:
		return cast.ToStringSliceE(v)
	}
}

// asIntSlice accepts a number, a list of numbers or "200,304".
func asIntSlice(value interface{}) ([]int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		var out []int
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			n, err := asInt(part)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case []interface{}, []int:
		return cast.ToIntSliceE(v)
	default:
		n, err := asInt(v)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
}

func toInterfaceSlice(value interface{}) ([]interface{}, error) {
	if value == nil {
		return nil, nil
	}
	items, err := cast.ToSliceE(value)
	if err != nil {
		return nil, fmt.Errorf("expected list, got %T", value)
	}
	return items, nil
}

// toStringKeyMap decodes a map and lowercases its keys.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	out := make(map[string]interface{}, len(m))
	for key, val := range m {
		out[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return out, nil
}
