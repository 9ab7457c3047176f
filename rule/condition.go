package rule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/cascade/event"
)

// Matches reports whether the payload satisfies every condition. It is a pure
// function: no side effects, no errors. An empty condition list matches any
// payload.
func Matches(conditions []Condition, payload map[string]any) bool {
	for _, c := range conditions {
		if !matchOne(c, payload) {
			return false
		}
	}
	return true
}

func matchOne(c Condition, payload map[string]any) bool {
	val, found := event.Lookup(payload, c.Field)

	// An absent field satisfies only not_exists.
	if !found {
		return c.Operator == OpNotExists
	}

	switch c.Operator {
	case OpExists:
		return true
	case OpNotExists:
		return false
	case OpEquals:
		return looseEqual(val, c.Value)
	case OpNotEquals:
		return !looseEqual(val, c.Value)
	case OpContains:
		return strings.Contains(stringify(val), stringify(c.Value))
	case OpNotContains:
		return !strings.Contains(stringify(val), stringify(c.Value))
	case OpGreaterThan:
		l, lok := toNumber(val)
		r, rok := toNumber(c.Value)
		return lok && rok && l > r
	case OpLessThan:
		l, lok := toNumber(val)
		r, rok := toNumber(c.Value)
		return lok && rok && l < r
	case OpIn:
		return inSet(val, c.Value)
	case OpNotIn:
		set, ok := asSlice(c.Value)
		// A non-array comparison value evaluates false, never errors.
		if !ok {
			return false
		}
		return !inSlice(val, set)
	default:
		return false
	}
}

// looseEqual compares with numeric-string coercion: values that both parse as
// numbers compare numerically, so "5" equals 5. Everything else falls back to
// string representation equality.
func looseEqual(a, b any) bool {
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok {
		return an == bn
	}
	return stringify(a) == stringify(b)
}

func inSet(val, comparison any) bool {
	set, ok := asSlice(comparison)
	if !ok {
		return false
	}
	return inSlice(val, set)
}

func inSlice(val any, set []any) bool {
	for _, member := range set {
		if looseEqual(val, member) {
			return true
		}
	}
	return false
}

// asSlice normalizes array-shaped comparison values. JSON decoding produces
// []any; rules built in Go code may carry typed slices.
func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
