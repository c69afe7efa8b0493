package rules

import (
	"reflect"
	"strings"
)

// EvaluateCondition reports whether every condition key in when holds for
// ctx. Keys starting with "$" are skipped. A nil expectation requires the
// context value to be absent or nil; a {equals: v} mapping compares against
// v; any other expectation is compared directly. An empty when matches.
func EvaluateCondition(when map[string]any, ctx map[string]any) bool {
	for key, expected := range when {
		if strings.HasPrefix(key, reservedPrefix) {
			continue
		}
		actual := ctx[key]

		if expected == nil {
			if actual != nil {
				return false
			}
			continue
		}

		if m, ok := expected.(map[string]any); ok {
			if v, has := m[EqualsKey]; has {
				if !strictEqual(actual, v) {
					return false
				}
				continue
			}
		}

		if !strictEqual(actual, expected) {
			return false
		}
	}
	return true
}

// strictEqual compares scalars by value. Numbers of any Go kind compare
// numerically so that YAML ints and JSON floats agree. Maps, slices and
// other non-comparable values are never equal.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	af, aNum := toFloat64(a)
	bf, bNum := toFloat64(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Pointer:
		return false
	}
	return a == b
}

func toFloat64(v any) (float64, bool) {
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
	default:
		return 0, false
	}
}
