// Package coerce converts loosely typed bound values into the truthiness,
// numeric and length views the constraint checks compare against. None of the
// helpers panic, whatever shape the value has.
package coerce

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Truthy reports whether value counts as present. nil, false, "", numeric
// zero, NaN, nil pointers and empty collections are falsy.
func Truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case []byte:
		return len(v) > 0
	case json.Number:
		return truthyNumberText(string(v))
	case float64:
		return v != 0 && !math.IsNaN(v)
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Truthy(rv.Elem().Interface())
	case reflect.Chan, reflect.Func:
		return !rv.IsNil()
	default:
		return true
	}
}

func truthyNumberText(raw string) bool {
	f, ok := parseNumber(raw)
	if !ok {
		return raw != ""
	}
	return f != 0
}

// Number coerces value to a finite float64. Strings are trimmed and parsed;
// anything that is not numeric reports false.
func Number(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		return parseNumber(v)
	case []byte:
		return parseNumber(string(v))
	case json.Number:
		return parseNumber(string(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.String:
		return parseNumber(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 0, false
		}
		return Number(rv.Elem().Interface())
	default:
		return 0, false
	}
}

// ParseNumber parses a declaration argument token. Empty, NaN and infinite
// tokens are rejected.
func ParseNumber(raw string) (float64, bool) {
	return parseNumber(raw)
}

func parseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Length returns the length of value: runes for strings, elements for slices,
// arrays and maps. Falsy values and values without a length report 0.
func Length(value any) int {
	if !Truthy(value) {
		return 0
	}
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v)
	case []byte:
		return utf8.RuneCount(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String())
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		return Length(rv.Elem().Interface())
	default:
		return 0
	}
}
