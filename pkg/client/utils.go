package client

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// asInt converts a JSON scalar into a non-negative int.
func asInt(v any) int {
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0
		}
		return x
	case int64:
		if x < 0 {
			return 0
		}
		return int(x)
	case float64:
		if x < 0 {
			return 0
		}
		return int(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil || n < 0 {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil || n < 0 {
			return 0
		}
		return n
	default:
		return 0
	}
}

// asLink returns a page link, or "" for null and non-string values.
func asLink(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// asSequence returns the elements of a slice or array payload. Byte slices
// are raw bodies, not sequences.
func asSequence(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil, []byte:
		return nil, false
	case []any:
		return x, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
