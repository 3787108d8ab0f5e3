package templates

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// TemplateFuncMap returns all helper functions for output templates.
func TemplateFuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["setany"] = setany
	fm["dig"] = templateDig
	fm["field"] = templateField
	fm["sortedKeys"] = templateSortedKeys
	fm["formatDate"] = formatDate
	fm["json"] = templateJSON
	return fm
}

// setany sets m[key] = val for map[string]any and returns the map.
func setany(m map[string]any, key string, val any) map[string]any {
	m[key] = val
	return m
}

// templateDig returns the string value of m[key] if it exists and is a scalar.
// If m is itself a string, it is returned directly.
func templateDig(m any, key string) string {
	switch v := m.(type) {
	case map[string]any:
		switch val := v[key].(type) {
		case string:
			return val
		case json.Number:
			return val.String()
		case bool:
			return fmt.Sprint(val)
		}
	case string:
		return v
	}
	return ""
}

// templateField follows a dotted path ("owner.name") through nested maps.
func templateField(m any, path string) any {
	cur := m
	for part := range strings.SplitSeq(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

// templateSortedKeys returns the keys of m in sorted order.
func templateSortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatDate parses an RFC 3339 timestamp and returns it formatted using layout.
// If parsing fails, the original string is returned.
func formatDate(input, layout string) string {
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(input))
	if err != nil {
		return input
	}
	return parsed.Format(layout)
}

// templateJSON encodes v as compact JSON.
func templateJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
