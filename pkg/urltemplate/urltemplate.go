package urltemplate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// placeholderRe matches "<name>" and "<type:name>".
var placeholderRe = regexp.MustCompile(`<(?:([A-Za-z_][A-Za-z0-9_]*):)?([A-Za-z_][A-Za-z0-9_]*)>`)

// Params maps placeholder names to their type tag ("" means untyped).
type Params map[string]string

// Has reports whether name is a placeholder of the template.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Parse extracts all placeholders from a URL template.
func Parse(tmpl string) Params {
	out := Params{}
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		out[m[2]] = m[1]
	}
	return out
}

// Expand replaces every placeholder named in values with its percent-encoded value.
// Placeholders without a value are left in place; text outside brackets is never touched.
func Expand(tmpl string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		m := placeholderRe.FindStringSubmatch(match)
		v, ok := values[m[2]]
		if !ok {
			return match
		}
		return EscapeComponent(v)
	})
}

// Remaining returns the names of placeholders still present in s.
func Remaining(s string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		names = append(names, m[2])
	}
	return names
}

// EscapeComponent percent-encodes s for use as a single path segment or query component.
func EscapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Stringify renders an argument value the way it is placed into a URL.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
