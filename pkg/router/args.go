package router

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gorilla/schema"
)

var encoder = schema.NewEncoder()

// ArgsFromStruct builds call arguments from a struct using its `schema` tags.
// Single values become strings, repeated values become []string.
func ArgsFromStruct(v any) (Args, error) {
	values := map[string][]string{}
	if err := encoder.Encode(v, values); err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	args := make(Args, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
			continue
		case 1:
			args[k] = vs[0]
		default:
			args[k] = slices.Clone(vs)
		}
	}
	return args, nil
}

// Merge returns a copy of a overlaid with b.
func (a Args) Merge(b Args) Args {
	out := make(Args, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}
