package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gi8lino/restgen/pkg/registry"
	"github.com/gi8lino/restgen/pkg/urltemplate"
)

// ErrMissingPathParam is returned when a placeholder of the operation URL received no argument.
var ErrMissingPathParam = errors.New("missing path parameter")

// Args are the named arguments of one call.
type Args map[string]any

// Destination is the bucket an argument key was routed to.
type Destination int

const (
	Dropped Destination = iota
	Path
	Query
	Body
	Seed
)

func (d Destination) String() string {
	switch d {
	case Path:
		return "path"
	case Query:
		return "query"
	case Body:
		return "body"
	case Seed:
		return "seed"
	default:
		return "dropped"
	}
}

// Routed is the outcome of routing the arguments of one call.
type Routed struct {
	URL          string
	Verb         registry.Verb
	Query        map[string]any // keyed by wire name
	Body         any
	HasBody      bool
	Seed         any
	Seeded       bool // the call must not reach the network
	Destinations map[string]Destination
}

// Dropped returns the argument keys that matched no bucket, sorted.
func (r *Routed) Dropped() []string {
	var out []string
	for k, d := range r.Destinations {
		if d == Dropped {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Route classifies every argument key, first match wins: path, query, body, seed.
// Unmatched keys are dropped silently.
func Route(res *registry.ResourceSpec, op *registry.OperationSpec, args Args) (*Routed, error) {
	r := &Routed{
		Verb:         op.Verb,
		Query:        map[string]any{},
		Destinations: make(map[string]Destination, len(args)),
	}

	params := op.PathParams()
	pathValues := map[string]string{}

	var positional map[string]any
	if op.Verb.HasBody() && op.Body.IsPositional() {
		positional = map[string]any{}
		r.Body, r.HasBody = positional, true
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := args[key]

		switch {
		case params.Has(key):
			pathValues[key] = urltemplate.Stringify(value)
			r.Destinations[key] = Path

		case op.Verb == registry.GET && queryAllowed(res, key):
			name, _ := res.QueryName(key)
			r.Query[name] = value
			r.Destinations[key] = Query

		case op.Verb.HasBody() && op.Body.Accepts(key):
			if positional != nil {
				positional[key] = value
			} else {
				r.Body, r.HasBody = value, true
			}
			r.Destinations[key] = Body

		case op.InitialDataParam != "" && key == op.InitialDataParam:
			r.Seed, r.Seeded = value, true
			r.Destinations[key] = Seed

		default:
			r.Destinations[key] = Dropped
		}
	}

	if r.Seeded {
		return r, nil
	}

	r.URL = urltemplate.Expand(op.URL, pathValues)
	if missing := urltemplate.Remaining(r.URL); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (operation %q on %q)", ErrMissingPathParam, strings.Join(missing, ", "), op.Name, res.Name)
	}

	return r, nil
}

// queryAllowed reports whether key is in the resource query allowlist.
func queryAllowed(res *registry.ResourceSpec, key string) bool {
	_, ok := res.QueryName(key)
	return ok
}
