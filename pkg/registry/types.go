package registry

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/gi8lino/restgen/pkg/urltemplate"
)

// Verb is the HTTP method of an operation.
type Verb string

const (
	GET    Verb = http.MethodGet
	POST   Verb = http.MethodPost
	PUT    Verb = http.MethodPut
	DELETE Verb = http.MethodDelete
)

// ParseVerb canonicalizes s ("post", " PUT ") into a Verb.
func ParseVerb(s string) (Verb, error) {
	switch v := Verb(strings.ToUpper(strings.TrimSpace(s))); v {
	case GET, POST, PUT, DELETE:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVerb, s)
	}
}

// HasBody reports whether requests with this verb carry a body.
func (v Verb) HasBody() bool { return v == POST || v == PUT }

type bindingKind int

const (
	bindNone bindingKind = iota
	bindPositional
	bindNamed
)

// BodyBinding describes how call arguments become the request body.
type BodyBinding struct {
	kind   bindingKind
	fields []string
	name   string
}

// NoBody binds nothing.
func NoBody() BodyBinding { return BodyBinding{} }

// Positional assembles the body from the listed argument keys.
func Positional(fields ...string) BodyBinding {
	return BodyBinding{kind: bindPositional, fields: slices.Clone(fields)}
}

// Named uses the whole value of a single argument key as the body.
func Named(name string) BodyBinding {
	return BodyBinding{kind: bindNamed, name: name}
}

// IsPositional reports whether the body is assembled field by field.
func (b BodyBinding) IsPositional() bool { return b.kind == bindPositional }

// IsNamed reports whether the body is taken from one argument.
func (b BodyBinding) IsNamed() bool { return b.kind == bindNamed }

// Name returns the argument key of a Named binding.
func (b BodyBinding) Name() string { return b.name }

// Fields returns the accepted keys of a Positional binding.
func (b BodyBinding) Fields() []string { return slices.Clone(b.fields) }

// Accepts reports whether key is routed into the body by this binding.
func (b BodyBinding) Accepts(key string) bool {
	switch b.kind {
	case bindPositional:
		return slices.Contains(b.fields, key)
	case bindNamed:
		return b.name == key
	default:
		return false
	}
}

func (b BodyBinding) String() string {
	switch b.kind {
	case bindPositional:
		return fmt.Sprintf("positional(%s)", strings.Join(b.fields, ","))
	case bindNamed:
		return fmt.Sprintf("named(%s)", b.name)
	default:
		return "none"
	}
}

type modeKind int

const (
	modeInert modeKind = iota
	modeFull
	modeCustom
)

// OperationMode selects which operations are synthesized for a resource.
type OperationMode struct {
	kind      modeKind
	overrides []Override
}

// Inert registers the resource without any callable operation.
func Inert() OperationMode { return OperationMode{kind: modeInert} }

// Full synthesizes the five canonical operations.
func Full() OperationMode { return OperationMode{kind: modeFull} }

// Custom synthesizes exactly the given overrides.
func Custom(overrides ...Override) OperationMode {
	return OperationMode{kind: modeCustom, overrides: slices.Clone(overrides)}
}

func (m OperationMode) String() string {
	switch m.kind {
	case modeFull:
		return "full"
	case modeCustom:
		return fmt.Sprintf("custom(%d)", len(m.overrides))
	default:
		return "inert"
	}
}

// Override is one entry of a Custom mode. Either it names a canonical operation
// (Operation is nil) or it carries a complete custom operation.
type Override struct {
	Name             string
	Pagination       *bool
	InitialDataParam string
	Operation        *OperationSpec
}

// Canonical tweaks one of the canonical operations.
func Canonical(name string) Override { return Override{Name: name} }

// WithPagination overrides the pagination flag.
func (o Override) WithPagination(enabled bool) Override {
	o.Pagination = &enabled
	return o
}

// WithInitialData declares the argument that seeds the result without a request.
func (o Override) WithInitialData(param string) Override {
	o.InitialDataParam = param
	return o
}

// CustomOperation passes op through unmodified under its own name.
func CustomOperation(op OperationSpec) Override {
	return Override{Name: op.Name, Operation: &op}
}

// OperationSpec is one fully specified callable operation.
type OperationSpec struct {
	Name             string
	URL              string // template with <name> / <type:name> placeholders
	Verb             Verb
	Body             BodyBinding
	Pagination       bool
	InitialDataParam string
	Model            string // constructor name; empty inherits the resource model

	params urltemplate.Params
}

// PathParams returns the placeholders of the operation URL.
func (o *OperationSpec) PathParams() urltemplate.Params { return o.params }

// QueryParam allows the External argument key into the query string under Internal.
type QueryParam struct {
	External string
	Internal string
}

// Definition is the terse description of a resource, before synthesis.
type Definition struct {
	Name       string
	URL        string
	Mode       OperationMode
	Model      string
	Pagination bool
	Query      []QueryParam
}

// ResourceSpec is the synthesized, read-only form of a resource.
type ResourceSpec struct {
	Name       string
	BaseURL    string
	Model      string
	Pagination bool

	callable   bool
	query      map[string]string
	operations map[string]*OperationSpec
}

// Callable reports whether the resource exposes any operation.
func (r *ResourceSpec) Callable() bool { return r.callable }

// QueryName returns the wire name for an allowlisted argument key.
func (r *ResourceSpec) QueryName(key string) (string, bool) {
	v, ok := r.query[key]
	return v, ok
}

// Operation returns the named operation.
func (r *ResourceSpec) Operation(name string) (*OperationSpec, error) {
	if !r.callable {
		return nil, fmt.Errorf("%w: %q", ErrNotCallable, r.Name)
	}
	op, ok := r.operations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on resource %q", ErrUnknownOperation, name, r.Name)
	}
	return op, nil
}

// OperationNames returns all operation names in sorted order.
func (r *ResourceSpec) OperationNames() []string {
	names := make([]string, 0, len(r.operations))
	for name := range r.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
