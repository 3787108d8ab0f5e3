package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gi8lino/restgen/pkg/urltemplate"
	"go.uber.org/multierr"
)

// Canonical operation names.
const (
	OpList     = "list"
	OpCreate   = "create"
	OpRetrieve = "retrieve"
	OpUpdate   = "update"
	OpDelete   = "delete"
)

// CanonicalNames lists the canonical operations in synthesis order.
var CanonicalNames = []string{OpList, OpCreate, OpRetrieve, OpUpdate, OpDelete}

// LookupPlaceholder is appended to the base URL of detail operations.
const LookupPlaceholder = "<lookup>/"

// DefaultBodyName is the argument carrying the body of create and update.
const DefaultBodyName = "data"

// Synthesize expands a resource definition into its operations.
func Synthesize(def Definition) (*ResourceSpec, error) {
	if strings.TrimSpace(def.URL) == "" {
		return nil, fmt.Errorf("resource %q: %w", def.Name, ErrMissingURL)
	}

	base := strings.TrimRight(def.URL, "/") + "/"
	res := &ResourceSpec{
		Name:       def.Name,
		BaseURL:    base,
		Model:      def.Model,
		Pagination: def.Pagination,
		query:      make(map[string]string, len(def.Query)),
		operations: map[string]*OperationSpec{},
	}

	for _, q := range def.Query {
		internal := q.Internal
		if internal == "" {
			internal = q.External
		}
		res.query[q.External] = internal
	}

	var errs error
	switch def.Mode.kind {
	case modeInert:
		return res, nil

	case modeFull:
		for _, name := range CanonicalNames {
			res.operations[name] = canonicalOperation(name, base, def.Pagination)
		}

	case modeCustom:
		for i, o := range def.Mode.overrides {
			op, err := fromOverride(o, base, def.Pagination)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("resource %q: override[%d]: %w", def.Name, i, err))
				continue
			}
			if _, dup := res.operations[op.Name]; dup {
				errs = multierr.Append(errs, fmt.Errorf("resource %q: %w: %q", def.Name, ErrDuplicateOperation, op.Name))
				continue
			}
			res.operations[op.Name] = op
		}
	}

	if errs != nil {
		return nil, errs
	}

	res.callable = true
	return res, nil
}

// canonicalOperation builds one of the five canonical operations.
func canonicalOperation(name, base string, pagination bool) *OperationSpec {
	op := &OperationSpec{Name: name, Pagination: pagination}
	switch name {
	case OpList:
		op.URL, op.Verb = base, GET
	case OpCreate:
		op.URL, op.Verb, op.Body = base, POST, Named(DefaultBodyName)
	case OpRetrieve:
		op.URL, op.Verb = base+LookupPlaceholder, GET
	case OpUpdate:
		op.URL, op.Verb, op.Body = base+LookupPlaceholder, PUT, Named(DefaultBodyName)
	case OpDelete:
		op.URL, op.Verb = base+LookupPlaceholder, DELETE
	}
	op.params = urltemplate.Parse(op.URL)
	return op
}

// fromOverride resolves one Custom mode entry.
func fromOverride(o Override, base string, pagination bool) (*OperationSpec, error) {
	if o.Operation != nil {
		op := *o.Operation
		if op.Name == "" {
			op.Name = o.Name
		}
		if op.Name == "" {
			return nil, ErrMissingName
		}
		if strings.TrimSpace(op.URL) == "" {
			return nil, fmt.Errorf("operation %q: %w", op.Name, ErrMissingURL)
		}
		verb, err := ParseVerb(string(op.Verb))
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", op.Name, err)
		}
		op.Verb = verb
		op.params = urltemplate.Parse(op.URL)
		return &op, nil
	}

	if !slices.Contains(CanonicalNames, o.Name) {
		return nil, fmt.Errorf("%w: %q is not canonical and has no url", ErrInvalidOperation, o.Name)
	}
	op := canonicalOperation(o.Name, base, pagination)
	if o.Pagination != nil {
		op.Pagination = *o.Pagination
	}
	op.InitialDataParam = o.InitialDataParam
	return op, nil
}
