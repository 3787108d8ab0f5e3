package registry

import (
	"fmt"
	"sort"

	"github.com/gi8lino/restgen/pkg/config"
	"go.uber.org/multierr"
)

// Registry holds all synthesized resources. It is read-only after Build.
type Registry struct {
	resources map[string]*ResourceSpec
	models    Models
}

// Build synthesizes every definition exactly once. All configuration errors are reported together.
func Build(defs []Definition, models Models) (*Registry, error) {
	reg := &Registry{
		resources: make(map[string]*ResourceSpec, len(defs)),
		models:    models,
	}

	var errs error
	for _, def := range defs {
		if _, dup := reg.resources[def.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("resource %q: defined twice", def.Name))
			continue
		}
		res, err := Synthesize(def)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := reg.checkModels(res); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		reg.resources[def.Name] = res
	}

	if errs != nil {
		return nil, errs
	}
	return reg, nil
}

// FromConfig converts the YAML configuration into definitions and builds the registry.
func FromConfig(cfg config.Config, models Models) (*Registry, error) {
	var (
		defs []Definition
		errs error
	)
	for _, name := range cfg.ResourceNames() {
		def, err := DefinitionFromConfig(name, cfg.Resources[name])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	if errs != nil {
		return nil, errs
	}
	return Build(defs, models)
}

// DefinitionFromConfig maps one configured resource onto a Definition.
func DefinitionFromConfig(name string, rc config.Resource) (Definition, error) {
	def := Definition{
		Name:       name,
		URL:        rc.URL,
		Model:      rc.ModelClass,
		Pagination: rc.Pagination,
		Mode:       Inert(),
	}

	for _, q := range rc.QueryParams {
		def.Query = append(def.Query, QueryParam{External: q.Name, Internal: q.Value})
	}

	switch {
	case rc.Viewset.Custom():
		var (
			overrides []Override
			errs      error
		)
		for _, oc := range rc.Viewset.Operations {
			o, err := overrideFromConfig(oc)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("resource %q: operation %q: %w", name, oc.Name, err))
				continue
			}
			overrides = append(overrides, o)
		}
		if errs != nil {
			return Definition{}, errs
		}
		def.Mode = Custom(overrides...)
	case rc.Viewset.Enabled:
		def.Mode = Full()
	}

	return def, nil
}

// overrideFromConfig maps a viewset list entry onto an Override.
func overrideFromConfig(oc config.Operation) (Override, error) {
	if oc.URL == "" {
		o := Canonical(oc.Name)
		o.Pagination = oc.Pagination
		o.InitialDataParam = oc.InitialDataParam
		return o, nil
	}

	verb, err := ParseVerb(oc.RequestType)
	if err != nil {
		return Override{}, err
	}

	op := OperationSpec{
		Name:             oc.Name,
		URL:              oc.URL,
		Verb:             verb,
		InitialDataParam: oc.InitialDataParam,
		Model:            oc.ModelClass,
	}
	if oc.Pagination != nil {
		op.Pagination = *oc.Pagination
	}
	if bp := oc.BodyParams; bp != nil {
		if bp.Name != "" {
			op.Body = Named(bp.Name)
		} else {
			op.Body = Positional(bp.Fields...)
		}
	}
	return CustomOperation(op), nil
}

// checkModels verifies that every model class referenced by res is registered.
func (r *Registry) checkModels(res *ResourceSpec) error {
	var errs error
	if res.Model != "" {
		if _, ok := r.models[res.Model]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("resource %q: %w: %q", res.Name, ErrUnknownModel, res.Model))
		}
	}
	for _, name := range res.OperationNames() {
		op := res.operations[name]
		if op.Model == "" {
			continue
		}
		if _, ok := r.models[op.Model]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("resource %q: operation %q: %w: %q", res.Name, name, ErrUnknownModel, op.Model))
		}
	}
	return errs
}

// Resource returns the named resource.
func (r *Registry) Resource(name string) (*ResourceSpec, error) {
	res, ok := r.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return res, nil
}

// Lookup returns the resource and one of its operations.
func (r *Registry) Lookup(resource, operation string) (*ResourceSpec, *OperationSpec, error) {
	res, err := r.Resource(resource)
	if err != nil {
		return nil, nil, err
	}
	op, err := res.Operation(operation)
	if err != nil {
		return nil, nil, err
	}
	return res, op, nil
}

// Constructor returns the constructor applied to results of op, or nil for raw results.
func (r *Registry) Constructor(res *ResourceSpec, op *OperationSpec) Constructor {
	name := op.Model
	if name == "" {
		name = res.Model
	}
	if name == "" {
		return nil
	}
	return r.models[name]
}

// Names returns all resource names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
