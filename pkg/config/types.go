package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of a resource definition file.
type Config struct {
	BaseURL       string              `yaml:"baseURL"`       // origin for relative resource URLs
	SkipTLSVerify *bool               `yaml:"skipTLSVerify"` // optional; defaults to false
	Timeout       time.Duration       `yaml:"timeout"`       // 0 means no client-side timeout
	CSRF          CSRF                `yaml:"csrf"`
	Connections   Connections         `yaml:"connections"`
	Resources     map[string]Resource `yaml:"resources" validate:"dive"`
}

// CSRF names the cookie the anti-forgery token is read from and the header it is sent in.
type CSRF struct {
	Cookie string `yaml:"cookie"`
	Header string `yaml:"header"`
}

// Connections tunes HTTP connection reuse. Zero values keep the client defaults.
type Connections struct {
	MaxIdlePerHost int           `yaml:"maxIdlePerHost" validate:"gte=0"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" validate:"gte=0"`
	DialTimeout    time.Duration `yaml:"dialTimeout" validate:"gte=0"`
}

// Resource is the terse description of one backend collection.
type Resource struct {
	URL         string       `yaml:"url" validate:"required"`
	Viewset     Viewset      `yaml:"viewset"`
	ModelClass  string       `yaml:"modelClass"`
	Pagination  bool         `yaml:"pagination"`
	QueryParams []QueryParam `yaml:"queryParams" validate:"dive"`
}

// Viewset is either a bool (all canonical operations or none) or a list of operations.
type Viewset struct {
	Enabled    bool
	Operations []Operation `validate:"dive"`
}

// UnmarshalYAML accepts "viewset: true|false" and "viewset: [ ... ]".
func (v *Viewset) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&v.Enabled)
	case yaml.SequenceNode:
		v.Enabled = false
		return node.Decode(&v.Operations)
	default:
		return fmt.Errorf("line %d: viewset must be a bool or a list of operations", node.Line)
	}
}

// Custom reports whether the viewset was given as an explicit operation list.
func (v Viewset) Custom() bool { return v.Operations != nil }

// Operation is an entry of a viewset list. Entries named after a canonical operation
// only tweak it; all other entries describe a custom operation.
type Operation struct {
	Name             string      `yaml:"name" validate:"required"`
	URL              string      `yaml:"url"`
	RequestType      string      `yaml:"requestType"`
	BodyParams       *BodyParams `yaml:"bodyParams"`
	Pagination       *bool       `yaml:"pagination"`
	InitialDataParam string      `yaml:"initialDataParam"`
	ModelClass       string      `yaml:"modelClass"`
}

// BodyParams is a list of accepted body fields or {name: x} for a single whole-body argument.
type BodyParams struct {
	Fields []string
	Name   string
}

// UnmarshalYAML accepts "bodyParams: [a, b]" and "bodyParams: {name: data}".
func (b *BodyParams) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&b.Fields)
	case yaml.MappingNode:
		var named struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&named); err != nil {
			return err
		}
		if named.Name == "" {
			return fmt.Errorf("line %d: bodyParams.name must not be empty", node.Line)
		}
		b.Name = named.Name
		return nil
	default:
		return fmt.Errorf("line %d: bodyParams must be a list or {name: ...}", node.Line)
	}
}

// QueryParam allows a caller argument into the query string. Value, when set,
// is the name sent on the wire.
type QueryParam struct {
	Name  string `yaml:"name" validate:"required"`
	Value string `yaml:"value"`
}

// UnmarshalYAML accepts "search" and "{name: pageSize, value: page_size}".
func (q *QueryParam) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&q.Name)
	}
	type plain QueryParam
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*q = QueryParam(p)
	return nil
}
