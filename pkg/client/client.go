package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gi8lino/restgen/pkg/fetcher"
	"github.com/gi8lino/restgen/pkg/inflight"
	"github.com/gi8lino/restgen/pkg/registry"
	"github.com/gi8lino/restgen/pkg/router"
)

// ErrorHandler observes every error returned to a caller.
type ErrorHandler func(resource, operation string, err error)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for call tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorHandler installs a hook that sees every error before it is returned.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Client) { c.onError = h }
}

// CallOption configures a single call.
type CallOption func(*callOptions)

type callOptions struct {
	ignoreErrors bool
}

// WithIgnoreErrors turns response errors into an empty result. Transport
// and configuration errors are still returned.
func WithIgnoreErrors() CallOption {
	return func(o *callOptions) { o.ignoreErrors = true }
}

// Client invokes the operations of a registry.
type Client struct {
	reg     *registry.Registry
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
	onError ErrorHandler
}

// New returns a Client that calls operations of reg through f.
func New(reg *registry.Registry, f *fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{
		reg:     reg,
		fetcher: f,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker returns the in-flight tracker of the underlying fetcher.
func (c *Client) Tracker() *inflight.Tracker { return c.fetcher.Tracker }

// Registry returns the registry the client was built with.
func (c *Client) Registry() *registry.Registry { return c.reg }

// Invoke routes args for resource.operation, performs the call and maps the result.
func (c *Client) Invoke(ctx context.Context, resource, operation string, args router.Args, opts ...CallOption) (*Result, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	res, op, err := c.reg.Lookup(resource, operation)
	if err != nil {
		return nil, c.fail(resource, operation, err)
	}

	routed, err := router.Route(res, op, args)
	if err != nil {
		return nil, c.fail(resource, operation, err)
	}
	if dropped := routed.Dropped(); len(dropped) > 0 {
		c.logger.Debug("dropped unmatched arguments",
			"resource", resource,
			"operation", operation,
			"keys", dropped,
		)
	}

	ctor := c.reg.Constructor(res, op)
	load := c.pageLoader(resource, operation, ctor, co)

	if routed.Seeded {
		c.logger.Debug("seeded result", "resource", resource, "operation", operation)
		result, err := mapResult(routed.Seed, op.Pagination, ctor, load)
		if err != nil {
			return nil, c.fail(resource, operation, err)
		}
		return result, nil
	}

	c.logger.Debug("invoking operation",
		"resource", resource,
		"operation", operation,
		"verb", string(routed.Verb),
		"url", routed.URL,
	)
	payload, err := c.fetcher.Do(ctx, fetcher.RequestSpec{
		URL:     routed.URL,
		Method:  string(routed.Verb),
		Query:   routed.Query,
		Body:    routed.Body,
		HasBody: routed.HasBody,
	})
	if err != nil {
		if co.ignoreErrors && fetcher.IsResponseError(err) {
			c.logger.Debug("ignored response error", "resource", resource, "operation", operation, "error", err)
			return &Result{Kind: None}, nil
		}
		return nil, c.fail(resource, operation, err)
	}

	result, err := mapResult(payload, op.Pagination, ctor, load)
	if err != nil {
		return nil, c.fail(resource, operation, err)
	}
	return result, nil
}

// pageLoader returns the loader cursors of this call use to follow page links.
func (c *Client) pageLoader(resource, operation string, ctor registry.Constructor, co callOptions) pageLoader {
	return func(ctx context.Context, link string) (*Page, error) {
		payload, err := c.fetcher.Do(ctx, fetcher.RequestSpec{URL: link, Method: http.MethodGet})
		if err != nil {
			if co.ignoreErrors && fetcher.IsResponseError(err) {
				c.logger.Debug("ignored response error", "resource", resource, "operation", operation, "link", link, "error", err)
				return nil, nil
			}
			return nil, c.fail(resource, operation, err)
		}
		m, ok := payload.(map[string]any)
		if !ok {
			return nil, c.fail(resource, operation, fmt.Errorf("page %s: expected an object, got %T", link, payload))
		}
		page, err := parsePage(m, ctor)
		if err != nil {
			return nil, c.fail(resource, operation, err)
		}
		return page, nil
	}
}

// fail wraps err with the call site and hands it to the error handler.
func (c *Client) fail(resource, operation string, err error) error {
	err = fmt.Errorf("%s.%s: %w", resource, operation, err)
	c.logger.Debug("call failed", "resource", resource, "operation", operation, "error", err)
	if c.onError != nil {
		c.onError(resource, operation, err)
	}
	return err
}

// Resource is a handle on one resource of the registry.
type Resource struct {
	client *Client
	spec   *registry.ResourceSpec
}

// Resource returns a handle on the named resource.
func (c *Client) Resource(name string) (*Resource, error) {
	spec, err := c.reg.Resource(name)
	if err != nil {
		return nil, err
	}
	return &Resource{client: c, spec: spec}, nil
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.spec.Name }

// Callable reports whether the resource exposes any operation.
func (r *Resource) Callable() bool { return r.spec.Callable() }

// Operations returns the operation names of the resource in sorted order.
func (r *Resource) Operations() []string { return r.spec.OperationNames() }

// Call invokes operation on this resource.
func (r *Resource) Call(ctx context.Context, operation string, args router.Args, opts ...CallOption) (*Result, error) {
	return r.client.Invoke(ctx, r.spec.Name, operation, args, opts...)
}
