package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/gi8lino/restgen/internal/flag"
	"github.com/gi8lino/restgen/internal/logging"
	"github.com/gi8lino/restgen/internal/templates"
	"github.com/gi8lino/restgen/pkg/client"
	"github.com/gi8lino/restgen/pkg/config"
	"github.com/gi8lino/restgen/pkg/fetcher"
	"github.com/gi8lino/restgen/pkg/registry"
	"github.com/gi8lino/restgen/pkg/router"

	"github.com/containeroo/resolver"
	"github.com/containeroo/tinyflags"
	"github.com/joho/godotenv"
)

// Run executes one restgen invocation. Results go to stdout, logs to stderr.
func Run(ctx context.Context, version, commit string, args []string, stdout, stderr io.Writer, getEnv func(string) string) error {
	// Create a new context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse command-line flags
	flags, err := flag.ParseArgs(version, args, stdout, getEnv)
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(stdout, err.Error()) // nolint:errcheck
			return nil
		}
		return fmt.Errorf("parsing error: %w", err)
	}

	// Setup logger
	logger := logging.SetupLogger(flags.LogFormat, flags.Debug, stderr)
	logger.Debug("starting restgen", "version", version, "commit", commit)

	// Load environment file before references in the config are resolved
	if flags.EnvFile != "" {
		if err := godotenv.Load(flags.EnvFile); err != nil {
			return fmt.Errorf("loading env file error: %w", err)
		}
		logger.Debug("loaded env file", "path", flags.EnvFile)
	}

	// Load config
	cfg, err := config.LoadConfig(flags.Config)
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}

	// Validate config
	if err := config.ValidateConfig(&cfg); err != nil {
		return fmt.Errorf("validating config error: %w", err)
	}

	// Build registry
	reg, err := registry.FromConfig(cfg, passthroughModels(cfg))
	if err != nil {
		return fmt.Errorf("building registry error: %w", err)
	}

	if flags.List {
		return listResources(stdout, reg)
	}

	// Setup fetcher and client
	f, err := fetcher.New(fetcher.Options{
		BaseURL:       cfg.BaseURL,
		SkipTLSVerify: *cfg.SkipTLSVerify,
		Timeout:       cfg.Timeout,
		Pool: fetcher.Pool{
			MaxIdlePerHost: cfg.Connections.MaxIdlePerHost,
			IdleTimeout:    cfg.Connections.IdleTimeout,
			DialTimeout:    cfg.Connections.DialTimeout,
		},
		CSRFCookie:    cfg.CSRF.Cookie,
		CSRFHeader:    cfg.CSRF.Header,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating fetcher error: %w", err)
	}
	for name, value := range flags.Cookies {
		if err := f.SetCookie(name, value); err != nil {
			return err
		}
	}
	unsubscribe := f.Tracker.Subscribe(func(busy bool) {
		logger.Debug("network activity", "busy", busy)
	})
	defer unsubscribe()

	c := client.New(reg, f, client.WithLogger(logger))

	callArgs, err := buildArgs(flags)
	if err != nil {
		return err
	}

	var opts []client.CallOption
	if flags.IgnoreErrors {
		opts = append(opts, client.WithIgnoreErrors())
	}

	result, err := c.Invoke(ctx, flags.Resource, flags.Operation, callArgs, opts...)
	if err != nil {
		return err
	}

	out, err := collect(ctx, result, flags, logger)
	if err != nil {
		return err
	}
	out.Resource = flags.Resource
	out.Operation = flags.Operation

	return writeOutput(stdout, flags.Template, out)
}

// buildArgs merges --arg pairs and the decoded --data payload. With --file the
// body becomes a multipart form: files as file parts, --data keys as fields.
func buildArgs(flags flag.Config) (router.Args, error) {
	args := make(router.Args, len(flags.Args)+1)
	for k, v := range flags.Args {
		args[k] = v
	}

	var data any
	if flags.Data != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(flags.Data)))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("invalid --data JSON: %w", err)
		}
	}

	if len(flags.Files) > 0 {
		form, err := buildMultipart(data, flags.Files)
		if err != nil {
			return nil, err
		}
		data = form
	}

	if data == nil {
		return args, nil
	}
	return args.Merge(router.Args{registry.DefaultBodyName: data}), nil
}

// buildMultipart writes the fields of data (a JSON object or nil) and the files
// into one multipart payload. Fields and files are written in sorted order.
func buildMultipart(data any, files map[string]string) (*fetcher.Multipart, error) {
	fields, ok := data.(map[string]any)
	if data != nil && !ok {
		return nil, errors.New("--data must be a JSON object when --file is set")
	}

	form := fetcher.NewMultipart()
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		v := fields[k]
		if s, isString := v.(string); isString {
			if err := form.WriteField(k, s); err != nil {
				return nil, err
			}
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode form field %q: %w", k, err)
		}
		if err := form.WriteField(k, string(raw)); err != nil {
			return nil, err
		}
	}

	for _, field := range slices.Sorted(maps.Keys(files)) {
		if err := attachFile(form, field, files[field]); err != nil {
			return nil, err
		}
	}
	return form, nil
}

// attachFile adds the file at path as a file part named field.
func attachFile(form *fetcher.Multipart, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open --file %s: %w", field, err)
	}
	defer f.Close() // nolint:errcheck

	return form.WriteFile(field, filepath.Base(path), f)
}

// collect turns a call result into template output, draining cursors if requested.
func collect(ctx context.Context, result *client.Result, flags flag.Config, logger *slog.Logger) (templates.Output, error) {
	out := templates.Output{Kind: result.Kind.String(), Data: result.Data()}
	if result.Kind != client.Paged {
		return out, nil
	}

	cur := result.Cursor
	if flags.All {
		items, err := cur.Drain(ctx, flags.MaxPages)
		switch {
		case errors.Is(err, client.ErrPageLimit):
			logger.Warn("more pages available", "maxPages", flags.MaxPages)
		case err != nil:
			return templates.Output{}, err
		}
		out.Data = items
	}

	page := cur.Page()
	out.Page = map[string]any{
		"offset":   page.Offset,
		"limit":    page.Limit,
		"count":    page.Count,
		"next":     page.Next,
		"previous": page.Previous,
	}
	return out, nil
}

// writeOutput renders out with the template, or as JSON when none is given.
// Templates may be given inline or as a resolver reference such as file:out.tmpl.
func writeOutput(w io.Writer, tpl string, out templates.Output) error {
	if tpl == "" {
		return templates.RenderJSON(w, out)
	}
	text, err := resolver.ResolveVariable(tpl)
	if err != nil {
		return fmt.Errorf("resolving template error: %w", err)
	}
	tmpl, err := templates.Parse(text)
	if err != nil {
		return err
	}
	return templates.Render(w, tmpl, out)
}

// listResources prints every resource with its operations.
func listResources(w io.Writer, reg *registry.Registry) error {
	for _, name := range reg.Names() {
		res, err := reg.Resource(name)
		if err != nil {
			return err
		}
		ops := "(not callable)"
		if res.Callable() {
			ops = strings.Join(res.OperationNames(), ", ")
		}
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", name, res.BaseURL, ops); err != nil {
			return err
		}
	}
	return nil
}

// passthroughModels registers every model class named in cfg as a raw
// constructor. The CLI prints JSON, so typed models add nothing.
func passthroughModels(cfg config.Config) registry.Models {
	raw := func(v any) (any, error) { return v, nil }
	models := registry.Models{}
	for _, res := range cfg.Resources {
		if res.ModelClass != "" {
			models[res.ModelClass] = raw
		}
		for _, op := range res.Viewset.Operations {
			if op.ModelClass != "" {
				models[op.ModelClass] = raw
			}
		}
	}
	return models
}
