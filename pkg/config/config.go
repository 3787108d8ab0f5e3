package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gi8lino/restgen/pkg/fetcher"

	"github.com/containeroo/resolver"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadConfig reads, parses and resolves the resource configuration at path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	if err := ResolveConfig(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ResolveConfig expands resolver references (env:, file:, ...) in URL fields.
func ResolveConfig(cfg *Config) error {
	var err error
	if cfg.BaseURL, err = resolver.ResolveVariable(cfg.BaseURL); err != nil {
		return fmt.Errorf("resolve baseURL: %w", err)
	}

	for name, res := range cfg.Resources {
		if res.URL, err = resolver.ResolveVariable(res.URL); err != nil {
			return fmt.Errorf("resource %q: resolve url: %w", name, err)
		}
		for i, op := range res.Viewset.Operations {
			if op.URL == "" {
				continue
			}
			if res.Viewset.Operations[i].URL, err = resolver.ResolveVariable(op.URL); err != nil {
				return fmt.Errorf("resource %q: operation %q: resolve url: %w", name, op.Name, err)
			}
		}
		cfg.Resources[name] = res
	}
	return nil
}

// ValidateConfig checks the structural correctness of cfg and fills in defaults.
// Operation level semantics (verbs, bindings) are checked when the registry is built.
func ValidateConfig(cfg *Config) error {
	var errs []string

	if len(cfg.Resources) == 0 {
		errs = append(errs, "resources must not be empty")
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, describeFieldError(fe))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("config has errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	setDefaults(cfg)

	return nil
}

// describeFieldError renders a validator error as "<path>: <problem>".
func describeFieldError(fe validator.FieldError) string {
	// Namespace looks like "Config.Resources[Widgets].URL"; drop the root type.
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	default:
		return fmt.Sprintf("%s failed %q validation", path, fe.Tag())
	}
}

// setDefault assigns dst to val only if *dst is empty.
func setDefault(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

// setDefaults fills in missing optional fields.
func setDefaults(cfg *Config) {
	setDefault(&cfg.CSRF.Cookie, fetcher.DefaultCSRFCookie)
	setDefault(&cfg.CSRF.Header, fetcher.DefaultCSRFHeader)

	if cfg.SkipTLSVerify == nil {
		skip := false
		cfg.SkipTLSVerify = &skip
	}
}

// ResourceNames returns all configured resource names in sorted order.
func (c *Config) ResourceNames() []string {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
