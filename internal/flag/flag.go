package flag

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/containeroo/tinyflags"
	"github.com/gi8lino/restgen/internal/logging"
)

// Config aggregates CLI flags after parsing.
type Config struct {
	Config       string            // Path to config file
	EnvFile      string            // Optional .env file loaded before the config
	Resource     string            // Resource to call
	Operation    string            // Operation to call
	Args         map[string]string // --arg key=value pairs
	Data         string            // Raw JSON passed as the "data" argument
	Files        map[string]string // --file field=path pairs sent as multipart form
	Cookies      map[string]string // --cookie name=value pairs seeded into the jar
	IgnoreErrors bool              // Suppress response errors
	All          bool              // Drain all pages of a cursor
	MaxPages     int               // Page cap for --all
	Template     string            // Output template; empty prints JSON
	List         bool              // Print resources and operations instead of calling
	Debug        bool              // Enables debug logging
	LogFormat    logging.LogFormat // Log output format (text or json)
}

// ParseArgs parses CLI arguments into Config, handling version/help flags.
func ParseArgs(version string, args []string, out io.Writer, getEnv func(string) string) (Config, error) {
	var cfg Config
	tf := tinyflags.NewFlagSet("restgen", tinyflags.ContinueOnError)
	tf.Version(version)
	tf.SetGetEnvFn(getEnv)
	tf.EnvPrefix("RESTGEN")
	tf.SetOutput(out)

	// Configuration
	tf.StringVar(&cfg.Config, "config", "config.yaml", "Path to config file").Short("c").Value()
	tf.StringVar(&cfg.EnvFile, "env-file", "", "Load environment variables from this file").Placeholder("FILE").Value()

	// Call
	tf.StringVar(&cfg.Resource, "resource", "", "Resource to call").Short("r").Placeholder("NAME").Value()
	tf.StringVar(&cfg.Operation, "operation", "", "Operation to call").Short("o").Placeholder("OP").Value()
	rawArgs := tf.StringSlice("arg", nil, "Call argument (repeatable)").Short("a").Placeholder("KEY=VALUE").Value()
	tf.StringVar(&cfg.Data, "data", "", "JSON body passed as the data argument").Short("d").Placeholder("JSON").Value()
	rawFiles := tf.StringSlice("file", nil, "Upload a file as multipart form field (repeatable)").Short("f").Placeholder("FIELD=PATH").Value()
	rawCookies := tf.StringSlice("cookie", nil, "Cookie for the base URL (repeatable)").Placeholder("NAME=VALUE").Value()
	tf.BoolVar(&cfg.IgnoreErrors, "ignore-errors", false, "Return an empty result on error responses").Value()

	// Pagination
	tf.BoolVar(&cfg.All, "all", false, "Follow next links and print all pages").Value()
	maxPages := tf.Int("max-pages", 50, "Maximum pages fetched with --all").Placeholder("N").Value()

	// Output
	tf.StringVar(&cfg.Template, "template", "", "Go template for the output (supports file: references)").Short("t").Placeholder("TPL").Value()
	tf.BoolVar(&cfg.List, "list", false, "List resources and their operations").Value()

	// Logging
	tf.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging").Value()
	logFormat := tf.String("log-format", "text", "Log format").Choices("text", "json").Short("l").Value()

	// Parse
	if err := tf.Parse(args); err != nil {
		return Config{}, err
	}

	// Post-parse
	cfg.LogFormat = logging.LogFormat(*logFormat)
	cfg.MaxPages = *maxPages

	var err error
	if cfg.Args, err = parsePairs("arg", *rawArgs); err != nil {
		return Config{}, err
	}
	if cfg.Files, err = parsePairs("file", *rawFiles); err != nil {
		return Config{}, err
	}
	if cfg.Cookies, err = parsePairs("cookie", *rawCookies); err != nil {
		return Config{}, err
	}

	if cfg.MaxPages < 1 {
		return Config{}, fmt.Errorf("--max-pages must be at least 1, got %d", cfg.MaxPages)
	}
	if !cfg.List {
		if cfg.Resource == "" || cfg.Operation == "" {
			return Config{}, errors.New("--resource and --operation are required unless --list is set")
		}
	}

	return cfg, nil
}

// parsePairs splits key=value entries. Later keys win.
func parsePairs(flagName string, entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--%s %q: expected KEY=VALUE", flagName, e)
		}
		out[k] = v
	}
	return out, nil
}
