package flag_test

import (
	"strings"
	"testing"

	"github.com/gi8lino/restgen/internal/flag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGetEnv keeps the environment of the developer machine out of the tests.
func mockGetEnv(key string) string {
	return ""
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	t.Run("minimal", func(t *testing.T) {
		t.Parallel()

		args := []string{"--resource=Widgets", "--operation=list"}
		var out strings.Builder

		cfg, err := flag.ParseArgs("v1.2.3", args, &out, mockGetEnv)
		require.NoError(t, err)
		assert.Equal(t, "config.yaml", cfg.Config)
		assert.Equal(t, "Widgets", cfg.Resource)
		assert.Equal(t, "list", cfg.Operation)
		assert.Empty(t, cfg.Args)
		assert.Equal(t, 50, cfg.MaxPages)
		assert.Equal(t, "text", string(cfg.LogFormat))
		assert.False(t, cfg.Debug)
	})

	t.Run("all flags", func(t *testing.T) {
		t.Parallel()

		args := []string{
			"--config=api.yaml",
			"--env-file=.env",
			"-r", "Widgets",
			"-o", "retrieve",
			"--arg", "lookup=42",
			"--arg", "search=a=b",
			"--data", `{"name":"x"}`,
			"--cookie", "csrftoken=tok",
			"-f", "avatar=./a.png",
			"--ignore-errors",
			"--all",
			"--max-pages=3",
			"--template={{ .Data }}",
			"--debug",
			"--log-format=json",
		}
		var out strings.Builder

		cfg, err := flag.ParseArgs("v1.2.3", args, &out, mockGetEnv)
		require.NoError(t, err)
		assert.Equal(t, "api.yaml", cfg.Config)
		assert.Equal(t, ".env", cfg.EnvFile)
		assert.Equal(t, map[string]string{"lookup": "42", "search": "a=b"}, cfg.Args)
		assert.Equal(t, `{"name":"x"}`, cfg.Data)
		assert.Equal(t, map[string]string{"csrftoken": "tok"}, cfg.Cookies)
		assert.Equal(t, map[string]string{"avatar": "./a.png"}, cfg.Files)
		assert.True(t, cfg.IgnoreErrors)
		assert.True(t, cfg.All)
		assert.Equal(t, 3, cfg.MaxPages)
		assert.Equal(t, "{{ .Data }}", cfg.Template)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "json", string(cfg.LogFormat))
	})

	t.Run("list needs no resource", func(t *testing.T) {
		t.Parallel()

		cfg, err := flag.ParseArgs("v1", []string{"--list"}, &strings.Builder{}, mockGetEnv)
		require.NoError(t, err)
		assert.True(t, cfg.List)
	})

	t.Run("missing resource", func(t *testing.T) {
		t.Parallel()

		_, err := flag.ParseArgs("v1", []string{"--operation=list"}, &strings.Builder{}, mockGetEnv)
		require.Error(t, err)
		assert.EqualError(t, err, "--resource and --operation are required unless --list is set")
	})

	t.Run("malformed arg", func(t *testing.T) {
		t.Parallel()

		_, err := flag.ParseArgs("v1", []string{"-r", "W", "-o", "list", "--arg", "novalue"}, &strings.Builder{}, mockGetEnv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `--arg "novalue": expected KEY=VALUE`)
	})

	t.Run("invalid max pages", func(t *testing.T) {
		t.Parallel()

		_, err := flag.ParseArgs("v1", []string{"-r", "W", "-o", "list", "--max-pages=0"}, &strings.Builder{}, mockGetEnv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--max-pages must be at least 1")
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Parallel()

		_, err := flag.ParseArgs("v1", []string{"-r", "W", "-o", "list", "--log-format=xml"}, &strings.Builder{}, mockGetEnv)
		require.Error(t, err)
	})

	t.Run("env values", func(t *testing.T) {
		t.Parallel()

		env := map[string]string{
			"RESTGEN_RESOURCE":  "Widgets",
			"RESTGEN_OPERATION": "list",
		}
		cfg, err := flag.ParseArgs("v1", nil, &strings.Builder{}, func(k string) string { return env[k] })
		require.NoError(t, err)
		assert.Equal(t, "Widgets", cfg.Resource)
		assert.Equal(t, "list", cfg.Operation)
	})
}
