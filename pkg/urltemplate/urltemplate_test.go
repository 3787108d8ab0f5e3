package urltemplate_test

import (
	"testing"

	"github.com/gi8lino/restgen/pkg/urltemplate"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("no placeholders", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, urltemplate.Parse("/api/widgets/"))
	})

	t.Run("untyped and typed", func(t *testing.T) {
		t.Parallel()
		p := urltemplate.Parse("/api/<project>/items/<int:lookup>/")
		assert.Equal(t, urltemplate.Params{"project": "", "lookup": "int"}, p)
		assert.True(t, p.Has("lookup"))
		assert.False(t, p.Has("int"))
	})

	t.Run("adjacent placeholders", func(t *testing.T) {
		t.Parallel()
		p := urltemplate.Parse("/x/<a><str:b>/<c>")
		assert.Equal(t, urltemplate.Params{"a": "", "b": "str", "c": ""}, p)
	})

	t.Run("order independent", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t,
			urltemplate.Parse("/<b>/<a>/"),
			urltemplate.Parse("/<a>/<b>/"),
		)
	})
}

func TestExpand(t *testing.T) {
	t.Parallel()

	t.Run("substitutes all", func(t *testing.T) {
		t.Parallel()
		out := urltemplate.Expand("/api/widgets/<lookup>/<int:rev>/", map[string]string{"lookup": "42", "rev": "7"})
		assert.Equal(t, "/api/widgets/42/7/", out)
		assert.Empty(t, urltemplate.Remaining(out))
	})

	t.Run("encodes values", func(t *testing.T) {
		t.Parallel()
		out := urltemplate.Expand("/files/<path>/", map[string]string{"path": "a b/c&d"})
		assert.Equal(t, "/files/a%20b%2Fc%26d/", out)
	})

	t.Run("keeps unmatched and surrounding text", func(t *testing.T) {
		t.Parallel()
		out := urltemplate.Expand("/a-<x>_b/<y>?q=1", map[string]string{"x": "1"})
		assert.Equal(t, "/a-1_b/<y>?q=1", out)
		assert.Equal(t, []string{"y"}, urltemplate.Remaining(out))
	})
}

func TestStringify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", urltemplate.Stringify(nil))
	assert.Equal(t, "42", urltemplate.Stringify(42))
	assert.Equal(t, "true", urltemplate.Stringify(true))
	assert.Equal(t, "a,b", urltemplate.Stringify([]string{"a", "b"}))
	assert.Equal(t, "1,x", urltemplate.Stringify([]any{1, "x"}))
}
