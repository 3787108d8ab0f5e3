package templates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateFuncMap(t *testing.T) {
	t.Parallel()

	fm := TemplateFuncMap()
	for _, name := range []string{"setany", "dig", "field", "sortedKeys", "formatDate", "json", "upper", "default"} {
		assert.Contains(t, fm, name)
	}
}

func TestSetany(t *testing.T) {
	t.Parallel()

	m := map[string]any{}
	out := setany(m, "a", 1)
	assert.Equal(t, 1, out["a"])
	assert.Equal(t, 1, m["a"])
}

func TestTemplateDig(t *testing.T) {
	t.Parallel()

	m := map[string]any{"s": "x", "n": json.Number("4"), "b": true, "o": map[string]any{}}
	assert.Equal(t, "x", templateDig(m, "s"))
	assert.Equal(t, "4", templateDig(m, "n"))
	assert.Equal(t, "true", templateDig(m, "b"))
	assert.Equal(t, "", templateDig(m, "o"))
	assert.Equal(t, "", templateDig(m, "missing"))
	assert.Equal(t, "raw", templateDig("raw", "ignored"))
	assert.Equal(t, "", templateDig(42, "x"))
}

func TestTemplateField(t *testing.T) {
	t.Parallel()

	m := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}
	assert.Equal(t, 1, templateField(m, "a.b.c"))
	assert.Nil(t, templateField(m, "a.x.c"))
	assert.Nil(t, templateField("str", "a"))
}

func TestTemplateSortedKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c"}, templateSortedKeys(map[string]any{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, templateSortedKeys(nil))
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2025-03-01", formatDate("2025-03-01T10:20:30Z", "2006-01-02"))
	assert.Equal(t, "2025-03-01 10:20", formatDate("2025-03-01T10:20:30.123+00:00", "2006-01-02 15:04"))
	assert.Equal(t, "yesterday", formatDate("yesterday", "2006-01-02"))
}

func TestTemplateJSON(t *testing.T) {
	t.Parallel()

	s, err := templateJSON(map[string]any{"a": []any{1, "x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,"x"]}`, s)

	_, err = templateJSON(make(chan int))
	assert.Error(t, err)
}
