package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/gi8lino/restgen/internal/testutils"
	"github.com/gi8lino/restgen/pkg/fetcher"
	"github.com/gi8lino/restgen/pkg/registry"
	"github.com/gi8lino/restgen/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestClient builds a client for defs against srv.
func newTestClient(t *testing.T, srv *testutils.RecordingServer, defs []registry.Definition, opts ...Option) *Client {
	t.Helper()

	reg, err := registry.Build(defs, registry.Models{"Widget": registry.Model[widget]()})
	require.NoError(t, err)

	f, err := fetcher.New(fetcher.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	return New(reg, f, opts...)
}

func widgetsDef() registry.Definition {
	return registry.Definition{
		Name:       "Widgets",
		URL:        "/api/widgets",
		Mode:       registry.Full(),
		Model:      "Widget",
		Pagination: true,
		Query:      []registry.QueryParam{{External: "search"}, {External: "pageSize", Internal: "page_size"}},
	}
}

func TestClient_Invoke(t *testing.T) {
	t.Parallel()

	t.Run("list returns a cursor over the first page", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"next": nil, "previous": nil,
				"results": []any{map[string]any{"id": 1}},
				"offset":  0, "limit": 10, "count": 1,
			})
		})
		c := newTestClient(t, srv, []registry.Definition{widgetsDef()})

		res, err := c.Invoke(t.Context(), "Widgets", "list", router.Args{"search": "a b", "pageSize": 10, "typo": 1})
		require.NoError(t, err)

		last := srv.Last(t)
		assert.Equal(t, http.MethodGet, last.Method)
		assert.Equal(t, "/api/widgets/", last.Path)
		assert.Equal(t, "page_size=10&search=a%20b", last.RawQuery)

		require.Equal(t, Paged, res.Kind)
		cur := res.Cursor
		assert.Equal(t, []any{&widget{ID: 1}}, cur.Items())
		assert.False(t, cur.HasNext())
		assert.False(t, cur.HasPrevious())
		assert.Equal(t, 0, cur.Offset())
		assert.Equal(t, 10, cur.Limit())
		assert.Equal(t, 1, cur.Count())
		assert.Equal(t, 0, c.Tracker().Count())
	})

	t.Run("retrieve expands the lookup", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": 42, "name": "gear"})
		})
		c := newTestClient(t, srv, []registry.Definition{widgetsDef()})

		res, err := c.Invoke(t.Context(), "Widgets", "retrieve", router.Args{"lookup": "42"})
		require.NoError(t, err)
		assert.Equal(t, "/api/widgets/42/", srv.Last(t).Path)
		require.Equal(t, Value, res.Kind)
		assert.Equal(t, &widget{ID: 42, Name: "gear"}, res.Value)
		assert.Equal(t, res.Value, res.Data())
	})

	t.Run("create posts the named body as JSON", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, map[string]any{"id": 7, "name": "x"})
		})
		c := newTestClient(t, srv, []registry.Definition{widgetsDef()})

		res, err := c.Invoke(t.Context(), "Widgets", "create", router.Args{"data": map[string]any{"name": "x"}})
		require.NoError(t, err)

		last := srv.Last(t)
		assert.Equal(t, http.MethodPost, last.Method)
		assert.Equal(t, "/api/widgets/", last.Path)
		assert.JSONEq(t, `{"name":"x"}`, string(last.Body))
		assert.Equal(t, &widget{ID: 7, Name: "x"}, res.Value)
	})

	t.Run("sequence payload is mapped element-wise", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []any{map[string]any{"id": 1}, map[string]any{"id": 2}})
		})
		def := widgetsDef()
		def.Pagination = false
		c := newTestClient(t, srv, []registry.Definition{def})

		res, err := c.Invoke(t.Context(), "Widgets", "list", nil)
		require.NoError(t, err)
		require.Equal(t, List, res.Kind)
		assert.Equal(t, []any{&widget{ID: 1}, &widget{ID: 2}}, res.Items)
	})

	t.Run("custom operation with positional body", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		def := registry.Definition{
			Name: "Widgets",
			URL:  "/api/widgets",
			Mode: registry.Custom(registry.CustomOperation(registry.OperationSpec{
				Name: "rename",
				URL:  "/api/widgets/<int:pk>/rename/",
				Verb: registry.POST,
				Body: registry.Positional("name", "force"),
			})),
		}
		c := newTestClient(t, srv, []registry.Definition{def})

		r, err := c.Resource("Widgets")
		require.NoError(t, err)
		assert.Equal(t, []string{"rename"}, r.Operations())
		assert.True(t, r.Callable())
		assert.Equal(t, "Widgets", r.Name())

		res, err := r.Call(t.Context(), "rename", router.Args{"pk": 5, "name": "new"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, res.Value)

		last := srv.Last(t)
		assert.Equal(t, "/api/widgets/5/rename/", last.Path)
		assert.JSONEq(t, `{"name":"new"}`, string(last.Body))
	})

	t.Run("initial data seeds the result without a request", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		})
		def := widgetsDef()
		def.Mode = registry.Custom(registry.Canonical(registry.OpList).WithInitialData("initial"))
		c := newTestClient(t, srv, []registry.Definition{def})

		seed := map[string]any{"next": nil, "results": []any{map[string]any{"id": 3}}, "count": 1}
		res, err := c.Invoke(t.Context(), "Widgets", "list", router.Args{"initial": seed})
		require.NoError(t, err)
		require.Equal(t, Paged, res.Kind)
		assert.Equal(t, []any{&widget{ID: 3}}, res.Cursor.Items())
		assert.Empty(t, srv.Requests())
	})

	t.Run("typed slice seed becomes a list", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		})
		def := widgetsDef()
		def.Mode = registry.Custom(registry.Canonical(registry.OpList).WithInitialData("initial"))
		c := newTestClient(t, srv, []registry.Definition{def})

		seed := []map[string]any{{"id": 1}, {"id": 2}}
		res, err := c.Invoke(t.Context(), "Widgets", "list", router.Args{"initial": seed})
		require.NoError(t, err)
		require.Equal(t, List, res.Kind)
		assert.Equal(t, []any{&widget{ID: 1}, &widget{ID: 2}}, res.Items)
	})

	t.Run("ignore errors never surfaces a response error", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
		})
		var (
			mu    sync.Mutex
			calls int
		)
		c := newTestClient(t, srv, []registry.Definition{widgetsDef()}, WithErrorHandler(func(_, _ string, _ error) {
			mu.Lock()
			calls++
			mu.Unlock()
		}))

		for _, op := range []string{"list", "create", "delete"} {
			res, err := c.Invoke(t.Context(), "Widgets", op, router.Args{"lookup": 1, "data": map[string]any{}}, WithIgnoreErrors())
			require.NoError(t, err, op)
			assert.Equal(t, None, res.Kind, op)
			assert.Nil(t, res.Data(), op)
		}
		assert.Equal(t, 0, calls)
		assert.Equal(t, 0, c.Tracker().Count())
	})

	t.Run("ignore errors covers undecodable success bodies", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		})
		c := newTestClient(t, srv, []registry.Definition{widgetsDef()})

		res, err := c.Invoke(t.Context(), "Widgets", "retrieve", router.Args{"lookup": 1}, WithIgnoreErrors())
		require.NoError(t, err)
		assert.Equal(t, None, res.Kind)

		_, err = c.Invoke(t.Context(), "Widgets", "retrieve", router.Args{"lookup": 1})
		require.Error(t, err)
		assert.True(t, fetcher.IsResponseError(err))
	})

	t.Run("response error reaches caller and handler", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		})
		var seen []error
		c := newTestClient(t, srv, []registry.Definition{widgetsDef()}, WithErrorHandler(func(res, op string, err error) {
			assert.Equal(t, "Widgets", res)
			assert.Equal(t, "retrieve", op)
			seen = append(seen, err)
		}))

		_, err := c.Invoke(t.Context(), "Widgets", "retrieve", router.Args{"lookup": 9})
		var re *fetcher.ResponseError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusNotFound, re.StatusCode)
		assert.Equal(t, map[string]any{"detail": "Not found."}, re.Detail)
		assert.Contains(t, err.Error(), "Widgets.retrieve")
		require.Len(t, seen, 1)
		assert.Equal(t, err, seen[0])
	})

	t.Run("transport errors are not ignored", func(t *testing.T) {
		t.Parallel()

		reg, err := registry.Build([]registry.Definition{widgetsDef()}, registry.Models{"Widget": registry.Model[widget]()})
		require.NoError(t, err)
		f, err := fetcher.New(fetcher.Options{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)
		c := New(reg, f)

		_, err = c.Invoke(t.Context(), "Widgets", "list", nil, WithIgnoreErrors())
		var ue *url.Error
		assert.ErrorAs(t, err, &ue)
		assert.Equal(t, 0, c.Tracker().Count())
	})

	t.Run("configuration errors are never ignored", func(t *testing.T) {
		t.Parallel()

		srv := testutils.NewRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {})
		inert := registry.Definition{Name: "Static", URL: "/static", Mode: registry.Inert()}
		c := newTestClient(t, srv, []registry.Definition{widgetsDef(), inert})

		_, err := c.Invoke(t.Context(), "Gadgets", "list", nil, WithIgnoreErrors())
		assert.ErrorIs(t, err, registry.ErrUnknownResource)

		_, err = c.Invoke(t.Context(), "Widgets", "archive", nil, WithIgnoreErrors())
		assert.ErrorIs(t, err, registry.ErrUnknownOperation)

		_, err = c.Invoke(t.Context(), "Static", "list", nil, WithIgnoreErrors())
		assert.ErrorIs(t, err, registry.ErrNotCallable)

		_, err = c.Invoke(t.Context(), "Widgets", "retrieve", nil, WithIgnoreErrors())
		assert.ErrorIs(t, err, router.ErrMissingPathParam)

		_, err = c.Resource("Gadgets")
		assert.True(t, errors.Is(err, registry.ErrUnknownResource))
		assert.Empty(t, srv.Requests())
	})
}
