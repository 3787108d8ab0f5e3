package fetcher

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gi8lino/restgen/pkg/urltemplate"
)

// RequestSpec describes a single HTTP request the fetcher should execute.
type RequestSpec struct {
	URL     string
	Method  string
	Query   map[string]any // only serialized for GET
	Body    any
	HasBody bool
}

// Normalize resolves the URL against base and appends the query for GET requests.
func (r *RequestSpec) Normalize(base *url.URL) (u *url.URL, err error) {
	u, err = resolveURL(base, r.URL)
	if err != nil {
		return nil, err
	}

	if canonicalMethod(r.Method) == http.MethodGet {
		appendQuery(u, r.Query)
	}
	return u, nil
}

// canonicalMethod returns an upper-cased HTTP method or GET if empty.
func canonicalMethod(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return http.MethodGet
	}
	return strings.ToUpper(m)
}

// resolveURL parses raw and resolves it against base if not absolute.
func resolveURL(base *url.URL, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() && base != nil {
		u = base.ResolveReference(u)
	}
	return u, nil
}

// EncodeQuery serializes kv as percent-encoded key=value pairs joined with "&", sorted by key.
func EncodeQuery(kv map[string]any) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, urltemplate.EscapeComponent(k)+"="+urltemplate.EscapeComponent(urltemplate.Stringify(kv[k])))
	}
	return strings.Join(pairs, "&")
}

// appendQuery adds kv to the query already present on u.
func appendQuery(u *url.URL, kv map[string]any) {
	if u == nil || len(kv) == 0 {
		return
	}
	q := EncodeQuery(kv)
	if q == "" {
		return
	}
	if u.RawQuery == "" {
		u.RawQuery = q
		return
	}
	u.RawQuery += "&" + q
}
