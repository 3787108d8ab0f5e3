package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gi8lino/restgen/internal/utils"
	"github.com/gi8lino/restgen/pkg/inflight"
	"golang.org/x/net/publicsuffix"
)

// Default anti-forgery cookie and header names.
const (
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"
)

// Options configures a Fetcher.
type Options struct {
	BaseURL       string
	SkipTLSVerify bool
	Timeout       time.Duration
	Pool          Pool
	CSRFCookie    string
	CSRFHeader    string
	Jar           http.CookieJar    // nil creates an in-memory jar
	Tracker       *inflight.Tracker // nil creates a private tracker
	Logger        *slog.Logger      // nil discards
	Client        *http.Client      // overrides the built-in client (Jar must be set on it)
}

// Fetcher issues HTTP calls for routed operations.
type Fetcher struct {
	Base    *url.URL
	Client  *http.Client
	Tracker *inflight.Tracker

	csrfCookie string
	csrfHeader string
	logger     *slog.Logger
}

// New constructs a Fetcher from opts.
func New(opts Options) (*Fetcher, error) {
	var base *url.URL
	if strings.TrimSpace(opts.BaseURL) != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid baseURL: %w", err)
		}
		base = u
	}

	if opts.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		opts.Jar = jar
	}
	if opts.Tracker == nil {
		opts.Tracker = inflight.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.CSRFCookie == "" {
		opts.CSRFCookie = DefaultCSRFCookie
	}
	if opts.CSRFHeader == "" {
		opts.CSRFHeader = DefaultCSRFHeader
	}

	client := opts.Client
	if client == nil {
		client = newHTTPClient(opts)
	}

	return &Fetcher{
		Base:       base,
		Client:     client,
		Tracker:    opts.Tracker,
		csrfCookie: opts.CSRFCookie,
		csrfHeader: opts.CSRFHeader,
		logger:     opts.Logger,
	}, nil
}

// SetCookie stores a cookie for the base URL origin, e.g. a session or csrf cookie.
func (f *Fetcher) SetCookie(name, value string) error {
	if f.Base == nil {
		return fmt.Errorf("cannot set cookie %q without baseURL", name)
	}
	if f.Client.Jar == nil {
		return fmt.Errorf("cannot set cookie %q: client has no cookie jar", name)
	}
	f.Client.Jar.SetCookies(f.Base, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
	return nil
}

// Do executes spec and returns the decoded JSON payload (nil for empty bodies).
// Non-2xx responses and non-JSON bodies yield *ResponseError; transport failures are returned as the client reported them.
func (f *Fetcher) Do(ctx context.Context, spec RequestSpec) (any, error) {
	method := canonicalMethod(spec.Method)
	u, err := spec.Normalize(f.Base)
	if err != nil {
		return nil, fmt.Errorf("normalize request: %w", err)
	}

	var (
		body        io.Reader
		contentType string
	)
	if spec.HasBody && (method == http.MethodPost || method == http.MethodPut) {
		body, contentType, err = encodeBody(spec.Body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet {
		f.applyCSRF(req)
	}

	var (
		status     int
		statusLine string
		raw        []byte
	)
	start := time.Now()
	err = f.Tracker.Track(func() error {
		res, err := f.Client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close() // nolint:errcheck

		status, statusLine = res.StatusCode, res.Status
		raw, err = io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	})
	f.logger.Debug("request settled",
		"method", method,
		"url", u.String(),
		"status", status,
		"duration", time.Since(start),
	)
	if err != nil {
		return nil, err
	}

	if method == http.MethodDelete {
		if status == http.StatusNoContent {
			return nil, nil
		}
		return nil, newResponseError(method, u.String(), status, statusLine, raw)
	}
	if status < 200 || status >= 300 {
		return nil, newResponseError(method, u.String(), status, statusLine, raw)
	}

	payload, err := decodeJSONUseNumber(raw)
	if err != nil {
		return nil, newDecodeError(method, u.String(), status, statusLine, raw, err)
	}
	return payload, nil
}

// applyCSRF copies the anti-forgery cookie for the request URL into the header.
// A missing cookie is not an error.
func (f *Fetcher) applyCSRF(req *http.Request) {
	if f.Client.Jar == nil {
		return
	}
	for _, c := range f.Client.Jar.Cookies(req.URL) {
		if c.Name == f.csrfCookie && c.Value != "" {
			req.Header.Set(f.csrfHeader, c.Value)
			f.logger.Debug("attached csrf token", "header", f.csrfHeader, "token", utils.Obfuscate(c.Value))
			return
		}
	}
}

// decodeJSONUseNumber decodes any JSON value using UseNumber to preserve integer precision.
func decodeJSONUseNumber(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
