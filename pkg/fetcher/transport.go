package fetcher

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Pool tunes connection reuse. Zero fields take the defaults below.
type Pool struct {
	MaxIdlePerHost int           // idle connections kept per backend host
	IdleTimeout    time.Duration // how long an idle connection stays open
	DialTimeout    time.Duration // TCP connect and TLS handshake limit
}

const (
	defaultMaxIdlePerHost = 10
	defaultIdleTimeout    = 90 * time.Second
	defaultDialTimeout    = 10 * time.Second
)

func (p Pool) withDefaults() Pool {
	if p.MaxIdlePerHost <= 0 {
		p.MaxIdlePerHost = defaultMaxIdlePerHost
	}
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = defaultIdleTimeout
	}
	if p.DialTimeout <= 0 {
		p.DialTimeout = defaultDialTimeout
	}
	return p
}

// newHTTPClient builds an http.Client with a pooled transport and the cookie jar.
// Page walks hit one host repeatedly, so idle connections are kept per host.
// A zero timeout leaves request deadlines to the caller's context.
func newHTTPClient(opts Options) *http.Client {
	pool := opts.Pool.withDefaults()
	return &http.Client{
		Timeout: opts.Timeout,
		Jar:     opts.Jar,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        pool.MaxIdlePerHost * 4,
			MaxIdleConnsPerHost: pool.MaxIdlePerHost,
			IdleConnTimeout:     pool.IdleTimeout,
			DialContext: (&net.Dialer{
				Timeout:   pool.DialTimeout,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: opts.SkipTLSVerify}, // nolint:gosec
			TLSHandshakeTimeout:   pool.DialTimeout,
			ExpectContinueTimeout: time.Second,
		},
	}
}
