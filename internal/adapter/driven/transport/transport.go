// Package transport implements the Transport port over net/http.
//
// The round-tripper stack, outermost first:
//  1. request logging (method, path, status, duration, request id)
//  2. httpcache (optional; ETag/Cache-Control aware, off unless enabled)
//  3. vary-by-Authorization marker (only under the cache)
//  4. net/http transport with an optional forward proxy
//
// Two http.Clients share that stack and differ only in the cookie jar: the
// credentialed client sends and stores cookies, the other never does.
package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Transport = (*HTTPTransport)(nil)

// Options configures an HTTPTransport. The zero value is a direct, uncached
// transport with no client-side timeout.
type Options struct {
	// ProxyURL routes every request through a forward proxy. Empty means
	// the proxy environment variables decide.
	ProxyURL string
	// Cache enables the in-memory HTTP cache layer.
	Cache bool
	// Timeout bounds a whole request. Zero leaves it to the server.
	Timeout time.Duration
	// Jar holds cookies for credentialed requests. Nil creates a fresh jar.
	Jar http.CookieJar
	// Base replaces the underlying round-tripper. Intended for tests.
	Base   http.RoundTripper
	Logger *slog.Logger
}

// HTTPTransport implements driven.Transport.
type HTTPTransport struct {
	withCredentials    *http.Client
	withoutCredentials *http.Client
}

// New builds the round-tripper stack described in the package doc.
func New(opts Options) (*HTTPTransport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := opts.Base
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.ProxyURL != "" {
			proxyURL, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("parsing proxy URL: %w", err)
			}
			t.Proxy = http.ProxyURL(proxyURL)
		}
		base = t
	}

	rt := base
	if opts.Cache {
		cached := httpcache.NewTransport(httpcache.NewMemoryCache())
		cached.Transport = &varyAuthorization{next: base}
		rt = cached
	}
	rt = &loggingTransport{next: rt, logger: logger}

	jar := opts.Jar
	if jar == nil {
		var err error
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
	}

	return &HTTPTransport{
		withCredentials:    &http.Client{Transport: rt, Jar: jar, Timeout: opts.Timeout},
		withoutCredentials: &http.Client{Transport: rt, Timeout: opts.Timeout},
	}, nil
}

// Do sends req with or without the cookie jar.
func (t *HTTPTransport) Do(req *http.Request, mode model.CredentialsMode) (*http.Response, error) {
	if mode == model.CredentialsInclude {
		return t.withCredentials.Do(req)
	}
	return t.withoutCredentials.Do(req)
}

// CloseIdleConnections releases pooled connections of both clients.
func (t *HTTPTransport) CloseIdleConnections() {
	t.withCredentials.CloseIdleConnections()
	t.withoutCredentials.CloseIdleConnections()
}

// varyAuthorization marks every response as varying on Authorization before
// httpcache stores it, so a cached entry is only served to the token that
// fetched it. A different or revoked token always reaches the API.
type varyAuthorization struct {
	next http.RoundTripper
}

func (v *varyAuthorization) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := v.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Header.Add("Vary", "Authorization")
	return resp, nil
}
