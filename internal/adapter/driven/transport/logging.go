package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

// loggingTransport logs each outbound request with method, path, status,
// and duration.
type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

// RoundTrip delegates to the wrapped round-tripper and logs the outcome.
func (lt *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := lt.next.RoundTrip(req)

	attrs := []any{
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"request_id", req.Header.Get(driven.RequestIDHeader),
		"duration", time.Since(start).Round(time.Microsecond),
	}
	if err != nil {
		lt.logger.Warn("http request failed", append(attrs, "error", err)...)
		return nil, err
	}

	attrs = append(attrs, "status", resp.StatusCode)
	if resp.Header.Get(httpcache.XFromCache) != "" {
		attrs = append(attrs, "cached", true)
	}
	lt.logger.Debug("http request", attrs...)

	return resp, nil
}
