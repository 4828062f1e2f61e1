package driven

import (
	"net/http"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// Transport issues a prepared HTTP request. Implementations decide how the
// request leaves the process (direct, through a proxy, through a cache);
// the API client only chooses whether ambient credentials travel with it.
//
// A non-nil error means no HTTP response was received.
type Transport interface {
	Do(req *http.Request, mode model.CredentialsMode) (*http.Response, error)
}

// RequestIDHeader carries the per-attempt correlation id set by the API
// client and logged by transports.
const RequestIDHeader = "X-Request-ID"
