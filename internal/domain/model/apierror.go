package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an API call failed.
type ErrorKind string

const (
	// KindUnauthenticated means no credential was available; the call never
	// reached the network.
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindUnexpectedHTML means the body was an HTML page where JSON was
	// expected, typically an intercepting proxy or a misrouted request.
	KindUnexpectedHTML ErrorKind = "unexpected_html_response"
	// KindMalformedResponse means the body was neither valid JSON nor HTML.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindAPIError is a well-formed JSON error from the API.
	KindAPIError ErrorKind = "api_error"
	// KindTransportFailure means the HTTP call itself could not complete.
	KindTransportFailure ErrorKind = "transport_failure"
)

// APIError is a classified failure. Status is 0 when no HTTP response was
// received.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether the error is an API rejection of the
// credential.
func (e *APIError) IsUnauthorized() bool {
	return e.Kind == KindAPIError && e.Status == 401
}

// KindOf returns the classification of err, or "" when err is not an
// *APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
