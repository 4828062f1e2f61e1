package application

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// htmlMarkers identify an HTML document served where JSON was expected.
// Matching is case-insensitive.
var htmlMarkers = [][]byte{[]byte("<!doctype"), []byte("<html")}

// classify turns a raw response into a payload or a classified failure.
// The order matters: HTML wins over status, and status is only consulted
// once the body is known to be JSON. The declared Content-Type is ignored;
// proxies serve HTML error pages under any header.
func classify(status int, body []byte) (*model.Response, error) {
	if status == http.StatusNoContent {
		return &model.Response{Status: status}, nil
	}

	if looksLikeHTML(body) {
		return nil, &model.APIError{
			Kind:    model.KindUnexpectedHTML,
			Status:  status,
			Message: fmt.Sprintf("expected JSON but received an HTML page (HTTP %d)", status),
		}
	}

	if !gjson.ValidBytes(body) {
		msg := "response body is not valid JSON"
		if len(bytes.TrimSpace(body)) == 0 {
			msg = "response body is empty"
		}
		return nil, &model.APIError{
			Kind:    model.KindMalformedResponse,
			Status:  status,
			Message: fmt.Sprintf("%s (HTTP %d)", msg, status),
		}
	}

	if status < 200 || status > 299 {
		return nil, &model.APIError{
			Kind:    model.KindAPIError,
			Status:  status,
			Message: errorMessage(body, status),
		}
	}

	return &model.Response{Status: status, Payload: bytes.Clone(body)}, nil
}

func looksLikeHTML(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, marker := range htmlMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// errorMessage extracts the conventional "detail" field. A string detail is
// used verbatim; a validation error list contributes its "msg" entries.
func errorMessage(body []byte, status int) string {
	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String && detail.Str != "":
		return detail.Str
	case detail.IsArray():
		var msgs []string
		for _, item := range detail.Array() {
			if msg := item.Get("msg"); msg.Type == gjson.String && msg.Str != "" {
				msgs = append(msgs, msg.Str)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
