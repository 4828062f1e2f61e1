package application_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// executedCall is one request seen by fakeExecutor.
type executedCall struct {
	Method string
	URL    string
	JSON   string
	Form   *model.MultipartForm
}

// fakeExecutor answers by "METHOD URL" key. Unknown routes fail with a 404
// APIError.
type fakeExecutor struct {
	mu     sync.Mutex
	routes map[string]func() (*model.Response, error)
	calls  []executedCall
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{routes: make(map[string]func() (*model.Response, error))}
}

// on replies to method url with payload marshaled as JSON. A nil payload
// mimics 204 No Content.
func (f *fakeExecutor) on(method, url string, payload any) *fakeExecutor {
	f.routes[method+" "+url] = func() (*model.Response, error) {
		if payload == nil {
			return &model.Response{Status: http.StatusNoContent}, nil
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return &model.Response{Status: http.StatusOK, Payload: data}, nil
	}
	return f
}

// raw replies to method url with a literal JSON payload.
func (f *fakeExecutor) raw(method, url, payload string) *fakeExecutor {
	f.routes[method+" "+url] = func() (*model.Response, error) {
		return &model.Response{Status: http.StatusOK, Payload: json.RawMessage(payload)}, nil
	}
	return f
}

// fail makes method url return err.
func (f *fakeExecutor) fail(method, url string, err error) *fakeExecutor {
	f.routes[method+" "+url] = func() (*model.Response, error) { return nil, err }
	return f
}

func (f *fakeExecutor) Execute(ctx context.Context, req model.Request) (*model.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	call := executedCall{Method: method, URL: req.URL, Form: req.Form}
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, err
		}
		call.JSON = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler, ok := f.routes[method+" "+req.URL]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &model.APIError{Kind: model.KindAPIError, Status: http.StatusNotFound, Message: "Not Found"}
	}
	return handler()
}

func (f *fakeExecutor) Calls() []executedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executedCall(nil), f.calls...)
}

// fields flattens a multipart form's text parts for assertions.
func fields(form *model.MultipartForm) map[string][]string {
	out := make(map[string][]string)
	for _, f := range form.Fields {
		out[f.Name] = append(out[f.Name], f.Value)
	}
	return out
}

// files maps each file field to the file names and contents sent under it.
func files(form *model.MultipartForm) map[string][]string {
	out := make(map[string][]string)
	for _, f := range form.Files {
		data, _ := io.ReadAll(f.Content)
		out[f.Field] = append(out[f.Field], fmt.Sprintf("%s:%s", f.FileName, data))
	}
	return out
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
	delay    time.Duration
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
