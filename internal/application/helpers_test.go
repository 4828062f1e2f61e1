package application_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ericfisherdev/diligencias/internal/adapter/driven/memstore"
	"github.com/ericfisherdev/diligencias/internal/application"
	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testBaseURL = "https://api.example.test"

// recordedCall is one request seen by fakeTransport.
type recordedCall struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Mode   model.CredentialsMode
}

// fakeTransport serves requests from an http.Handler in-process and records
// every call. failModes makes calls in those credential modes fail before a
// response is produced.
type fakeTransport struct {
	handler   http.Handler
	failModes map[model.CredentialsMode]error

	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeTransport) Do(req *http.Request, mode model.CredentialsMode) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
		Mode:   mode,
	})
	f.mu.Unlock()

	if err, ok := f.failModes[mode]; ok {
		return nil, err
	}

	replay, err := http.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), bytesReader(body))
	if err != nil {
		return nil, err
	}
	replay.Header = req.Header.Clone()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, replay)
	return rec.Result(), nil
}

func (f *fakeTransport) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// respond returns a handler writing status and body verbatim.
func respond(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:1: connect: connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv bundles a client with its store and transport.
type testEnv struct {
	client    *application.APIClient
	session   *application.Session
	store     *memstore.Store
	transport *fakeTransport
	reauths   int
}

func newTestEnv(t *testing.T, handler http.Handler, opts application.APIClientOptions) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memstore.New(),
		transport: &fakeTransport{handler: handler},
	}
	env.session = application.NewSession(env.store)

	if opts.BaseURL == "" {
		opts.BaseURL = testBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.OnReauthRequired == nil {
		opts.OnReauthRequired = func(context.Context, error) { env.reauths++ }
	}

	client, err := application.NewAPIClient(env.session, env.transport, opts)
	require.NoError(t, err)
	env.client = client
	return env
}

// login stores a credential directly, bypassing the token endpoint.
func (e *testEnv) login(t *testing.T, token, tokenType string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Set(ctx, application.KeyAccessToken, token))
	if tokenType != "" {
		require.NoError(t, e.store.Set(ctx, application.KeyTokenType, tokenType))
	}
}

func bytesReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}
