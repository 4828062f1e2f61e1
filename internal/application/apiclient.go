// Package application contains use-case orchestration services: the
// authenticated API client every screen talks through, and the resource
// services built on it.
package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

// Executor runs an authenticated API call. *APIClient is the production
// implementation; services depend on this interface.
type Executor interface {
	Execute(ctx context.Context, req model.Request) (*model.Response, error)
}

// Compile-time interface satisfaction check.
var _ Executor = (*APIClient)(nil)

// ReauthHook is called when the API needs a fresh login: no stored credential,
// or a 401 after which the credential was cleared. It runs at most once per call.
type ReauthHook func(ctx context.Context, err error)

// APIClientOptions configures an APIClient.
type APIClientOptions struct {
	// BaseURL is prepended to relative request URLs.
	BaseURL string
	// Credentials is the mode of the first attempt. Only CredentialsInclude
	// makes a call eligible for the retry without credentials.
	Credentials model.CredentialsMode
	// DefaultHeaders are sent on every call; caller headers override them.
	DefaultHeaders http.Header
	// OnReauthRequired is optional.
	OnReauthRequired ReauthHook
	Logger           *slog.Logger
}

// APIClient attaches the stored credential to outbound calls and classifies
// every response. It is safe for concurrent use; nothing is cached between
// calls.
type APIClient struct {
	session        *Session
	transport      driven.Transport
	baseURL        string
	credentials    model.CredentialsMode
	defaultHeaders http.Header
	onReauth       ReauthHook
	logger         *slog.Logger
	newRequestID   func() string
}

// NewAPIClient creates an APIClient. BaseURL may be empty if every request
// uses an absolute URL.
func NewAPIClient(session *Session, transport driven.Transport, opts APIClientOptions) (*APIClient, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &APIClient{
		session:        session,
		transport:      transport,
		baseURL:        baseURL,
		credentials:    opts.Credentials,
		defaultHeaders: opts.DefaultHeaders.Clone(),
		onReauth:       opts.OnReauthRequired,
		logger:         logger,
		newRequestID:   uuid.NewString,
	}, nil
}

// Describe reports the stored session. It makes no network call.
func (c *APIClient) Describe(ctx context.Context) (model.SessionInfo, error) {
	return c.session.Describe(ctx)
}

// Execute sends req with the stored credential and returns the parsed payload.
// Failures are *model.APIError values except for request construction and
// credential store errors, which are wrapped plainly.
//
// A 401 clears the stored credential. A transport failure on a credentialed
// attempt is retried once without credentials; the retry's result is final.
func (c *APIClient) Execute(ctx context.Context, req model.Request) (*model.Response, error) {
	cred, err := c.session.ResolveCredential(ctx)
	if err != nil {
		if model.IsKind(err, model.KindUnauthenticated) {
			c.logger.Warn("api call without credential", "method", req.Method, "url", req.URL)
			c.requireReauth(ctx, err)
		}
		return nil, err
	}

	target, err := c.resolveURL(req.URL)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	build := func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header = c.buildHeader(req, contentType, cred)
		return httpReq, nil
	}

	resp, err := c.send(ctx, build)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("api call failed",
				"method", method,
				"url", target,
				"kind", apiErr.Kind,
				"status", apiErr.Status,
				"error", apiErr.Message,
			)
			if apiErr.IsUnauthorized() {
				c.invalidate(ctx, apiErr)
			}
		}
		return nil, err
	}

	return resp, nil
}

// Login exchanges email and password for a token at POST {base}/token and
// stores it. The token endpoint takes a form-encoded body, not JSON. Nothing
// is written to the store on failure.
func (c *APIClient) Login(ctx context.Context, email, password string) (model.Credential, error) {
	target, err := c.resolveURL("/token")
	if err != nil {
		return model.Credential{}, err
	}
	form := url.Values{"username": {email}, "password": {password}}.Encode()

	build := func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		header := c.baseHeader()
		header.Set("Content-Type", "application/x-www-form-urlencoded")
		httpReq.Header = header
		return httpReq, nil
	}

	resp, err := c.send(ctx, build)
	if err != nil {
		c.logger.Warn("login failed", "email", email, "kind", model.KindOf(err), "error", err)
		return model.Credential{}, err
	}

	token := gjson.GetBytes(resp.Payload, "access_token")
	if token.Type != gjson.String || token.Str == "" {
		return model.Credential{}, &model.APIError{
			Kind:    model.KindMalformedResponse,
			Status:  resp.Status,
			Message: "token response has no access_token",
		}
	}

	cred := model.Credential{Token: token.Str, TokenType: model.DefaultTokenType}
	if tokenType := gjson.GetBytes(resp.Payload, "token_type"); tokenType.Type == gjson.String && tokenType.Str != "" {
		cred.TokenType = tokenType.Str
	}
	cred.AcquiredAt = c.session.now()

	if err := c.session.SetCredential(ctx, cred); err != nil {
		return model.Credential{}, fmt.Errorf("store credential: %w", err)
	}

	c.logger.Info("logged in", "email", email, "token_type", cred.TokenType)
	return cred, nil
}

// Logout removes every stored credential key. It makes no network call.
func (c *APIClient) Logout(ctx context.Context) error {
	if err := c.session.ClearCredential(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

// send runs one attempt in the configured credentials mode and, if that
// attempt was credentialed and never got a response, exactly one more
// without credentials.
func (c *APIClient) send(ctx context.Context, build func(context.Context) (*http.Request, error)) (*model.Response, error) {
	resp, err := c.attempt(ctx, build, c.credentials)
	if c.credentials == model.CredentialsInclude && model.IsKind(err, model.KindTransportFailure) {
		c.logger.Info("credentialed request failed, retrying without credentials", "error", err)
		return c.attempt(ctx, build, model.CredentialsOmit)
	}
	return resp, err
}

func (c *APIClient) attempt(ctx context.Context, build func(context.Context) (*http.Request, error), mode model.CredentialsMode) (*model.Response, error) {
	httpReq, err := build(ctx)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set(driven.RequestIDHeader, c.newRequestID())

	httpResp, err := c.transport.Do(httpReq, mode)
	if err != nil {
		return nil, &model.APIError{
			Kind:    model.KindTransportFailure,
			Message: fmt.Sprintf("%s %s (credentials %s) could not complete", httpReq.Method, httpReq.URL.Redacted(), mode),
			Err:     err,
		}
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &model.APIError{
			Kind:    model.KindTransportFailure,
			Status:  httpResp.StatusCode,
			Message: "reading response body failed",
			Err:     err,
		}
	}

	return classify(httpResp.StatusCode, body)
}

// baseHeader holds the headers shared by every call, before caller headers.
func (c *APIClient) baseHeader() http.Header {
	header := make(http.Header)
	header.Set("Accept", "application/json")
	for key, values := range c.defaultHeaders {
		header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	return header
}

// buildHeader layers, in order: defaults, caller headers, then the
// client-controlled Authorization and (for multipart) boundary Content-Type.
func (c *APIClient) buildHeader(req model.Request, contentType string, cred model.Credential) http.Header {
	header := c.baseHeader()
	if !req.IsMultipart() {
		header.Set("Content-Type", "application/json")
	}

	for key, values := range req.Header {
		canonical := http.CanonicalHeaderKey(key)
		if canonical == "Authorization" {
			continue
		}
		if canonical == "Content-Type" && req.IsMultipart() {
			continue
		}
		header[canonical] = append([]string(nil), values...)
	}

	if req.IsMultipart() {
		header.Set("Content-Type", contentType)
	}
	header.Set("Authorization", cred.AuthorizationHeader())
	return header
}

func (c *APIClient) resolveURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing request URL: %w", err)
	}
	if u.IsAbs() {
		return raw, nil
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("relative URL %q needs a base URL", raw)
	}
	return c.baseURL + "/" + strings.TrimLeft(raw, "/"), nil
}

// invalidate clears the credential after the API rejected it.
func (c *APIClient) invalidate(ctx context.Context, cause *model.APIError) {
	if err := c.session.ClearCredential(ctx); err != nil {
		c.logger.Error("failed to clear rejected credential", "error", err)
	} else {
		c.logger.Warn("credential rejected by API, cleared", "message", cause.Message)
	}
	c.requireReauth(ctx, cause)
}

func (c *APIClient) requireReauth(ctx context.Context, err error) {
	if c.onReauth != nil {
		c.onReauth(ctx, err)
	}
}

// encodeBody serializes the request body once so a retry can resend it.
// For multipart bodies the returned content type carries the boundary.
func encodeBody(req model.Request) ([]byte, string, error) {
	switch {
	case req.JSON != nil && req.Form != nil:
		return nil, "", errors.New("request has both a JSON and a multipart body")
	case req.Form != nil:
		return encodeMultipart(req.Form)
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode JSON body: %w", err)
		}
		return data, "application/json", nil
	}
	return nil, "", nil
}

func encodeMultipart(form *model.MultipartForm) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range form.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write form field %q: %w", f.Name, err)
		}
	}
	for _, f := range form.Files {
		part, err := w.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %q: %w", f.Field, err)
		}
		if f.Content != nil {
			if _, err := io.Copy(part, f.Content); err != nil {
				return nil, "", fmt.Errorf("copy form file %q: %w", f.FileName, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
