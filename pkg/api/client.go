// Package api provides the low-level HTTP clients for the two membership
// backends: the Directus REST API and the legacy Lassie RPC API.
//
// The clients here only deal with the wire: URL construction, request
// bodies, authentication editors and response envelopes. Mapping to the
// application-facing member shape happens in package client.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HttpRequestDoer performs HTTP requests.
//
// The standard http.Client implements this interface.
//
//revive:disable-next-line:var-naming // matches the generated-client convention
type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestEditorFn is the function signature for the RequestEditor callback function
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// ClientOption allows setting custom parameters during construction
type ClientOption func(*transport) error

// WithHTTPClient allows overriding the default Doer, which is
// automatically created using http.Client. This is useful for tests.
func WithHTTPClient(doer HttpRequestDoer) ClientOption {
	return func(t *transport) error {
		t.client = doer
		return nil
	}
}

// WithRequestEditorFn allows setting up a callback function, which will be
// called right before sending the request. This can be used to mutate the request.
func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(t *transport) error {
		t.editors = append(t.editors, fn)
		return nil
	}
}

// WithBaseURL overrides the baseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(t *transport) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return err
		}
		t.server = u.String()
		return nil
	}
}

// transport holds what both backend clients share: the server, the doer and
// the request editors applied to every outgoing request.
type transport struct {
	server  string
	client  HttpRequestDoer
	editors []RequestEditorFn
}

func newTransport(server string, opts []ClientOption) (*transport, error) {
	t := &transport{server: server}
	for _, o := range opts {
		if err := o(t); err != nil {
			return nil, err
		}
	}
	if t.server == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	if !strings.HasSuffix(t.server, "/") {
		t.server += "/"
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	return t, nil
}

// endpoint resolves path against the server URL and attaches the query.
func (t *transport) endpoint(path string, query url.Values) (string, error) {
	base, err := url.Parse(t.server)
	if err != nil {
		return "", err
	}
	u, err := base.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// do applies the editors, sends req and reads the full body.
func (t *transport) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	for _, editor := range t.editors {
		if err := editor(ctx, req); err != nil {
			return 0, nil, err
		}
	}

	rsp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = rsp.Body.Close() }()

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return rsp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return rsp.StatusCode, body, nil
}

// ResponseError is returned for any reply the backend marks as failed,
// either through the HTTP status or an embedded status code.
type ResponseError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
