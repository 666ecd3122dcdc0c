package ostack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds each request of the default transport.
const DefaultTimeout = 60 * time.Second

// HTTPClient is the transport capability the locator depends on. Timeouts,
// retries and TLS belong to the implementation.
type HTTPClient interface {
	// NewRequest builds a request; a non-nil body is sent as JSON.
	NewRequest(ctx context.Context, method, url string, body any) (*http.Request, error)
	Send(req *http.Request) (*http.Response, error)
}

// Transport is the default HTTPClient over net/http.
type Transport struct {
	Client *http.Client
}

// NewTransport returns a Transport with a 60s timeout for API calls.
func NewTransport() *Transport {
	return &Transport{Client: &http.Client{Timeout: DefaultTimeout}}
}

func (t *Transport) NewRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, url, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (t *Transport) Send(req *http.Request) (*http.Response, error) {
	return t.Client.Do(req)
}

// debugTransport logs every exchange at debug level. It never changes the
// request or the response.
type debugTransport struct {
	next HTTPClient
	log  zerolog.Logger
}

// NewDebugTransport wraps next so every exchange is logged at debug level on log.
func NewDebugTransport(next HTTPClient, log zerolog.Logger) HTTPClient {
	if _, ok := next.(*debugTransport); ok {
		return next
	}
	return &debugTransport{next: next, log: log}
}

func (d *debugTransport) NewRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	return d.next.NewRequest(ctx, method, url, body)
}

func (d *debugTransport) Send(req *http.Request) (*http.Response, error) {
	id := uuid.NewString()
	start := time.Now()
	d.log.Debug().Str("request_id", id).Str("method", req.Method).Str("url", req.URL.String()).Msg("http request")
	resp, err := d.next.Send(req)
	ev := d.log.Debug().Str("request_id", id).Dur("elapsed", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("http request failed")
		return resp, err
	}
	ev.Int("status", resp.StatusCode).
		Str("openstack_request_id", resp.Header.Get("X-Openstack-Request-Id")).
		Msg("http response")
	return resp, nil
}

// roundTripper lets gophercloud clients reuse an injected HTTPClient.
type roundTripper struct{ c HTTPClient }

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.c.Send(req)
}

// stdClient returns the net/http client gophercloud should use for c.
func stdClient(c HTTPClient) http.Client {
	if t, ok := c.(*Transport); ok && t.Client != nil {
		return *t.Client
	}
	return http.Client{Transport: roundTripper{c: c}}
}
