package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// DialContextFunc dials a network connection, matching net.Dialer.DialContext.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// HTTPClientOption configures the default HTTP client.
type HTTPClientOption func(*nativeHTTPClient)

// WithTLSConfig sets the TLS configuration used for https URLs.
func WithTLSConfig(cfg *tls.Config) HTTPClientOption {
	return func(c *nativeHTTPClient) {
		c.tlsConfig = cfg
	}
}

// WithDialContext replaces the dialer. The address it receives is the
// resolved host:port of the request URL.
func WithDialContext(dial DialContextFunc) HTTPClientOption {
	return func(c *nativeHTTPClient) {
		c.dial = dial
	}
}

// nativeHTTPClient is the default HTTPClient built on net/http.
//
// Every call opens its own connection and closes it afterwards: keep-alives
// are disabled and nothing is pooled between calls. Redirects are returned
// to the caller instead of being followed. No timeout is applied beyond
// what the caller's context carries.
type nativeHTTPClient struct {
	dial      DialContextFunc
	tlsConfig *tls.Config
}

var _ HTTPClient = (*nativeHTTPClient)(nil)

// NewHTTPClient creates the default transport adapter.
//
// Example:
//
//	client := sdk.NewHTTPClient()
//	target, _ := url.Parse("https://api.example.com/v1/key/articles")
//	resp, err := client.Request(ctx, sdk.NewRequest(http.MethodGet, target, nil))
func NewHTTPClient(opts ...HTTPClientOption) HTTPClient {
	c := &nativeHTTPClient{
		dial: (&net.Dialer{}).DialContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request performs a single HTTP exchange
func (c *nativeHTTPClient) Request(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, NewError(ErrorTypeValidation, "request URL cannot be empty", ErrInvalidRequest)
	}

	var bodyReader io.Reader
	var payload []byte
	if hasBody(req.Body) {
		data, err := serialize(req.Body)
		if err != nil {
			return nil, err
		}
		payload = data
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), bodyReader)
	if err != nil {
		return nil, NewError(ErrorTypeValidation, "failed to create request: "+err.Error(), err)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if payload != nil {
		httpReq.ContentLength = int64(len(payload))
		httpReq.Header.Set("Content-Length", strconv.Itoa(len(payload)))
		if httpReq.Header.Get("Content-Type") == "" {
			httpReq.Header.Set("Content-Type", "application/json")
		}
	}

	addr := dialAddress(req.URL)
	transport := &http.Transport{
		DisableKeepAlives: true,
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return c.dial(ctx, network, addr)
		},
		TLSClientConfig: c.tlsConfig,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		netErr := &NetworkError{Op: req.Method + " " + req.URL.String(), Err: err}
		return nil, netErr.ToError()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := &NetworkError{Op: "reading response", Err: err}
		return nil, netErr.ToError()
	}

	data, err := parseBody(raw)
	if err != nil {
		return nil, err
	}

	return &Response{
		Request:    req,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Data:       data,
		raw:        raw,
	}, nil
}

// statusText extracts the reason phrase from "404 Not Found".
// hasBody reports whether body should be sent. A nil pointer, map or
// slice counts as no body.
func hasBody(body interface{}) bool {
	if body == nil {
		return false
	}
	switch v := reflect.ValueOf(body); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !v.IsNil()
	}
	return true
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
