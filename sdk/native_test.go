package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTTPClient_ContentLengthMatchesPayload(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("POST /echo", http.StatusCreated, map[string]string{"ok": "yes"})

	body := map[string]interface{}{
		"title": "Grüße",
		"tags":  []string{"a", "b"},
		"count": 3,
	}
	expected, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := NewHTTPClient().Request(context.Background(), NewRequest(http.MethodPost, mustParse(t, ms.URL+"/echo"), body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	got := ms.lastRequest(t)
	assert.Equal(t, int64(len(expected)), got.ContentLength)
	assert.Len(t, got.Body, len(expected))
	assert.JSONEq(t, string(expected), string(got.Body))
	assert.Equal(t, "application/json", got.Headers.Get("Content-Type"))
}

func TestHTTPClient_KeepsCallerContentType(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("PUT /doc", http.StatusOK, nil)

	req := NewRequest(http.MethodPut, mustParse(t, ms.URL+"/doc"), map[string]string{"a": "b"})
	req.Headers.Set("Content-Type", "application/merge-patch+json")

	_, err := NewHTTPClient().Request(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "application/merge-patch+json", ms.lastRequest(t).Headers.Get("Content-Type"))
}

func TestHTTPClient_NoBodyNoContentLength(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("GET /items", http.StatusOK, []string{})

	_, err := NewHTTPClient().Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, ms.URL+"/items"), nil))
	require.NoError(t, err)

	got := ms.lastRequest(t)
	assert.Equal(t, int64(0), got.ContentLength)
	assert.Empty(t, got.Body)
	assert.Empty(t, got.Headers.Get("Content-Type"))
}

func TestHTTPClient_TypedNilBodyIsNoBody(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("PUT /items/1", http.StatusOK, map[string]string{"id": "1"})

	var body *LoginRequest
	_, err := NewHTTPClient().Request(context.Background(), NewRequest(http.MethodPut, mustParse(t, ms.URL+"/items/1"), body))
	require.NoError(t, err)

	got := ms.lastRequest(t)
	assert.Equal(t, int64(0), got.ContentLength)
	assert.Empty(t, got.Body)
	assert.Empty(t, got.Headers.Get("Content-Length"))

	assert.False(t, hasBody(nil))
	assert.False(t, hasBody(body))
	assert.False(t, hasBody(map[string]interface{}(nil)))
	assert.True(t, hasBody(map[string]interface{}{}))
	assert.True(t, hasBody(0))
	assert.True(t, hasBody(&LoginRequest{}))
}

func TestHTTPClient_PortSelection(t *testing.T) {
	dialErr := errors.New("dial refused by test")

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "https default", target: "https://api.example.com/v1/key/articles", want: "api.example.com:443"},
		{name: "http default", target: "http://api.example.com/v1/key/articles", want: "api.example.com:80"},
		{name: "uppercase scheme", target: "HTTPS://api.example.com/", want: "api.example.com:443"},
		{name: "explicit port", target: "http://api.example.com:8080/x", want: "api.example.com:8080"},
		{name: "ipv6 host", target: "https://[::1]/x", want: "[::1]:443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var dialed []string
			client := NewHTTPClient(WithDialContext(func(ctx context.Context, network, addr string) (net.Conn, error) {
				mu.Lock()
				dialed = append(dialed, addr)
				mu.Unlock()
				return nil, dialErr
			}))

			_, err := client.Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, tt.target), nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, dialErr)

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, dialed, 1)
			assert.Equal(t, tt.want, dialed[0])
		})
	}
}

func TestHTTPClient_EmptyBodyYieldsNilData(t *testing.T) {
	ms := newMockServer(t)
	ms.on("DELETE /items/1", func(http.ResponseWriter, *http.Request) (int, interface{}) {
		return http.StatusNoContent, nil
	})
	ms.on("GET /empty", func(http.ResponseWriter, *http.Request) (int, interface{}) {
		return http.StatusOK, []byte{}
	})

	client := NewHTTPClient()

	resp, err := client.Request(context.Background(), NewRequest(http.MethodDelete, mustParse(t, ms.URL+"/items/1"), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, resp.Data)
	assert.Empty(t, resp.Raw())

	resp, err = client.Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, ms.URL+"/empty"), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, resp.Data)
}

func TestHTTPClient_JSONBodyIsParsed(t *testing.T) {
	ms := newMockServer(t)
	payload := []byte(`{"item":[{"id":"a1","score":4.5,"published":true,"tags":null}],"totalRecords":1}`)
	ms.on("GET /articles", func(w http.ResponseWriter, _ *http.Request) (int, interface{}) {
		w.Header().Set("X-Request-ID", "req-1")
		return http.StatusOK, payload
	})

	req := NewRequest(http.MethodGet, mustParse(t, ms.URL+"/articles"), nil)
	resp, err := NewHTTPClient().Request(context.Background(), req)
	require.NoError(t, err)

	var expected interface{}
	require.NoError(t, json.Unmarshal(payload, &expected))
	assert.Equal(t, expected, resp.Data)
	assert.Same(t, req, resp.Request)
	assert.Equal(t, "OK", resp.StatusText)
	assert.Equal(t, "req-1", resp.Headers.Get("X-Request-ID"))
	assert.True(t, resp.OK())
}

func TestHTTPClient_NonSuccessStatusIsAResponse(t *testing.T) {
	ms := newMockServer(t)
	ms.onError("GET /missing", http.StatusNotFound, "article not found")

	resp, err := NewHTTPClient().Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, ms.URL+"/missing"), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", resp.StatusText)
	assert.False(t, resp.OK())
	assert.Equal(t, map[string]interface{}{"error": "article not found", "code": "Not Found"}, resp.Data)
}

func TestHTTPClient_InvalidJSONFails(t *testing.T) {
	ms := newMockServer(t)
	ms.on("GET /html", func(w http.ResponseWriter, _ *http.Request) (int, interface{}) {
		w.Header().Set("Content-Type", "text/html")
		return http.StatusOK, []byte("<html>oops</html>")
	})

	resp, err := NewHTTPClient().Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, ms.URL+"/html"), nil))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	var sdkErr *Error
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrorTypeParse, sdkErr.Type)
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewHTTPClient().Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, "http://"+addr+"/x"), nil))
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	var opErr *net.OpError
	assert.ErrorAs(t, err, &opErr)
	assert.True(t, IsRetryable(err))
}

func TestHTTPClient_TransportErrorKeepsCause(t *testing.T) {
	dialErr := errors.New("dial refused by test")
	client := NewHTTPClient(WithDialContext(func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, dialErr
	}))

	_, err := client.Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, "http://api.example.com/x"), nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, dialErr)

	var sdkErr *Error
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrorTypeNetwork, sdkErr.Type)
}

func TestHTTPClient_DoesNotFollowRedirects(t *testing.T) {
	ms := newMockServer(t)
	ms.on("GET /old", func(w http.ResponseWriter, _ *http.Request) (int, interface{}) {
		w.Header().Set("Location", "/new")
		return http.StatusFound, []byte{}
	})
	ms.onJSON("GET /new", http.StatusOK, "moved")

	resp, err := NewHTTPClient().Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, ms.URL+"/old"), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/new", resp.Headers.Get("Location"))
	assert.Len(t, ms.recorded(), 1)
}

func TestHTTPClient_OneConnectionPerCall(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("GET /ping", http.StatusOK, "pong")

	client := NewHTTPClient()
	for i := 0; i < 3; i++ {
		_, err := client.Request(context.Background(), NewRequest(http.MethodGet, mustParse(t, ms.URL+"/ping"), nil))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), ms.connCount.Load())
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	ms := newMockServer(t)
	release := make(chan struct{})
	ms.on("GET /slow", func(http.ResponseWriter, *http.Request) (int, interface{}) {
		<-release
		return http.StatusOK, nil
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient().Request(ctx, NewRequest(http.MethodGet, mustParse(t, ms.URL+"/slow"), nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPClient_Validation(t *testing.T) {
	client := NewHTTPClient()

	_, err := client.Request(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Request(context.Background(), &Request{Method: http.MethodGet})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = client.Request(context.Background(), NewRequest(http.MethodPost, mustParse(t, "http://example.com"), make(chan int)))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHTTPClientFunc(t *testing.T) {
	var seen *Request
	client := HTTPClientFunc(func(_ context.Context, req *Request) (*Response, error) {
		seen = req
		return &Response{Request: req, StatusCode: http.StatusTeapot}, nil
	})

	req := NewRequest(http.MethodGet, mustParse(t, "http://example.com"), nil)
	resp, err := client.Request(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, req, seen)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
