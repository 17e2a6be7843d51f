package sdk

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

// handlerFunc answers one request with a status and an optional JSON body.
type handlerFunc func(w http.ResponseWriter, r *http.Request) (int, interface{})

// recordedRequest stores information about a received request
type recordedRequest struct {
	Method        string
	Path          string
	RawPath       string
	Query         string
	Headers       http.Header
	ContentLength int64
	Body          []byte
	Time          time.Time
}

// mockServer is a configurable platform stand-in that records every request.
type mockServer struct {
	*httptest.Server
	mu           sync.RWMutex
	handlers     map[string]handlerFunc
	requestCount atomic.Int32
	connCount    atomic.Int32
	requests     []recordedRequest
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	ms := &mockServer{
		handlers: make(map[string]handlerFunc),
	}

	ms.Server = httptest.NewUnstartedServer(http.HandlerFunc(ms.handleRequest))
	ms.Server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			ms.connCount.Add(1)
		}
	}
	ms.Server.Start()
	t.Cleanup(ms.Close)

	return ms
}

// apiPrefix is the path every App request starts with.
func (ms *mockServer) apiPrefix() string {
	return "/v1/" + testAPIKey + "/"
}

// on registers a handler for "METHOD path". A pattern ending in "/"
// matches every path below it.
func (ms *mockServer) on(pattern string, handler handlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[pattern] = handler
}

// onJSON registers a handler that always answers with status and body.
func (ms *mockServer) onJSON(pattern string, status int, body interface{}) {
	ms.on(pattern, func(http.ResponseWriter, *http.Request) (int, interface{}) {
		return status, body
	})
}

// onError registers a handler that answers with a platform error body.
func (ms *mockServer) onError(pattern string, status int, message string) {
	ms.onJSON(pattern, status, map[string]string{
		"error": message,
		"code":  http.StatusText(status),
	})
}

func (ms *mockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	ms.mu.Lock()
	ms.requests = append(ms.requests, recordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawPath:       r.URL.EscapedPath(),
		Query:         r.URL.RawQuery,
		Headers:       r.Header.Clone(),
		ContentLength: r.ContentLength,
		Body:          body,
		Time:          time.Now(),
	})
	ms.mu.Unlock()
	ms.requestCount.Add(1)

	pattern := r.Method + " " + r.URL.Path
	ms.mu.RLock()
	handler, exact := ms.handlers[pattern]
	if !exact {
		for p, h := range ms.handlers {
			if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) {
				handler = h
				break
			}
		}
	}
	ms.mu.RUnlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Not found",
			"code":  "NOT_FOUND",
		})
		return
	}

	status, response := handler(w, r)
	if raw, ok := response.([]byte); ok {
		w.WriteHeader(status)
		w.Write(raw)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if response != nil {
		json.NewEncoder(w).Encode(response)
	}
}

func (ms *mockServer) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	require.NotEmpty(t, ms.requests, "no request recorded")
	return ms.requests[len(ms.requests)-1]
}

func (ms *mockServer) recorded() []recordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	result := make([]recordedRequest, len(ms.requests))
	copy(result, ms.requests)
	return result
}

// newTestApp creates an App pointed at ms with default adapters.
func newTestApp(t *testing.T, ms *mockServer, opts *Options) *App {
	t.Helper()
	if opts == nil {
		opts = DefaultOptions()
	}
	opts.BaseURL = ms.URL
	app, err := New(testAPIKey, opts)
	require.NoError(t, err)
	return app
}
