package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_String(t *testing.T) {
	tests := map[ErrorType]string{
		ErrorTypeUnknown:      "unknown",
		ErrorTypeNetwork:      "network",
		ErrorTypeTimeout:      "timeout",
		ErrorTypeServer:       "server",
		ErrorTypeClient:       "client",
		ErrorTypeUnauthorized: "unauthorized",
		ErrorTypeRateLimit:    "rate_limit",
		ErrorTypeValidation:   "validation",
		ErrorTypeParse:        "parse",
	}
	for errType, want := range tests {
		assert.Equal(t, want, errType.String())
	}
}

func TestAPIError_ToError(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		sentinel  error
		retryable bool
	}{
		{http.StatusBadRequest, ErrorTypeClient, nil, false},
		{http.StatusUnauthorized, ErrorTypeUnauthorized, ErrUnauthorized, false},
		{http.StatusNotFound, ErrorTypeClient, ErrNotFound, false},
		{http.StatusRequestTimeout, ErrorTypeTimeout, ErrTimeout, true},
		{http.StatusTooManyRequests, ErrorTypeRateLimit, ErrRateLimited, true},
		{http.StatusInternalServerError, ErrorTypeServer, ErrServerError, true},
		{http.StatusBadGateway, ErrorTypeServer, ErrServerError, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			apiErr := &APIError{StatusCode: tt.status, Message: "m", Code: "C", Details: "d"}
			err := apiErr.ToError()

			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, "C", err.Code)
			assert.Equal(t, tt.status, err.Details["status_code"])
			assert.Equal(t, "d", err.Details["api_details"])
			assert.Equal(t, tt.retryable, err.IsRetryable())
			assert.Equal(t, tt.retryable, IsRetryable(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}

			var unwrapped *APIError
			require.ErrorAs(t, err, &unwrapped)
			assert.Same(t, apiErr, unwrapped)
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "API error (status 404): missing", (&APIError{StatusCode: 404, Message: "missing"}).Error())
	assert.Equal(t, "API error (status 400): bad - field x", (&APIError{StatusCode: 400, Message: "bad", Details: "field x"}).Error())
}

func TestError_Message(t *testing.T) {
	err := NewError(ErrorTypeNetwork, "connection refused", nil)
	assert.Equal(t, "network error: connection refused", err.Error())

	err.WithContext(&ErrorContext{URL: "http://h/x", Method: "GET", Duration: time.Second})
	assert.Equal(t, "network error: connection refused (GET http://h/x)", err.Error())
}

func TestNetworkError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	netErr := &NetworkError{Op: "GET http://h", Err: cause}

	err := netErr.ToError()
	assert.Equal(t, ErrorTypeNetwork, err.Type)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "GET http://h", err.Details["operation"])

	timeout := (&NetworkError{Op: "GET", Err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded)}).ToError()
	assert.Equal(t, ErrorTypeTimeout, timeout.Type)
	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
}

func TestHelpers(t *testing.T) {
	notFound := fmt.Errorf("outer: %w", (&APIError{StatusCode: 404}).ToError())
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsUnauthorized(notFound))
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsUnauthorized(&APIError{StatusCode: 401}))
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.True(t, IsRetryable(&NetworkError{Err: errors.New("x")}))

	assert.False(t, IsNotFound(nil))
	assert.False(t, IsUnauthorized(nil))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorTypeParse, "x"))

	plain := errors.New("plain")
	wrapped := WrapError(plain, ErrorTypeParse, "decoding user")
	assert.Equal(t, ErrorTypeParse, wrapped.Type)
	assert.ErrorIs(t, wrapped, plain)

	existing := NewError(ErrorTypeServer, "old", nil)
	again := WrapError(existing, ErrorTypeParse, "new")
	assert.Same(t, existing, again)
	assert.Equal(t, "new", again.Message)
	assert.Equal(t, ErrorTypeServer, again.Type)
}
