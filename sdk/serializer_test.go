package sdk

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBody(t *testing.T) {
	data, err := parseBody(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = parseBody([]byte(`[1,"a",null,{"b":true}]`))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(1), "a", nil, map[string]interface{}{"b": true}}, data)

	data, err = parseBody([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = parseBody([]byte(`{"unterminated"`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		code    string
	}{
		{name: "error field", body: `{"error":"bad input","code":"VALIDATION"}`, message: "bad input", code: "VALIDATION"},
		{name: "message field", body: `{"message":"nope","code":"X"}`, message: "nope", code: "X"},
		{name: "plain text", body: `Service Unavailable`, message: "Service Unavailable"},
		{name: "empty", body: ``, message: "HTTP 503 error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := parseAPIError(http.StatusServiceUnavailable, []byte(tt.body))
			assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestConvertValue(t *testing.T) {
	var token Token
	require.NoError(t, convertValue(map[string]interface{}{
		"access_token": "abc",
		"expires_in":   float64(60),
	}, &token))
	assert.Equal(t, "abc", token.AccessToken)
	assert.Equal(t, 60, token.ExpiresIn)

	assert.Error(t, convertValue(make(chan int), &token))
	assert.Error(t, convertValue("not an object", &token))
}
