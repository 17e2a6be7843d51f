package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultURLFactory(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		base   string
		want   string
		scheme string
		host   string
		upath  string
		query  string
	}{
		{
			name:   "base and path",
			path:   "articles?page=2&rpp=10",
			base:   "https://api.example.com/v1/key/",
			want:   "https://api.example.com/v1/key/articles?page=2&rpp=10",
			scheme: "https",
			host:   "api.example.com",
			upath:  "/v1/key/articles",
			query:  "page=2&rpp=10",
		},
		{
			name:   "absolute path without base",
			path:   "http://localhost:8080/v1/key/users",
			want:   "http://localhost:8080/v1/key/users",
			scheme: "http",
			host:   "localhost:8080",
			upath:  "/v1/key/users",
		},
		{
			name:   "escaped segment survives",
			path:   "file-streams/docs%2Freadme.txt",
			base:   "http://localhost/v1/key/",
			want:   "http://localhost/v1/key/file-streams/docs%2Freadme.txt",
			scheme: "http",
			host:   "localhost",
			upath:  "/v1/key/file-streams/docs/readme.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := DefaultURLFactory(tt.path, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
			assert.Equal(t, tt.scheme, u.Scheme)
			assert.Equal(t, tt.host, u.Host)
			assert.Equal(t, tt.upath, u.Path)
			assert.Equal(t, tt.query, u.RawQuery)

			again, err := DefaultURLFactory(u.String(), "")
			require.NoError(t, err)
			assert.Equal(t, u.String(), again.String())
		})
	}
}

func TestDefaultURLFactory_Invalid(t *testing.T) {
	_, err := DefaultURLFactory("%zz", "http://example.com/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestJoinURL(t *testing.T) {
	base, rel := joinURL("http://h/v1/k", "/articles")
	assert.Equal(t, "http://h/v1/k/", base)
	assert.Equal(t, "articles", rel)

	base, rel = joinURL("", "http://h/x")
	assert.Empty(t, base)
	assert.Equal(t, "http://h/x", rel)
}
