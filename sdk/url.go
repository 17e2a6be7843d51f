package sdk

import (
	"net/url"
	"strings"
)

// URLFactory turns a path and an optional base into an absolute URL.
type URLFactory func(path, base string) (*url.URL, error)

// DefaultURLFactory concatenates base and path when base is non-empty and
// parses the result. The returned URL's String() gives back the same
// scheme, host, path and query.
//
// Example:
//
//	u, _ := sdk.DefaultURLFactory("articles?page=1", "https://api.example.com/v1/key/")
//	u.String() // "https://api.example.com/v1/key/articles?page=1"
func DefaultURLFactory(path, base string) (*url.URL, error) {
	raw := path
	if base != "" {
		raw = base + path
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, NewError(ErrorTypeValidation, "invalid URL "+raw, err)
	}
	return u, nil
}

// joinURL joins a base URL and a relative module path with exactly one
// slash between them.
func joinURL(base, path string) (string, string) {
	if base == "" {
		return "", path
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base, strings.TrimPrefix(path, "/")
}
