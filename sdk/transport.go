package sdk

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// HTTPClient performs exactly one HTTP exchange per call and returns
// exactly one outcome: a Response for any status code the server sent,
// or an error when no response was received.
//
// The default implementation is returned by NewHTTPClient. Supply your own
// through Options.HTTPClient to add instrumentation, proxies or fakes:
//
//	opts := sdk.DefaultOptions().
//	    WithHTTPClient(func() sdk.HTTPClient {
//	        return sdk.HTTPClientFunc(func(ctx context.Context, req *sdk.Request) (*sdk.Response, error) {
//	            log.Printf("%s %s", req.Method, req.URL)
//	            return sdk.NewHTTPClient().Request(ctx, req)
//	        })
//	    })
type HTTPClient interface {
	Request(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClientFunc adapts a function to the HTTPClient interface.
type HTTPClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Request calls f(ctx, req).
func (f HTTPClientFunc) Request(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Default ports picked from the URL scheme.
const (
	DefaultHTTPPort  = "80"
	DefaultHTTPSPort = "443"
)

// resolvePort returns the port a request to u connects to. An explicit
// port wins; otherwise https maps to 443 and everything else to 80.
func resolvePort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return port
	}
	if strings.EqualFold(u.Scheme, "https") {
		return DefaultHTTPSPort
	}
	return DefaultHTTPPort
}

// dialAddress returns the host:port the transport dials for u.
func dialAddress(u *url.URL) string {
	return net.JoinHostPort(u.Hostname(), resolvePort(u))
}

// buildPath builds a URL path with proper escaping for path parameters.
// It replaces placeholders like {0}, {1}, etc. with the provided arguments,
// ensuring all special characters are properly URL-encoded.
//
// Example:
//
//	path := buildPath("key-values/{0}", "my key/with=special&chars")
//	// Result: "key-values/my%20key%2Fwith%3Dspecial%26chars"
//
// QueryEscape is used for encoding, then '+' is replaced with '%20' since
// '+' only means space in query strings, not paths.
func buildPath(pattern string, args ...string) string {
	path := pattern
	for i, arg := range args {
		placeholder := fmt.Sprintf("{%d}", i)
		escaped := url.QueryEscape(arg)
		escaped = strings.ReplaceAll(escaped, "+", "%20")
		path = strings.Replace(path, placeholder, escaped, 1)
	}
	return path
}
