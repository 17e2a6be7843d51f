package sdk

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request is a single call to the platform. It is built once per call by
// App and consumed exactly once by an HTTPClient.
//
// Body is any JSON-serializable value; nil, including a nil pointer, map or
// slice, means no body is sent.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE)
	Method string
	// URL is the absolute target URL including the query string
	URL *url.URL
	// Headers are sent as-is
	Headers http.Header
	// Body is encoded as JSON before transmission
	Body interface{}
}

// NewRequest creates a request with an empty header set.
func NewRequest(method string, target *url.URL, body interface{}) *Request {
	return &Request{
		Method:  method,
		URL:     target,
		Headers: make(http.Header),
		Body:    body,
	}
}

// Response is the envelope returned for every completed exchange.
//
// Data holds the body parsed into generic JSON values (maps, slices,
// float64, string, bool) or nil when the server sent no bytes. Use Decode
// or DecodeAs to read the body into a concrete type.
type Response struct {
	// Request is the request that produced this response
	Request *Request `json:"-"`
	// Headers are the response headers
	Headers http.Header `json:"headers"`
	// StatusCode is the numeric HTTP status
	StatusCode int `json:"statusCode"`
	// StatusText is the reason phrase, e.g. "Not Found"
	StatusText string `json:"statusText"`
	// Data is the parsed JSON body, nil when the body was empty
	Data interface{} `json:"data"`

	raw []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Raw returns the response body exactly as received. Responses built by
// a custom HTTPClient carry only Data; their body is Data re-encoded.
func (r *Response) Raw() []byte {
	if len(r.raw) == 0 && r.Data != nil {
		if data, err := json.Marshal(r.Data); err == nil {
			return data
		}
	}
	return r.raw
}

// Decode unmarshals the response body into dest. An empty body leaves
// dest untouched.
//
// Example:
//
//	var article Article
//	if err := resp.Decode(&article); err != nil {
//	    return err
//	}
func (r *Response) Decode(dest interface{}) error {
	raw := r.Raw()
	if len(raw) == 0 {
		return nil
	}
	return deserialize(raw, dest)
}
