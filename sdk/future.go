package sdk

import (
	"context"
	"sync"
)

// ResponseFuture is the eventual outcome of one request. It is resolved
// exactly once, either with a response or with an error.
//
// Example:
//
//	future := sdk.Go(ctx, sdk.NewHTTPClient(), req)
//	// do other work...
//	resp, err := future.Await(ctx)
type ResponseFuture struct {
	once sync.Once
	done chan struct{}
	resp *Response
	err  error
}

func newResponseFuture() *ResponseFuture {
	return &ResponseFuture{done: make(chan struct{})}
}

// Go runs client.Request on its own goroutine and returns a future for
// the result. Cancellation is whatever ctx carries; a connection that
// never answers leaves the future pending until ctx is done.
func Go(ctx context.Context, client HTTPClient, req *Request) *ResponseFuture {
	f := newResponseFuture()
	go func() {
		resp, err := client.Request(ctx, req)
		f.resolve(resp, err)
	}()
	return f
}

// resolve settles the future. Only the first call has any effect.
func (f *ResponseFuture) resolve(resp *Response, err error) bool {
	settled := false
	f.once.Do(func() {
		f.resp = resp
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done returns a channel that is closed once the future is resolved.
func (f *ResponseFuture) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future is resolved or ctx is done. Giving up on
// ctx does not resolve the future.
func (f *ResponseFuture) Await(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
