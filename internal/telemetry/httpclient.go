package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/birbparty/birb-baas/sdk"
)

type tracingHTTPClient struct {
	next sdk.HTTPClient
}

// InstrumentHTTPClient wraps next so every request runs inside a client
// span and carries the trace context in its headers.
func InstrumentHTTPClient(next sdk.HTTPClient) sdk.HTTPClient {
	return &tracingHTTPClient{next: next}
}

// InstrumentedHTTPClientFactory is an sdk.HTTPClientFactory producing the
// native transport wrapped with tracing.
func InstrumentedHTTPClientFactory(opts ...sdk.HTTPClientOption) sdk.HTTPClientFactory {
	return func() sdk.HTTPClient {
		return InstrumentHTTPClient(sdk.NewHTTPClient(opts...))
	}
}

func (c *tracingHTTPClient) Request(ctx context.Context, req *sdk.Request) (*sdk.Response, error) {
	if req == nil || req.URL == nil {
		return c.next.Request(ctx, req)
	}

	ctx, span := StartSpan(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(req.Method),
			semconv.HTTPURLKey.String(req.URL.Redacted()),
			semconv.NetPeerNameKey.String(req.URL.Hostname()),
		),
	)
	defer span.End()

	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Headers))

	resp, err := c.next.Request(ctx, req)
	if err != nil {
		finishSpan(span, err, 0)
		return resp, err
	}

	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(resp.StatusCode))
	finishSpan(span, nil, resp.StatusCode)
	return resp, nil
}
