package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName scopes every span this module starts
const instrumentationName = "github.com/birbparty/birb-baas"

var (
	tracerMu sync.RWMutex
	tracer   trace.Tracer
)

// InitTracing installs the global tracer provider. Spans go to the OTLP
// collector, or to TracesFilePath when ExportToFile is set. With tracing
// disabled a noop provider is installed.
func InitTracing(cfg *Config) error {
	if !cfg.EnableTracing {
		otel.SetTracerProvider(noop.NewTracerProvider())
		setTracer(otel.Tracer(instrumentationName))
		return nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	setTracer(tp.Tracer(instrumentationName))
	return nil
}

func newSpanExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	if cfg.ExportToFile && cfg.TracesFilePath != "" {
		exporter, err := NewFileTracerExporter(cfg.TracesFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		return exporter, nil
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return exporter, nil
}

// CloseTracing flushes and stops the installed tracer provider
func CloseTracing(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		return tp.Shutdown(ctx)
	}
	return nil
}

func setTracer(t trace.Tracer) {
	tracerMu.Lock()
	tracer = t
	tracerMu.Unlock()
}

// Tracer returns the tracer installed by InitTracing, or one from the
// current global provider.
func Tracer() trace.Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return tracer
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartSpanWithAttributes starts a new span carrying attrs
func StartSpanWithAttributes(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan sets the outcome of a request or storage span. A non-zero
// status of 400 or above marks the span failed even without err.
func finishSpan(span trace.Span, err error, status int) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusBadRequest:
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
	default:
		span.SetStatus(codes.Ok, "")
	}
}

// FileTracerExporter appends finished spans to a JSON lines file, one
// record per client call, served request or storage operation.
type FileTracerExporter struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

var _ sdktrace.SpanExporter = (*FileTracerExporter)(nil)

// FileSpan is the on-disk form of a finished span. The request fields
// are lifted out of the span attributes when present.
type FileSpan struct {
	TraceID  string        `json:"trace_id"`
	SpanID   string        `json:"span_id"`
	ParentID string        `json:"parent_id,omitempty"`
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration_ns"`

	Method  string `json:"method,omitempty"`
	Route   string `json:"route,omitempty"`
	Status  int    `json:"status,omitempty"`
	Backend string `json:"storage_backend,omitempty"`

	Outcome    string                 `json:"outcome"`
	Error      string                 `json:"error,omitempty"`
	Events     []string               `json:"events,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// NewFileTracerExporter opens filePath for appending, creating its
// directory if needed.
func NewFileTracerExporter(filePath string) (*FileTracerExporter, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &FileTracerExporter{file: file, encoder: json.NewEncoder(file)}, nil
}

// ExportSpans implements sdktrace.SpanExporter
func (f *FileTracerExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, span := range spans {
		if err := f.encoder.Encode(newFileSpan(span)); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter
func (f *FileTracerExporter) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

func newFileSpan(span sdktrace.ReadOnlySpan) FileSpan {
	fs := FileSpan{
		TraceID:  span.SpanContext().TraceID().String(),
		SpanID:   span.SpanContext().SpanID().String(),
		Name:     span.Name(),
		Kind:     span.SpanKind().String(),
		Start:    span.StartTime(),
		Duration: span.EndTime().Sub(span.StartTime()),
		Outcome:  "ok",
	}
	if span.Parent().IsValid() {
		fs.ParentID = span.Parent().SpanID().String()
	}
	if span.Status().Code == codes.Error {
		fs.Outcome = "error"
		fs.Error = span.Status().Description
	}

	for _, attr := range span.Attributes() {
		switch attr.Key {
		case semconv.HTTPMethodKey:
			fs.Method = attr.Value.AsString()
		case semconv.HTTPRouteKey:
			fs.Route = attr.Value.AsString()
		case semconv.HTTPURLKey:
			if fs.Route == "" {
				fs.Route = attr.Value.AsString()
			}
		case semconv.HTTPStatusCodeKey:
			fs.Status = int(attr.Value.AsInt64())
		case storageBackendKey:
			fs.Backend = attr.Value.AsString()
		default:
			if fs.Attributes == nil {
				fs.Attributes = make(map[string]interface{})
			}
			fs.Attributes[string(attr.Key)] = attr.Value.AsInterface()
		}
	}

	for _, event := range span.Events() {
		fs.Events = append(fs.Events, event.Name)
	}
	return fs
}
