package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var (
	metricsOnce    sync.Once
	defaultMetrics *Metrics
	meterProvider  *sdkmetric.MeterProvider
)

// Metrics groups the Prometheus collectors used by the client, the storage
// and event adapters and the mock API server.
type Metrics struct {
	// Client metrics
	clientRequestsTotal   *prometheus.CounterVec
	clientRequestDuration *prometheus.HistogramVec
	clientInFlight        prometheus.Gauge
	sessionEventsTotal    *prometheus.CounterVec

	// Adapter metrics
	storageOperationDuration *prometheus.HistogramVec
	bridgeMessagesTotal      *prometheus.CounterVec

	// Server metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeSessions      prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		clientRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "baas_client_requests_total",
			Help: "Total number of requests sent to the BaaS API",
		}, []string{"method", "route", "status"}),

		clientRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "baas_client_request_duration_seconds",
			Help:    "Round-trip duration of BaaS API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		clientInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "baas_client_requests_in_flight",
			Help: "Number of BaaS API requests currently in flight",
		}),

		sessionEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "baas_session_events_total",
			Help: "Total number of session events triggered",
		}, []string{"event"}),

		storageOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "baas_storage_operation_duration_seconds",
			Help:    "Duration of storage adapter operations",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"backend", "operation", "status"}),

		bridgeMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "baas_event_bridge_messages_total",
			Help: "Total number of session events relayed over the message bus",
		}, []string{"direction", "status"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"method", "endpoint", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "baas_mock_active_sessions",
			Help: "Number of live login sessions held by the mock API",
		}),
	}
}

// InitMetrics registers the default collectors and, when enabled, the OTLP
// meter provider.
func InitMetrics(cfg *Config) error {
	var err error
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

		if cfg.EnableMetrics && !cfg.ExportToFile {
			err = initOTELMetrics(cfg)
		}
	})
	return err
}

// M returns the process-wide metrics, registering them on first use.
func M() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func initOTELMetrics(cfg *Config) error {
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

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(cfg.MetricsInterval)*time.Second),
			),
		),
	)

	otel.SetMeterProvider(meterProvider)
	return nil
}

// CloseMetrics flushes the OTLP meter provider if one was started.
func CloseMetrics(ctx context.Context) error {
	if meterProvider != nil {
		return meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordClientRequest records a finished request against the BaaS API.
// A status of zero means no response was received.
func (m *Metrics) RecordClientRequest(method, route string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.clientRequestsTotal.WithLabelValues(method, route, label).Inc()
	m.clientRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordSessionEvent(name string) {
	m.sessionEventsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) RecordStorageOperation(backend, operation, status string, duration time.Duration) {
	m.storageOperationDuration.WithLabelValues(backend, operation, status).Observe(duration.Seconds())
}

// RecordBridgeMessage counts an event relayed by the bridge. direction is
// "out" for published events and "in" for delivered ones.
func (m *Metrics) RecordBridgeMessage(direction, status string) {
	m.bridgeMessagesTotal.WithLabelValues(direction, status).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *Metrics) UpdateActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

func (m *Metrics) requestStarted() {
	m.clientInFlight.Inc()
}

func (m *Metrics) requestFinished() {
	m.clientInFlight.Dec()
}
