package sdk

import (
	"sync"
	"time"
)

// Observer provides hooks for monitoring SDK operations.
// Implement this interface to track performance metrics, debug issues,
// or integrate with your observability stack.
//
// Observer methods are called synchronously on the calling goroutine and
// should be fast and non-blocking.
//
// Example implementation:
//
//	type LogObserver struct {
//	    logger *log.Logger
//	}
//
//	func (o *LogObserver) OnRequestStart(method, path string) {
//	    o.logger.Printf("[START] %s %s", method, path)
//	}
//
//	func (o *LogObserver) OnRequestEnd(method, path string, status int, duration time.Duration, err error) {
//	    o.logger.Printf("[END] %s %s %d (took %v) %v", method, path, status, duration, err)
//	}
//
//	func (o *LogObserver) OnEvent(name string) {}
//
//	opts := sdk.DefaultOptions().
//	    WithObserver(&LogObserver{logger: log.Default()})
type Observer interface {
	// OnRequestStart is called before a request is handed to the HTTPClient.
	//
	// Parameters:
	//   - method: HTTP method (GET, POST, PUT, DELETE)
	//   - path: Module path (e.g., "articles/{id}")
	OnRequestStart(method, path string)

	// OnRequestEnd is called when a request completes.
	//
	// Parameters:
	//   - method: HTTP method
	//   - path: Module path
	//   - statusCode: HTTP status, 0 when no response was received
	//   - duration: Time taken for the request
	//   - err: Error if request failed, nil on success
	OnRequestEnd(method, path string, statusCode int, duration time.Duration, err error)

	// OnEvent is called when App announces a session event such as
	// tokenUpdated or userUpdated.
	OnEvent(name string)
}

// NoopObserver is a no-op implementation of Observer that does nothing.
// This is the default observer used when none is configured.
type NoopObserver struct{}

// OnRequestStart does nothing
func (n *NoopObserver) OnRequestStart(method, path string) {}

// OnRequestEnd does nothing
func (n *NoopObserver) OnRequestEnd(method, path string, statusCode int, duration time.Duration, err error) {
}

// OnEvent does nothing
func (n *NoopObserver) OnEvent(name string) {}

// MetricsCollector is a simple in-memory metrics implementation.
// It collects request counts, latencies, status classes and session events.
//
// Note: This implementation stores all data in memory and is primarily
// intended for debugging and testing. For production use, the
// internal/telemetry package exports the same hooks to Prometheus.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	app, _ := sdk.New(apiKey, sdk.DefaultOptions().WithObserver(metrics))
//	// Use app...
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("Total requests: %v\n", snapshot["requests"])
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount map[string]int64
	latencies    map[string][]time.Duration
	errorCount   map[string]int64
	statusCount  map[int]int64
	eventCount   map[string]int64
}

// NewMetricsCollector creates a new metrics collector.
// The collector is thread-safe and can be used concurrently.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount: make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		errorCount:   make(map[string]int64),
		statusCount:  make(map[int]int64),
		eventCount:   make(map[string]int64),
	}
}

// OnRequestStart increments request count
func (m *MetricsCollector) OnRequestStart(method, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[method+" "+path]++
}

// OnRequestEnd records request duration, status and errors
func (m *MetricsCollector) OnRequestEnd(method, path string, statusCode int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + path
	m.latencies[key] = append(m.latencies[key], duration)
	if statusCode > 0 {
		m.statusCount[statusCode]++
	}
	if err != nil {
		m.errorCount[key]++
	}
}

// OnEvent counts session events by name
func (m *MetricsCollector) OnEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[name]++
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "requests": Map of "METHOD path" to request count
//   - "latencies": Map of "METHOD path" to latency measurements
//   - "errors": Map of "METHOD path" to error count
//   - "statuses": Map of HTTP status to response count
//   - "events": Map of event name to trigger count
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requestsCopy := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requestsCopy[k] = v
	}

	latenciesCopy := make(map[string][]time.Duration, len(m.latencies))
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}

	errorsCopy := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errorsCopy[k] = v
	}

	statusesCopy := make(map[int]int64, len(m.statusCount))
	for k, v := range m.statusCount {
		statusesCopy[k] = v
	}

	eventsCopy := make(map[string]int64, len(m.eventCount))
	for k, v := range m.eventCount {
		eventsCopy[k] = v
	}

	return map[string]interface{}{
		"requests":  requestsCopy,
		"latencies": latenciesCopy,
		"errors":    errorsCopy,
		"statuses":  statusesCopy,
		"events":    eventsCopy,
	}
}

// CompositeObserver allows multiple observers to be combined into one.
// All observer methods are called on each child observer in order.
// If an observer panics, it's caught to prevent affecting other observers.
//
// Example:
//
//	composite := sdk.NewCompositeObserver(
//	    sdk.NewMetricsCollector(),
//	    telemetry.NewObserver(metrics),
//	)
//	opts := sdk.DefaultOptions().WithObserver(composite)
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

// OnRequestStart calls OnRequestStart on all observers
func (c *CompositeObserver) OnRequestStart(method, path string) {
	for _, o := range c.observers {
		safeObserve(func() { o.OnRequestStart(method, path) })
	}
}

// OnRequestEnd calls OnRequestEnd on all observers
func (c *CompositeObserver) OnRequestEnd(method, path string, statusCode int, duration time.Duration, err error) {
	for _, o := range c.observers {
		safeObserve(func() { o.OnRequestEnd(method, path, statusCode, duration, err) })
	}
}

// OnEvent calls OnEvent on all observers
func (c *CompositeObserver) OnEvent(name string) {
	for _, o := range c.observers {
		safeObserve(func() { o.OnEvent(name) })
	}
}

func safeObserve(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
