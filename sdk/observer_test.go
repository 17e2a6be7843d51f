package sdk

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector(t *testing.T) {
	collector := NewMetricsCollector()

	collector.OnRequestStart("GET", "articles")
	collector.OnRequestEnd("GET", "articles", 200, 100*time.Millisecond, nil)
	collector.OnRequestStart("POST", "articles")
	collector.OnRequestEnd("POST", "articles", 201, 50*time.Millisecond, nil)
	collector.OnRequestStart("GET", "articles")
	collector.OnRequestEnd("GET", "articles", 0, 200*time.Millisecond, errors.New("refused"))
	collector.OnEvent(EventTokenUpdated)

	metrics := collector.GetMetrics()

	requests := metrics["requests"].(map[string]int64)
	assert.Equal(t, int64(2), requests["GET articles"])
	assert.Equal(t, int64(1), requests["POST articles"])

	errs := metrics["errors"].(map[string]int64)
	assert.Equal(t, int64(1), errs["GET articles"])
	assert.Zero(t, errs["POST articles"])

	latencies := metrics["latencies"].(map[string][]time.Duration)
	assert.Len(t, latencies["GET articles"], 2)

	statuses := metrics["statuses"].(map[int]int64)
	assert.Equal(t, map[int]int64{200: 1, 201: 1}, statuses)

	events := metrics["events"].(map[string]int64)
	assert.Equal(t, int64(1), events[EventTokenUpdated])
}

func TestMetricsCollector_SnapshotIsCopy(t *testing.T) {
	collector := NewMetricsCollector()
	collector.OnRequestStart("GET", "a")

	snapshot := collector.GetMetrics()
	snapshot["requests"].(map[string]int64)["GET a"] = 99

	assert.Equal(t, int64(1), collector.GetMetrics()["requests"].(map[string]int64)["GET a"])
}

func TestMetricsCollector_Concurrent(t *testing.T) {
	collector := NewMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.OnRequestStart("GET", "x")
			collector.OnRequestEnd("GET", "x", 200, time.Millisecond, nil)
			_ = collector.GetMetrics()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), collector.GetMetrics()["requests"].(map[string]int64)["GET x"])
}

type panickingObserver struct{ NoopObserver }

func (panickingObserver) OnRequestStart(string, string) { panic("observer bug") }

func TestCompositeObserver(t *testing.T) {
	a := NewMetricsCollector()
	b := NewMetricsCollector()
	composite := NewCompositeObserver(&panickingObserver{}, a, b)

	assert.NotPanics(t, func() {
		composite.OnRequestStart("GET", "x")
		composite.OnRequestEnd("GET", "x", 200, time.Millisecond, nil)
		composite.OnEvent(EventUserUpdated)
	})

	for _, c := range []*MetricsCollector{a, b} {
		m := c.GetMetrics()
		assert.Equal(t, int64(1), m["requests"].(map[string]int64)["GET x"])
		assert.Equal(t, int64(1), m["events"].(map[string]int64)[EventUserUpdated])
	}
}

func TestNoopObserver(t *testing.T) {
	var o Observer = &NoopObserver{}
	assert.NotPanics(t, func() {
		o.OnRequestStart("GET", "x")
		o.OnRequestEnd("GET", "x", 500, time.Second, errors.New("x"))
		o.OnEvent("e")
	})
}
