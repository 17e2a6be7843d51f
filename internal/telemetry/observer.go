package telemetry

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/birbparty/birb-baas/sdk"
)

// Observer feeds client activity into Prometheus and the structured log.
// Paths arrive as route patterns, so label cardinality stays bounded.
type Observer struct {
	metrics *Metrics
	log     logrus.FieldLogger
}

var _ sdk.Observer = (*Observer)(nil)

// NewObserver creates an observer recording into m. A nil log uses the
// global logger.
func NewObserver(m *Metrics, log logrus.FieldLogger) *Observer {
	if log == nil {
		log = L()
	}
	return &Observer{metrics: m, log: log}
}

func (o *Observer) OnRequestStart(method, path string) {
	o.metrics.requestStarted()
}

func (o *Observer) OnRequestEnd(method, path string, statusCode int, duration time.Duration, err error) {
	o.metrics.requestFinished()
	o.metrics.RecordClientRequest(method, path, statusCode, duration)

	if err != nil && statusCode == 0 {
		o.log.WithFields(logrus.Fields{
			"method":   method,
			"route":    path,
			"duration": duration.Milliseconds(),
		}).WithError(err).Warn("BaaS request failed without a response")
	}
}

func (o *Observer) OnEvent(name string) {
	o.metrics.RecordSessionEvent(name)
	o.log.WithField("event", name).Debug("Session event")
}
