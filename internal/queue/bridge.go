package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/birbparty/birb-baas/sdk"
)

// EventBridge is an sdk.EventHandler that dispatches events to local
// listeners and relays them over NATS to every other bridge in the same
// session. Events received from the bus are dispatched locally only, and a
// bridge never re-dispatches its own messages.
//
// Remote listeners receive event data decoded as generic JSON values, so a
// *sdk.Token published by one process arrives as a map in another.
type EventBridge struct {
	nc      *nats.Conn
	cfg     *Config
	origin  string
	local   *sdk.EventEmitter
	metrics *telemetry.Metrics
	log     logrus.FieldLogger

	mu  sync.Mutex
	sub *nats.Subscription
}

var _ sdk.EventHandler = (*EventBridge)(nil)

// Connect opens a NATS connection using cfg
func Connect(cfg *Config, log logrus.FieldLogger) (*nats.Conn, error) {
	if log == nil {
		log = telemetry.L()
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
	}

	if cfg.User != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewEventBridge subscribes to the session's subjects on nc. The caller
// keeps ownership of nc. A nil metrics or log uses the process-wide ones.
func NewEventBridge(nc *nats.Conn, cfg *Config, metrics *telemetry.Metrics, log logrus.FieldLogger) (*EventBridge, error) {
	if nc == nil {
		return nil, errors.New("nats connection cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = telemetry.M()
	}
	if log == nil {
		log = telemetry.L()
	}

	b := &EventBridge{
		nc:      nc,
		cfg:     cfg,
		origin:  uuid.NewString(),
		local:   sdk.NewEventEmitter(),
		metrics: metrics,
		log:     log.WithField("component", "event-bridge"),
	}

	sub, err := nc.Subscribe(cfg.Wildcard(), b.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Wildcard(), err)
	}
	if err := nc.FlushTimeout(cfg.FlushTimeout); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}
	b.sub = sub

	return b, nil
}

// Factory returns an sdk.EventHandlerFactory handing out this bridge.
func (b *EventBridge) Factory() sdk.EventHandlerFactory {
	return func() sdk.EventHandler { return b }
}

// Origin identifies this bridge on the bus
func (b *EventBridge) Origin() string {
	return b.origin
}

// AddEvent registers a local listener
func (b *EventBridge) AddEvent(name string, handler sdk.EventFunc) {
	b.local.AddEvent(name, handler)
}

// TriggerEvent dispatches locally, then publishes to the session. Publish
// failures are logged and counted but never reach the caller.
func (b *EventBridge) TriggerEvent(name string, data interface{}) {
	b.local.TriggerEvent(name, data)

	if name == pushSubject || !validToken(name) {
		b.log.WithField("event", name).Warn("Event name cannot be used as a subject, dispatched locally only")
		b.metrics.RecordBridgeMessage("out", "skipped")
		return
	}

	if err := b.publish(name, data); err != nil {
		b.log.WithError(err).WithField("event", name).Error("Failed to relay event")
		b.metrics.RecordBridgeMessage("out", "error")
		return
	}
	b.metrics.RecordBridgeMessage("out", "success")
}

// PushMessage publishes a notice on the session's push subject.
func (b *EventBridge) PushMessage(message string, args ...interface{}) {
	notice := PushNotice{Origin: b.origin, Message: message, Args: args, Timestamp: time.Now().UTC()}
	if err := b.nc.Publish(b.cfg.Subject(pushSubject), toJSON(notice)); err != nil {
		b.log.WithError(err).Warn("Failed to publish push message")
	}
}

func (b *EventBridge) publish(name string, data interface{}) error {
	msg, err := NewEventMessage(b.origin, name, data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	payload, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event message: %w", err)
	}

	subject := b.cfg.Subject(name)
	span := tracer.StartSpan("nats.publish",
		tracer.ResourceName("publish "+subject),
		tracer.SpanType("queue"),
		tracer.Tag("messaging.system", "nats"),
		tracer.Tag("messaging.destination", subject),
		tracer.Tag("messaging.message_id", msg.ID),
	)
	defer span.Finish()

	out := nats.NewMsg(subject)
	out.Data = payload
	if err := tracer.Inject(span.Context(), tracer.HTTPHeadersCarrier(out.Header)); err != nil {
		b.log.WithError(err).Debug("Failed to inject trace context")
	}

	if err := b.nc.PublishMsg(out); err != nil {
		span.SetTag("error", err)
		return err
	}
	return nil
}

func (b *EventBridge) handle(m *nats.Msg) {
	if m.Subject == b.cfg.Subject(pushSubject) {
		return
	}

	spanCtx, err := tracer.Extract(tracer.HTTPHeadersCarrier(m.Header))
	if err != nil && !errors.Is(err, tracer.ErrSpanContextNotFound) {
		b.log.WithError(err).Debug("Failed to extract trace context")
	}

	opts := []tracer.StartSpanOption{
		tracer.ResourceName("consume " + m.Subject),
		tracer.SpanType("queue"),
		tracer.Tag("messaging.system", "nats"),
		tracer.Tag("messaging.destination", m.Subject),
		tracer.Tag("messaging.operation", "receive"),
	}
	if spanCtx != nil {
		opts = append(opts, tracer.ChildOf(spanCtx))
	}
	span := tracer.StartSpan("nats.consume", opts...)
	defer span.Finish()

	msg, err := UnmarshalEventMessage(m.Data)
	if err != nil {
		span.SetTag("error", err)
		b.log.WithError(err).WithField("subject", m.Subject).Warn("Dropping malformed event message")
		b.metrics.RecordBridgeMessage("in", "malformed")
		return
	}

	if msg.Origin == b.origin {
		return
	}

	data, err := msg.Payload()
	if err != nil {
		span.SetTag("error", err)
		b.log.WithError(err).WithField("event", msg.Event).Warn("Dropping event with malformed data")
		b.metrics.RecordBridgeMessage("in", "malformed")
		return
	}

	b.local.TriggerEvent(msg.Event, data)
	b.metrics.RecordBridgeMessage("in", "success")
}

// Close stops receiving remote events. Local listeners keep working.
func (b *EventBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub == nil {
		return nil
	}
	err := b.sub.Unsubscribe()
	b.sub = nil
	return err
}
