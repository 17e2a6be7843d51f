package sdk

import "sync"

// Session events announced by App.
const (
	EventTokenUpdated = "tokenUpdated"
	EventTokenExpired = "tokenExpired"
	EventUserUpdated  = "userUpdated"
)

// EventFunc handles one triggered event.
type EventFunc func(data interface{})

// EventHandler is a named-channel publish/subscribe mechanism.
//
// Handlers registered under a name run synchronously, in registration
// order, each time that name is triggered. There is no unsubscribe.
type EventHandler interface {
	AddEvent(name string, handler EventFunc)
	TriggerEvent(name string, data interface{})
	// PushMessage is accepted and ignored.
	PushMessage(message string, args ...interface{})
}

// EventEmitter is the in-process EventHandler.
//
// Dispatch walks a snapshot of the handler list, so handlers may call
// AddEvent or TriggerEvent themselves. A handler added during a dispatch
// runs from the next trigger on.
type EventEmitter struct {
	mu       sync.RWMutex
	handlers map[string][]EventFunc
}

var _ EventHandler = (*EventEmitter)(nil)

// NewEventEmitter creates an emitter with no registrations.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		handlers: make(map[string][]EventFunc),
	}
}

// AddEvent registers handler under name.
func (e *EventEmitter) AddEvent(name string, handler EventFunc) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = append(e.handlers[name], handler)
}

// TriggerEvent calls every handler registered under name with data.
// Unknown names are ignored.
func (e *EventEmitter) TriggerEvent(name string, data interface{}) {
	e.mu.RLock()
	registered := e.handlers[name]
	snapshot := make([]EventFunc, len(registered))
	copy(snapshot, registered)
	e.mu.RUnlock()

	for _, handler := range snapshot {
		handler(data)
	}
}

// PushMessage does nothing. It exists so callers written against the
// platform's event contract keep compiling and running.
func (e *EventEmitter) PushMessage(message string, args ...interface{}) {}

// ListenerCount returns how many handlers are registered under name.
func (e *EventEmitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[name])
}
