package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// pushSubject carries PushMessage notices; they are never dispatched to
// listeners.
const pushSubject = "push"

// EventMessage is the wire form of a session event
type EventMessage struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PushNotice is the wire form of a PushMessage call
type PushNotice struct {
	Origin    string        `json:"origin"`
	Message   string        `json:"message"`
	Args      []interface{} `json:"args,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewEventMessage creates a message for event with data encoded as JSON
func NewEventMessage(origin, event string, data interface{}) (*EventMessage, error) {
	msg := &EventMessage{
		ID:        uuid.NewString(),
		Origin:    origin,
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return msg, nil
}

// Marshal converts the message to JSON bytes
func (m *EventMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Payload decodes Data into generic JSON values; absent data is nil
func (m *EventMessage) Payload() (interface{}, error) {
	if len(m.Data) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(m.Data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalEventMessage unmarshals an event message from JSON
func UnmarshalEventMessage(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func toJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return raw
}
