package sdk

import (
	"context"
	"net/http"
)

// Notification is a message published to one or more channels.
type Notification struct {
	Channels []string    `json:"channels"`
	Message  interface{} `json:"message"`
	Module   string      `json:"moduleName,omitempty"`
}

// NotificationClient publishes notifications and manages who receives
// them.
type NotificationClient struct {
	app *App

	// Subscriptions maps users to channels
	Subscriptions *Resource
	// Registrations holds push registrations of user devices
	Registrations *Resource
	Settings      *Settings
}

func newNotificationClient(app *App) *NotificationClient {
	return &NotificationClient{
		app:           app,
		Subscriptions: NewResource(app, "notifications/subscriptions/users"),
		Registrations: NewResource(app, "notifications/registrations/users"),
		Settings:      NewSettings(app, "notifications/settings"),
	}
}

// Publish sends n to its channels.
func (c *NotificationClient) Publish(ctx context.Context, n *Notification) (*Response, error) {
	if n == nil || len(n.Channels) == 0 {
		return nil, NewError(ErrorTypeValidation, "notification needs at least one channel", ErrInvalidRequest)
	}
	return c.app.send(ctx, http.MethodPost, "notifications/publish", nil, nil, n)
}
