package sdk

import (
	"context"
	"net/http"
)

// CommerceClient groups the commerce module collections.
type CommerceClient struct {
	app *App

	Products  *Resource
	Customers *Resource
	Invoices  *Resource
	Settings  *Settings
}

func newCommerceClient(app *App) *CommerceClient {
	return &CommerceClient{
		app:       app,
		Products:  NewResource(app, "commerce/products"),
		Customers: NewResource(app, "commerce/customers"),
		Invoices:  NewResource(app, "commerce/invoices"),
		Settings:  NewSettings(app, "commerce/settings"),
	}
}

// CustomerPaymentProfiles returns the stored payment profiles of a customer.
func (c *CommerceClient) CustomerPaymentProfiles(customerID string) *Resource {
	return c.Customers.Child(customerID, "payment-profiles")
}

// Subscribe starts a product subscription for the signed-in user.
func (c *CommerceClient) Subscribe(ctx context.Context, data interface{}) (*Response, error) {
	return c.app.send(ctx, http.MethodPost, "commerce/subscribe", nil, nil, data)
}

// CancelSubscription ends a subscription started with Subscribe.
func (c *CommerceClient) CancelSubscription(ctx context.Context, subscriptionID string) (*Response, error) {
	if subscriptionID == "" {
		return nil, NewError(ErrorTypeValidation, "subscription id cannot be empty", ErrInvalidRequest)
	}
	return c.app.send(ctx, http.MethodPut, "commerce/subscriptions/{0}/cancel", []string{subscriptionID}, nil, nil)
}
