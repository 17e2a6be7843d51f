package sdk

import (
	"context"
	"net/http"
)

// MeteringClient records and reads usage data.
type MeteringClient struct {
	*Resource

	Categories *Resource
	Settings   *Settings
}

func newMeteringClient(app *App) *MeteringClient {
	return &MeteringClient{
		Resource:   NewResource(app, "metering/data"),
		Categories: NewResource(app, "metering/categories"),
		Settings:   NewSettings(app, "metering/settings"),
	}
}

// Statistics returns aggregated usage of one category.
func (c *MeteringClient) Statistics(ctx context.Context, category string, opts *QueryOptions) (*Response, error) {
	if category == "" {
		return nil, NewError(ErrorTypeValidation, "category cannot be empty", ErrInvalidRequest)
	}
	return c.app.send(ctx, http.MethodGet, "metering/statistics/{0}", []string{category}, opts.Values(), nil)
}

// ProfileClient manages user profiles and their sections.
type ProfileClient struct {
	*Resource
}

func newProfileClient(app *App) *ProfileClient {
	return &ProfileClient{Resource: NewResource(app, "profiles")}
}

// Education returns the education entries of a profile.
func (c *ProfileClient) Education(profileID string) *Resource {
	return c.Child(profileID, "educations")
}

// Work returns the work history of a profile.
func (c *ProfileClient) Work(profileID string) *Resource {
	return c.Child(profileID, "work")
}

// Skills returns the skills of a profile.
func (c *ProfileClient) Skills(profileID string) *Resource {
	return c.Child(profileID, "skills")
}
