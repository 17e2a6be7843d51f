package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryOptions are the list and lookup parameters every module accepts.
// The zero value sends nothing.
type QueryOptions struct {
	// SearchQuery is a free-text search string
	SearchQuery string
	// Page is the 1-based page number
	Page int
	// RecordsPerPage is the page size
	RecordsPerPage int
	// Sort is a sort expression such as "dateCreated|desc"
	Sort string
	// Embed lists related resources to embed in the response
	Embed []string
	// Fields restricts the returned fields
	Fields []string
	// Filter carries module-specific parameters verbatim
	Filter url.Values
}

// Values encodes the options as query parameters. A nil receiver yields
// nil.
func (o *QueryOptions) Values() url.Values {
	if o == nil {
		return nil
	}
	values := url.Values{}
	if o.SearchQuery != "" {
		values.Set("searchQuery", o.SearchQuery)
	}
	if o.Page > 0 {
		values.Set("page", strconv.Itoa(o.Page))
	}
	if o.RecordsPerPage > 0 {
		values.Set("rpp", strconv.Itoa(o.RecordsPerPage))
	}
	if o.Sort != "" {
		values.Set("sort", o.Sort)
	}
	if len(o.Embed) > 0 {
		values.Set("embed", strings.Join(o.Embed, ","))
	}
	if len(o.Fields) > 0 {
		values.Set("fields", strings.Join(o.Fields, ","))
	}
	for key, vals := range o.Filter {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	return values
}

// Resource is a CRUD collection on the platform, such as "articles" or
// "commerce/products". Nested collections are reached with Child.
type Resource struct {
	app    *App
	route  string
	params []string
}

// NewResource creates a client for the collection at route.
func NewResource(app *App, route string) *Resource {
	return &Resource{app: app, route: route}
}

// Route returns the unexpanded route pattern, e.g. "articles/{0}/comments".
func (r *Resource) Route() string {
	return r.route
}

// Child returns the collection name nested under the item parentID.
//
// Example:
//
//	comments := app.Articles.Resource.Child("a1", "comments")
//	resp, err := comments.Find(ctx, nil) // GET articles/a1/comments
func (r *Resource) Child(parentID, name string) *Resource {
	params := make([]string, len(r.params), len(r.params)+1)
	copy(params, r.params)
	return &Resource{
		app:    r.app,
		route:  r.itemRoute() + "/" + name,
		params: append(params, parentID),
	}
}

func (r *Resource) itemRoute() string {
	return fmt.Sprintf("%s/{%d}", r.route, len(r.params))
}

func (r *Resource) with(id string) []string {
	params := make([]string, len(r.params), len(r.params)+1)
	copy(params, r.params)
	return append(params, id)
}

// Find lists the collection.
func (r *Resource) Find(ctx context.Context, opts *QueryOptions) (*Response, error) {
	return r.app.send(ctx, http.MethodGet, r.route, r.params, opts.Values(), nil)
}

// Get fetches one item by id.
func (r *Resource) Get(ctx context.Context, id string, opts *QueryOptions) (*Response, error) {
	if id == "" {
		return nil, NewError(ErrorTypeValidation, "id cannot be empty", ErrInvalidRequest)
	}
	return r.app.send(ctx, http.MethodGet, r.itemRoute(), r.with(id), opts.Values(), nil)
}

// Create adds an item.
func (r *Resource) Create(ctx context.Context, data interface{}) (*Response, error) {
	return r.app.send(ctx, http.MethodPost, r.route, r.params, nil, data)
}

// Update replaces the item id with data.
func (r *Resource) Update(ctx context.Context, id string, data interface{}) (*Response, error) {
	if id == "" {
		return nil, NewError(ErrorTypeValidation, "id cannot be empty", ErrInvalidRequest)
	}
	return r.app.send(ctx, http.MethodPut, r.itemRoute(), r.with(id), nil, data)
}

// Remove deletes the item id.
func (r *Resource) Remove(ctx context.Context, id string) (*Response, error) {
	if id == "" {
		return nil, NewError(ErrorTypeValidation, "id cannot be empty", ErrInvalidRequest)
	}
	return r.app.send(ctx, http.MethodDelete, r.itemRoute(), r.with(id), nil, nil)
}

// Action invokes a named operation on the item id, e.g. PUT
// articles/{id}/publish.
func (r *Resource) Action(ctx context.Context, method, id, action string, data interface{}) (*Response, error) {
	if id == "" {
		return nil, NewError(ErrorTypeValidation, "id cannot be empty", ErrInvalidRequest)
	}
	return r.app.send(ctx, method, r.itemRoute()+"/"+action, r.with(id), nil, data)
}

// CollectionAction invokes a named operation on the collection itself,
// e.g. DELETE articles/purge.
func (r *Resource) CollectionAction(ctx context.Context, method, action string, query url.Values, data interface{}) (*Response, error) {
	return r.app.send(ctx, method, r.route+"/"+action, r.params, query, data)
}

// Settings is a singleton settings document of a module.
type Settings struct {
	app   *App
	route string
}

// NewSettings creates a client for the settings document at route.
func NewSettings(app *App, route string) *Settings {
	return &Settings{app: app, route: route}
}

// Get fetches the settings.
func (s *Settings) Get(ctx context.Context) (*Response, error) {
	return s.app.send(ctx, http.MethodGet, s.route, nil, nil, nil)
}

// Update replaces the settings.
func (s *Settings) Update(ctx context.Context, data interface{}) (*Response, error) {
	return s.app.send(ctx, http.MethodPut, s.route, nil, nil, data)
}
