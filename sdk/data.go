package sdk

// KeyValueClient stores free-form values under string keys on the
// platform.
//
// Example:
//
//	_, err := app.KeyValues.Create(ctx, map[string]string{"key": "motd", "value": "hi"})
//	resp, err := app.KeyValues.Get(ctx, "motd", nil)
type KeyValueClient struct {
	*Resource
}

func newKeyValueClient(app *App) *KeyValueClient {
	return &KeyValueClient{Resource: NewResource(app, "key-values")}
}

// ValueSetClient manages named lists of values, such as the options of a
// drop-down.
type ValueSetClient struct {
	*Resource
}

func newValueSetClient(app *App) *ValueSetClient {
	return &ValueSetClient{Resource: NewResource(app, "value-sets")}
}

// Items returns the items of the value set setName.
func (c *ValueSetClient) Items(setName string) *Resource {
	return c.Child(setName, "items")
}

// DynamicResourceClient manages schema-defined resources.
//
// Example:
//
//	_, err := app.Resources.Schemas.Create(ctx, map[string]interface{}{
//	    "name":   "books",
//	    "schema": map[string]interface{}{"type": "object"},
//	})
//	_, err = app.Resources.In("books").Create(ctx, map[string]string{"title": "Dune"})
type DynamicResourceClient struct {
	app *App

	// Schemas manages the resource schemas
	Schemas *Resource
}

func newDynamicResourceClient(app *App) *DynamicResourceClient {
	return &DynamicResourceClient{
		app:     app,
		Schemas: NewResource(app, "schemas"),
	}
}

// In returns the collection of resources that follow schemaName.
func (c *DynamicResourceClient) In(schemaName string) *Resource {
	return &Resource{
		app:    c.app,
		route:  "resources/{0}",
		params: []string{schemaName},
	}
}
