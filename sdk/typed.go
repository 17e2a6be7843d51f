package sdk

// Page is the envelope the platform uses for every list endpoint.
//
// Example response:
//
//	{
//	    "item": [{"id": "a1", "title": "Hello"}],
//	    "totalRecords": 42,
//	    "page": 1,
//	    "recordsPerPage": 10
//	}
type Page[T any] struct {
	// Items holds the records of the current page
	Items []T `json:"item"`
	// TotalRecords is the number of records matching the query
	TotalRecords int `json:"totalRecords"`
	// Page is the 1-based page number
	Page int `json:"page"`
	// RecordsPerPage is the page size the server applied
	RecordsPerPage int `json:"recordsPerPage"`
	// SearchQuery echoes the search string, if any
	SearchQuery string `json:"searchQuery,omitempty"`
	// Sort echoes the sort expression, if any
	Sort string `json:"sort,omitempty"`
}

// HasNext reports whether another page exists after this one.
func (p *Page[T]) HasNext() bool {
	if p.RecordsPerPage <= 0 {
		return false
	}
	return p.Page*p.RecordsPerPage < p.TotalRecords
}

// DecodeAs decodes a response body into a value of type T. It gives
// compile-time types on top of the untyped module clients.
//
// Example:
//
//	type Article struct {
//	    ID    string `json:"id"`
//	    Title string `json:"title"`
//	}
//
//	resp, err := app.Articles.Get(ctx, "a1", nil)
//	if err != nil {
//	    return err
//	}
//	article, err := sdk.DecodeAs[Article](resp)
func DecodeAs[T any](resp *Response) (T, error) {
	var value T
	if resp == nil {
		return value, NewError(ErrorTypeValidation, "response cannot be nil", ErrInvalidResponse)
	}
	err := resp.Decode(&value)
	return value, err
}

// DecodePage decodes a list response into a typed Page.
//
// Example:
//
//	resp, err := app.Articles.Find(ctx, &sdk.QueryOptions{Page: 1, RecordsPerPage: 10})
//	page, err := sdk.DecodePage[Article](resp)
//	for _, article := range page.Items {
//	    fmt.Println(article.Title)
//	}
func DecodePage[T any](resp *Response) (*Page[T], error) {
	page, err := DecodeAs[Page[T]](resp)
	if err != nil {
		return nil, err
	}
	return &page, nil
}
