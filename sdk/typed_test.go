package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testArticle struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func TestDecodeAs(t *testing.T) {
	resp := &Response{raw: []byte(`{"id":"a1","title":"Hello","tags":["go"]}`)}

	article, err := DecodeAs[testArticle](resp)
	require.NoError(t, err)
	assert.Equal(t, testArticle{ID: "a1", Title: "Hello", Tags: []string{"go"}}, article)

	_, err = DecodeAs[testArticle](nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	empty, err := DecodeAs[testArticle](&Response{})
	require.NoError(t, err)
	assert.Zero(t, empty)

	_, err = DecodeAs[testArticle](&Response{raw: []byte(`{"id":1}`)})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDecodePage(t *testing.T) {
	resp := &Response{raw: []byte(`{
		"item": [{"id": "a1"}, {"id": "a2"}],
		"totalRecords": 5,
		"page": 1,
		"recordsPerPage": 2,
		"searchQuery": "x"
	}`)}

	page, err := DecodePage[testArticle](resp)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a2", page.Items[1].ID)
	assert.Equal(t, 5, page.TotalRecords)
	assert.Equal(t, "x", page.SearchQuery)
	assert.True(t, page.HasNext())

	page.Page = 3
	assert.False(t, page.HasNext())

	assert.False(t, (&Page[testArticle]{TotalRecords: 10}).HasNext())
}
