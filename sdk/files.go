package sdk

import (
	"context"
	"net/http"
)

// StreamContent is the body of a file stream upload or download. JSON
// carries Content as base64.
type StreamContent struct {
	Path        string `json:"path,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Content     []byte `json:"content"`
}

// StreamClient reads and writes raw file content by path.
type StreamClient struct {
	app   *App
	route string
}

// Upload stores content at path, creating or replacing the file.
func (c *StreamClient) Upload(ctx context.Context, path, contentType string, content []byte) (*Response, error) {
	if path == "" {
		return nil, NewError(ErrorTypeValidation, "path cannot be empty", ErrInvalidRequest)
	}
	return c.app.send(ctx, http.MethodPost, c.route+"/{0}", []string{path}, nil, &StreamContent{
		Path:        path,
		ContentType: contentType,
		Content:     content,
	})
}

// Download returns the content stored at path.
func (c *StreamClient) Download(ctx context.Context, path string) (*StreamContent, error) {
	if path == "" {
		return nil, NewError(ErrorTypeValidation, "path cannot be empty", ErrInvalidRequest)
	}
	resp, err := c.app.send(ctx, http.MethodGet, c.route+"/{0}", []string{path}, nil, nil)
	if err != nil {
		return nil, err
	}
	content, err := DecodeAs[StreamContent](resp)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// FileClient manages file metadata and content.
//
// Example:
//
//	_, err := app.Files.Streams.Upload(ctx, "docs/readme.txt", "text/plain", []byte("hello"))
//	content, err := app.Files.Streams.Download(ctx, "docs/readme.txt")
type FileClient struct {
	*Resource

	Streams  *StreamClient
	Settings *Settings
}

func newFileClient(app *App) *FileClient {
	return &FileClient{
		Resource: NewResource(app, "files"),
		Streams:  &StreamClient{app: app, route: "file-streams"},
		Settings: NewSettings(app, "file-settings"),
	}
}

// Unlink removes a file entry together with its derived versions.
func (c *FileClient) Unlink(ctx context.Context, id string) (*Response, error) {
	return c.Action(ctx, http.MethodDelete, id, "unlink", nil)
}

// MediaVaultClient manages the media vault, a file store with processing
// presets for images.
type MediaVaultClient struct {
	*Resource

	Streams  *StreamClient
	Presets  *Resource
	Settings *Settings
}

func newMediaVaultClient(app *App) *MediaVaultClient {
	return &MediaVaultClient{
		Resource: NewResource(app, "media-vaults"),
		Streams:  &StreamClient{app: app, route: "media-vault-streams"},
		Presets:  NewResource(app, "media-vault-processing-presets"),
		Settings: NewSettings(app, "media-vault-settings"),
	}
}
