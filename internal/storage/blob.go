// Package storage holds the blob stores backing file and media vault
// streams of the mock API.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound is returned when no blob exists under a key
var ErrBlobNotFound = errors.New("blob not found")

// Blob is a stored object
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
	ModifiedAt  time.Time
}

// BlobStore stores opaque content by key
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)
}
