// Package storage defines object storage for uploaded assets and the ways a
// stored object's key becomes a URL a client can use.
// MinIO, AWS S3 and the local disk backend all satisfy Storage; the concrete
// type is chosen at startup.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrPresignUnsupported is returned by backends that cannot sign URLs.
var ErrPresignUnsupported = errors.New("storage backend cannot presign URLs")

// Storage is the interface for uploading and removing objects.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}

// Presigner is implemented by backends that can issue time-limited GET URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
