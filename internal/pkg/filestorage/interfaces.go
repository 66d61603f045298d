// Package filestorage writes named objects to a local directory or an
// S3-compatible bucket.
package filestorage

import (
	"context"
	"errors"
	"time"
)

// Driver selects a storage backend
type Driver string

const (
	DriverLocal Driver = "local"
	DriverS3    Driver = "s3"
)

// ErrInvalidKey is returned for empty keys or keys escaping the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key       string    // Key the object was stored under
	Location  string    // File path or s3:// URL
	SizeBytes int64     // Size of the payload in bytes
	CreatedAt time.Time // Time the write completed
}

// Storage defines the object write operations the service needs
type Storage interface {
	// Put stores data under key, replacing nothing: an existing key is an error.
	Put(ctx context.Context, key string, data []byte, contentType string) (*ObjectInfo, error)

	Driver() Driver
}
