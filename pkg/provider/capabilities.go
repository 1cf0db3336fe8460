package provider

import (
	"context"
	"io"
	"time"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectPutter can create/overwrite objects.
//
// A put either stores the whole body under key or fails; callers never observe
// a partially written object.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error
}

// ObjectDeleter can delete objects.
//
// Deleting a key that does not exist is not an error.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// ObjectGetter can download objects as a stream.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (body io.ReadCloser, contentLength int64, err error)
}

// Presigner issues time-limited direct-access URLs.
//
// The returned URL is opaque and expiring. It is handed to presentation layers
// and never used for internal decisions.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
