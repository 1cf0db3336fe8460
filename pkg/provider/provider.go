// Package provider defines the object-store contract consumed by the folder
// reconciliation engine.
//
// A provider exposes a flat key space. It has no notion of directories; folder
// structure is inferred from key prefixes and marker objects by higher layers.
// Authentication uses SDK default credential chains - providers should not
// implement custom auth logic.
package provider

import (
	"context"
	"time"
)

// Provider abstracts listing and metadata retrieval for one bucket.
//
// Implementations should:
//   - Support pagination via continuation tokens
//   - Be safe for concurrent use
type Provider interface {
	// List returns a page of objects with the given prefix.
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Store is a provider that supports every capability the file manager uses.
//
// Orchestrators depend on the narrow capability interfaces; Store exists so
// wiring code can pass one value around.
type Store interface {
	Provider
	DelimiterLister
	ObjectPutter
	ObjectGetter
	ObjectDeleter
	Presigner
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	// Empty string lists all objects.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of objects returned per page.
	// Zero uses provider default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of objects from a List operation.
type ListResult struct {
	// Objects contains the object summaries for this page.
	Objects []ObjectSummary

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	// Key is the full object key (path) in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time
}

// ObjectMeta contains full metadata for a single object.
// Returned by Head operations.
type ObjectMeta struct {
	ObjectSummary

	// ContentType is the MIME type of the object.
	ContentType string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// ProviderType identifies a storage backend.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage (Cloudflare R2, MinIO).
	ProviderS3 ProviderType = "s3"

	// ProviderFile represents a local directory used as a bucket.
	ProviderFile ProviderType = "file"

	// ProviderMemory represents an in-process bucket.
	ProviderMemory ProviderType = "memory"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// ListAll pages through List until the listing is exhausted.
//
// The callback is invoked once per page; returning an error stops paging.
func ListAll(ctx context.Context, p Provider, prefix string, fn func(page []ObjectSummary) error) error {
	var token string
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := p.List(ctx, ListOptions{Prefix: prefix, ContinuationToken: token})
		if err != nil {
			return err
		}
		if err := fn(res.Objects); err != nil {
			return err
		}
		if !res.IsTruncated || res.ContinuationToken == "" {
			return nil
		}
		token = res.ContinuationToken
	}
}
