// Package storage defines abstractions for durable object storage.
//
// Stores implement a minimal surface area focused on object payloads,
// metadata retrieval, and listing. Authentication uses SDK default
// credential chains - stores should not implement custom auth logic.
//
// A Store is scoped to a single bucket. The pipeline composes one Store per
// bucket (input, scratch, output) rather than passing bucket names through
// every call.
package storage

import (
	"context"
	"time"
)

// Store abstracts durable blob storage for a single bucket.
//
// Implementations should:
//   - Use SDK default credential chains
//   - Support pagination via continuation tokens
//   - Be safe for concurrent use
type Store interface {
	// Put writes an object. Metadata and content type in opts are attached
	// as durable object attributes.
	Put(ctx context.Context, key string, body []byte, opts PutOptions) error

	// Get returns the full payload of an object.
	// Returns ErrNotFound if the object does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Head returns metadata for a single object without fetching the payload.
	// Returns ErrNotFound if the object does not exist. Reads issued
	// immediately after a Put may transiently return ErrNotFound on
	// eventually consistent backends; callers own the retry policy.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// List returns a page of objects with the given prefix.
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Bucket returns the bucket name this store is scoped to.
	Bucket() string

	// Close releases any resources held by the store.
	Close() error
}

// Presigner produces time-bounded URL references for objects.
type Presigner interface {
	// PresignGet returns a URL granting read access to key until the
	// expiry window elapses.
	PresignGet(ctx context.Context, key string, opts PresignGetOptions) (string, error)

	// PresignPut returns a URL granting a single direct upload to key.
	PresignPut(ctx context.Context, key string, opts PresignPutOptions) (string, error)
}

// PutOptions carries attributes attached to a stored object.
type PutOptions struct {
	// ContentType is the MIME type recorded on the object.
	ContentType string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// PresignGetOptions configures a presigned read reference.
type PresignGetOptions struct {
	// Expiry bounds the validity window. Zero uses the implementation default.
	Expiry time.Duration

	// ContentDisposition, when set, overrides the response disposition so
	// downloads land under a caller-chosen filename.
	ContentDisposition string

	// ContentType, when set, overrides the response content type.
	ContentType string
}

// PresignPutOptions configures a presigned upload reference.
type PresignPutOptions struct {
	// Expiry bounds the validity window. Zero uses the implementation default.
	Expiry time.Duration

	// ContentType the uploader must supply.
	ContentType string

	// Metadata the uploader must attach.
	Metadata map[string]string
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
	// Zero uses the store default (typically 1000).
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
