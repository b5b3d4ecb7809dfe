// Package storage contains the object-store backends behind the facade (S3, MinIO, in-memory).
// Implementations rely on streaming I/O only and are safe for concurrent use once constructed.
package storage

import (
	"context"
	"io"
	"time"
)

const (
	// MinPartSize is the smallest multipart chunk S3-compatible backends accept (except for the final part).
	MinPartSize int64 = 5 * 1024 * 1024
	// DefaultConcurrency is the number of parts uploaded in parallel when the caller sets none.
	DefaultConcurrency = 4
	// DefaultPartSize is the multipart chunk size used when the caller sets none.
	DefaultPartSize = MinPartSize
)

// UploadOptions control a single multipart-capable upload.
type UploadOptions struct {
	// Concurrency bounds the number of parts in flight.
	Concurrency int
	// PartSize is the chunk size in bytes.
	PartSize int64
	// LeavePartsOnError keeps uploaded parts for manual cleanup when the upload fails
	// instead of aborting the multipart upload.
	LeavePartsOnError bool
	ContentType       string
	Metadata          map[string]string
}

// DefaultUploadOptions returns 4 parts in flight, 5 MiB parts, discard on failure.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		Concurrency: DefaultConcurrency,
		PartSize:    DefaultPartSize,
	}
}

func (o UploadOptions) withDefaults() UploadOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.PartSize <= 0 {
		o.PartSize = DefaultPartSize
	}
	return o
}

// UploadResult is the backend's completion descriptor for a finished upload.
type UploadResult struct {
	Key       string `json:"key"`
	Location  string `json:"location,omitempty"`
	ETag      string `json:"etag,omitempty"`
	VersionID string `json:"version_id,omitempty"`
	UploadID  string `json:"upload_id,omitempty"`
}

// DeleteResult acknowledges a delete. On versioned buckets VersionID names the removed
// version or the delete marker that was written.
type DeleteResult struct {
	Key          string `json:"key"`
	VersionID    string `json:"version_id,omitempty"`
	DeleteMarker bool   `json:"delete_marker,omitempty"`
}

// ObjectInfo contains basic information about an object in storage.
// Key is empty when the backend listed an entry without one.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// ProgressFunc receives the running total of bytes the backend has accepted: S3 reports
// each part once its request succeeds, minio as each part is sent.
// It is called with non-decreasing values and never after Upload returns.
type ProgressFunc func(transferred int64)

// Backend is the narrow set of object-store capabilities the facade depends on.
type Backend interface {
	// Bucket returns the bucket every call operates on.
	Bucket() string
	// Upload stores body under key. size is the body length, or -1 when unknown.
	Upload(ctx context.Context, key string, body io.Reader, size int64, opts UploadOptions, progress ProgressFunc) (UploadResult, error)
	// List returns the objects whose key starts with prefix. With singlePage set only the
	// first page the backend returns is read.
	List(ctx context.Context, prefix string, singlePage bool) ([]ObjectInfo, error)
	// Get opens an object for reading. A missing key yields errs.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) (DeleteResult, error)
	// PresignGet returns a time-limited URL to download key without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PresignURL signs an absolute object URL for time-limited download.
	PresignURL(ctx context.Context, rawURL string, expiry time.Duration) (string, error)
	// Ping verifies the bucket is reachable.
	Ping(ctx context.Context) error
}
