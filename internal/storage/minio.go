package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"blobapi/internal/config"
	"blobapi/internal/errs"
)

// maxKeysPerPage mirrors the S3 ListObjects page size; single-page listings stop there.
const maxKeysPerPage = 1000

// minioStorage implements Backend using an S3-compatible backend (MinIO, AWS S3, etc.).
// It is safe for concurrent use by multiple goroutines.
type minioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates a new S3-compatible storage client backed by minio-go.
// The endpoint comes from AWS_ENDPOINT_URL (AWS S3 when unset); TLS follows the URL scheme.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(ctx context.Context, cfg *config.AppConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, secure, err := minioEndpoint(cfg.AWS.EndpointURL)
	if err != nil {
		return nil, err
	}

	cli, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStorage{client: cli, bucket: cfg.S3.BucketName}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, ms.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, ms.bucket, minio.MakeBucketOptions{Region: cfg.Region()}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

func minioEndpoint(raw string) (host string, secure bool, err error) {
	if raw == "" {
		return "s3.amazonaws.com", true, nil
	}
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, errs.Configuration(fmt.Sprintf("invalid AWS_ENDPOINT_URL %q", raw))
	}
	return u.Host, u.Scheme == "https", nil
}

func (m *minioStorage) Bucket() string { return m.bucket }

// Upload streams body to the bucket; minio-go splits it into parts of opts.PartSize and
// uploads up to opts.Concurrency of them in parallel. Each part carries a Content-MD5.
// minio-go always aborts a failed multipart upload, so LeavePartsOnError has no effect here.
func (m *minioStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, opts UploadOptions, progress ProgressFunc) (UploadResult, error) {
	opts = opts.withDefaults()
	tracker := newProgressTracker(progress)
	defer tracker.finish()

	putOpts := minio.PutObjectOptions{
		ContentType:           opts.ContentType,
		UserMetadata:          opts.Metadata,
		PartSize:              uint64(opts.PartSize),
		NumThreads:            uint(opts.Concurrency),
		ConcurrentStreamParts: opts.Concurrency > 1,
		SendContentMd5:        true,
	}
	if tracker != nil {
		putOpts.Progress = tracker
	}

	info, err := m.client.PutObject(ctx, m.bucket, key, body, size, putOpts)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{
		Key:       info.Key,
		Location:  info.Location,
		ETag:      info.ETag,
		VersionID: info.VersionID,
	}, nil
}

// List walks the prefix recursively. With singlePage set it stops after one page worth of keys.
func (m *minioStorage) List(ctx context.Context, prefix string, singlePage bool) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []ObjectInfo
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
		if singlePage && len(objects) == maxKeysPerPage {
			break
		}
	}
	return objects, nil
}

// Get downloads an object content as a ReadCloser along with basic info.
func (m *minioStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ObjectInfo{}, errs.ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	// Fetch stat to populate info; avoid reading content into memory.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isMinioNotFound(err) {
			return nil, ObjectInfo{}, errs.ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}
	info := ObjectInfo{
		Key:          key,
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}
	return obj, info, nil
}

// Delete removes an object by key.
func (m *minioStorage) Delete(ctx context.Context, key string) (DeleteResult, error) {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isMinioNotFound(err) {
		return DeleteResult{}, err
	}
	return DeleteResult{Key: key}, nil
}

// PresignGet generates a pre-signed URL for GET with the specified expiry.
func (m *minioStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PresignURL resolves the object key from a path-style or virtual-hosted URL of this
// bucket and presigns it.
func (m *minioStorage) PresignURL(ctx context.Context, rawURL string, expiry time.Duration) (string, error) {
	key, err := keyFromObjectURL(rawURL, m.bucket)
	if err != nil {
		return "", err
	}
	return m.PresignGet(ctx, key, expiry)
}

func (m *minioStorage) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// keyFromObjectURL extracts the object key from an absolute URL addressing bucket either
// path-style (host/bucket/key) or virtual-hosted (bucket.host/key).
func keyFromObjectURL(rawURL, bucket string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", errs.Validation("presignUrl", rawURL, "url must be an absolute object url")
	}

	p := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	if (host == bucket || strings.HasPrefix(host, bucket+".")) && p != "" {
		return p, nil
	}
	if rest, ok := strings.CutPrefix(p, bucket+"/"); ok && rest != "" {
		return rest, nil
	}
	return "", errs.Validation("presignUrl", rawURL, fmt.Sprintf("url does not address an object in bucket %q", bucket))
}
