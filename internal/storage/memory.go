package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"blobapi/internal/errs"
)

// MemoryStorage is an in-memory Backend for tests and local development.
// Thread-safe for concurrent reads and writes.
type MemoryStorage struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data        []byte
	etag        string
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// NewMemory creates an empty in-memory bucket.
func NewMemory(bucket string) *MemoryStorage {
	return &MemoryStorage{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

func (m *MemoryStorage) Bucket() string { return m.bucket }

// Upload buffers body and stores it atomically once fully read.
func (m *MemoryStorage) Upload(ctx context.Context, key string, body io.Reader, _ int64, opts UploadOptions, progress ProgressFunc) (UploadResult, error) {
	// The key becomes a map key; callers may pass strings backed by reused buffers.
	key = strings.Clone(key)
	tracker := newProgressTracker(progress)
	defer tracker.finish()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, tracker.wrap(body)); err != nil {
		return UploadResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}

	sum := md5.Sum(buf.Bytes())
	obj := memoryObject{
		data:        buf.Bytes(),
		etag:        `"` + hex.EncodeToString(sum[:]) + `"`,
		contentType: opts.ContentType,
		metadata:    opts.Metadata,
		modified:    m.now().UTC(),
	}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()

	return UploadResult{
		Key:      key,
		Location: m.objectURL(key),
		ETag:     obj.etag,
	}, nil
}

// List returns matching objects in key order.
func (m *MemoryStorage) List(_ context.Context, prefix string, singlePage bool) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if singlePage && len(keys) > maxKeysPerPage {
		keys = keys[:maxKeysPerPage]
	}

	objects := make([]ObjectInfo, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, m.objects[k].info(k))
	}
	return objects, nil
}

func (m *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ObjectInfo{}, errs.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info(key), nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return DeleteResult{Key: key}, nil
}

// PresignGet returns a memory:// URL carrying the expiry; nothing validates it.
func (m *MemoryStorage) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	u, err := url.Parse(m.objectURL(key))
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("X-Amz-Expires", strconv.FormatInt(int64(expiry/time.Second), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *MemoryStorage) PresignURL(ctx context.Context, rawURL string, expiry time.Duration) (string, error) {
	key, err := keyFromObjectURL(rawURL, m.bucket)
	if err != nil {
		return "", err
	}
	return m.PresignGet(ctx, key, expiry)
}

func (m *MemoryStorage) Ping(context.Context) error { return nil }

func (m *MemoryStorage) objectURL(key string) string {
	return fmt.Sprintf("memory://%s/%s", m.bucket, key)
}

func (o memoryObject) info(key string) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ETag:         o.etag,
		ContentType:  o.contentType,
		LastModified: o.modified,
		Metadata:     o.metadata,
	}
}
