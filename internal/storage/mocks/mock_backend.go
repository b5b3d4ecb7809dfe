package mocks

import (
	"context"
	"io"
	"time"

	"blobapi/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Bucket() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBackend) Upload(ctx context.Context, key string, body io.Reader, size int64, opts storage.UploadOptions, progress storage.ProgressFunc) (storage.UploadResult, error) {
	args := m.Called(ctx, key, body, size, opts, progress)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, int64, storage.UploadOptions, storage.ProgressFunc) storage.UploadResult); ok {
		return f(ctx, key, body, size, opts, progress), args.Error(1)
	}
	return args.Get(0).(storage.UploadResult), args.Error(1)
}

func (m *MockBackend) List(ctx context.Context, prefix string, singlePage bool) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, prefix, singlePage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectInfo), args.Error(1)
}

func (m *MockBackend) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockBackend) Delete(ctx context.Context, key string) (storage.DeleteResult, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(storage.DeleteResult), args.Error(1)
}

func (m *MockBackend) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) PresignURL(ctx context.Context, rawURL string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, rawURL, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
