package mocks

import (
	"context"
	"time"

	"blobapi/internal/codec"
	"blobapi/internal/service"
	"blobapi/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockObjectService struct {
	mock.Mock
}

var _ service.ObjectService = (*MockObjectService)(nil)

func (m *MockObjectService) Create(ctx context.Context, in service.CreateInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *MockObjectService) FindAll(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockObjectService) FindAllPage(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockObjectService) FindOne(ctx context.Context, location string, format codec.Format) (codec.Payload, error) {
	args := m.Called(ctx, location, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(codec.Payload), args.Error(1)
}

func (m *MockObjectService) GetSignedURL(ctx context.Context, location string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, location, expiresIn)
	return args.String(0), args.Error(1)
}

func (m *MockObjectService) GetSignedURLForURL(ctx context.Context, rawURL string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, rawURL, expiresIn)
	return args.String(0), args.Error(1)
}

func (m *MockObjectService) Remove(ctx context.Context, location string) (*storage.DeleteResult, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.DeleteResult), args.Error(1)
}

func (m *MockObjectService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
