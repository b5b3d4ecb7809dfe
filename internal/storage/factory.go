package storage

import (
	"context"
	"fmt"

	"blobapi/internal/config"
	"blobapi/internal/errs"
)

// New builds the backend named by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.AppConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.StorageBackend {
	case config.BackendS3:
		return NewS3(ctx, cfg)
	case config.BackendMinIO:
		return NewMinIO(ctx, cfg)
	case config.BackendMemory:
		return NewMemory(cfg.S3.BucketName), nil
	default:
		return nil, errs.Configuration(fmt.Sprintf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend))
	}
}

// UploadDefaults converts the configured upload defaults into UploadOptions.
func UploadDefaults(cfg config.UploadConfig) UploadOptions {
	return UploadOptions{
		Concurrency:       cfg.Concurrency,
		PartSize:          cfg.PartSize,
		LeavePartsOnError: cfg.LeavePartsOnError,
	}.withDefaults()
}
