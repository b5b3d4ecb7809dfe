package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobapi/internal/errs"
)

func TestLoad(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_S3_BUCKET_NAME", "assets")
	t.Setenv("UPLOAD_CONCURRENCY", "8")
	t.Setenv("UPLOAD_LEAVE_PARTS_ON_ERROR", "true")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("UPLOAD_PART_SIZE", "")

	cfg := Load()

	assert.Equal(t, "AKIDEXAMPLE", cfg.AWS.AccessKeyID)
	assert.Equal(t, "assets", cfg.S3.BucketName)
	assert.Equal(t, 8, cfg.Upload.Concurrency)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.PartSize)
	assert.True(t, cfg.Upload.LeavePartsOnError)
	assert.Equal(t, BackendMinIO, cfg.StorageBackend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: "9090"
aws:
  access_key_id: from-file
  secret_access_key: file-secret
  default_region: us-east-1
s3:
  bucket_name: file-bucket
upload:
  part_size: 10485760
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("AWS_S3_BUCKET_NAME", "env-bucket")
	for _, k := range []string{"PORT", "AWS_ACCESS_KEY_ID", "AWS_DEFAULT_REGION", "AWS_S3_REGION", "UPLOAD_PART_SIZE", "UPLOAD_CONCURRENCY"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-file", cfg.AWS.AccessKeyID)
	assert.Equal(t, "env-bucket", cfg.S3.BucketName)
	assert.Equal(t, int64(10485760), cfg.Upload.PartSize)
	assert.Equal(t, 4, cfg.Upload.Concurrency)
	assert.Equal(t, "us-east-1", cfg.Region())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *AppConfig) {},
		},
		{
			name:    "missing credentials",
			mutate:  func(c *AppConfig) { c.AWS.AccessKeyID = ""; c.AWS.SecretAccessKey = " " },
			wantErr: "AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY required",
		},
		{
			name:    "missing bucket",
			mutate:  func(c *AppConfig) { c.S3.BucketName = "" },
			wantErr: "AWS_S3_BUCKET_NAME required",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *AppConfig) { c.StorageBackend = "gcs" },
			wantErr: `unsupported STORAGE_BACKEND "gcs"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.AWS.AccessKeyID = "id"
			cfg.AWS.SecretAccessKey = "secret"
			cfg.S3.BucketName = "bucket"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errs.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegion(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, DefaultRegion, cfg.Region())

	cfg.AWS.DefaultRegion = "us-west-2"
	assert.Equal(t, "us-west-2", cfg.Region())

	cfg.S3.Region = "ap-southeast-1"
	assert.Equal(t, "ap-southeast-1", cfg.Region())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"

	os.Setenv(key, "10485760")
	assert.Equal(t, int64(10485760), getEnvInt64(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt("TEST_INT_VAR_UNSET", 10))
}
