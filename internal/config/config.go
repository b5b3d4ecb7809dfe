package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"blobapi/internal/errs"
)

// DefaultRegion is used when neither the bucket nor the module configures a region.
const DefaultRegion = "eu-west-2"

// Storage backend names accepted by STORAGE_BACKEND.
const (
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendMemory = "memory"
)

// AWSConfig holds credentials and endpoint settings shared by every AWS client.
type AWSConfig struct {
	DefaultRegion   string `yaml:"default_region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	// EndpointURL points the client at an S3-compatible service instead of AWS.
	EndpointURL string `yaml:"endpoint_url"`
}

// S3Config holds bucket settings.
type S3Config struct {
	BucketName string `yaml:"bucket_name"`
	// Region overrides AWSConfig.DefaultRegion for this bucket only.
	Region string `yaml:"region"`
}

// UploadConfig holds the multipart upload defaults applied when a caller passes none.
type UploadConfig struct {
	Concurrency       int   `yaml:"concurrency"`
	PartSize          int64 `yaml:"part_size"`
	LeavePartsOnError bool  `yaml:"leave_parts_on_error"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from an optional YAML file and environment variables, the latter taking precedence.
type AppConfig struct {
	AppHost        string       `yaml:"app_host"`
	Port           string       `yaml:"port"`
	LogLevel       string       `yaml:"log_level"`
	StorageBackend string       `yaml:"storage_backend"`
	AWS            AWSConfig    `yaml:"aws"`
	S3             S3Config     `yaml:"s3"`
	Upload         UploadConfig `yaml:"upload"`
}

func defaults() *AppConfig {
	return &AppConfig{
		AppHost:        "localhost:8080",
		Port:           "8080",
		LogLevel:       "info",
		StorageBackend: BackendS3,
		Upload: UploadConfig{
			Concurrency: 4,
			PartSize:    5 * 1024 * 1024,
		},
	}
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// The result is not validated; call Validate before building clients from it.
func Load() *AppConfig {
	return applyEnv(defaults())
}

// LoadFile reads a YAML configuration file and then applies environment overrides.
func LoadFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return applyEnv(cfg), nil
}

func applyEnv(c *AppConfig) *AppConfig {
	c.AppHost = getEnv("APP_HOST", c.AppHost)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", c.StorageBackend))

	c.AWS.DefaultRegion = getEnv("AWS_DEFAULT_REGION", c.AWS.DefaultRegion)
	c.AWS.AccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.AWS.AccessKeyID)
	c.AWS.SecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", c.AWS.SecretAccessKey)
	c.AWS.EndpointURL = getEnv("AWS_ENDPOINT_URL", c.AWS.EndpointURL)

	c.S3.BucketName = getEnv("AWS_S3_BUCKET_NAME", c.S3.BucketName)
	c.S3.Region = getEnv("AWS_S3_REGION", c.S3.Region)

	c.Upload.Concurrency = getEnvInt("UPLOAD_CONCURRENCY", c.Upload.Concurrency)
	c.Upload.PartSize = getEnvInt64("UPLOAD_PART_SIZE", c.Upload.PartSize)
	c.Upload.LeavePartsOnError = getEnvBool("UPLOAD_LEAVE_PARTS_ON_ERROR", c.Upload.LeavePartsOnError)
	return c
}

// Validate checks the fields every storage client needs and reports all missing ones at once.
func (c *AppConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.AWS.AccessKeyID) == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.AWS.SecretAccessKey) == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.S3.BucketName) == "" {
		missing = append(missing, "AWS_S3_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return errs.Configuration(strings.Join(missing, ", ") + " required")
	}

	switch c.StorageBackend {
	case BackendS3, BackendMinIO, BackendMemory:
	default:
		return errs.Configuration(fmt.Sprintf("unsupported STORAGE_BACKEND %q", c.StorageBackend))
	}
	return nil
}

// Region resolves the bucket region: bucket override, then module default, then DefaultRegion.
func (c *AppConfig) Region() string {
	if c.S3.Region != "" {
		return c.S3.Region
	}
	if c.AWS.DefaultRegion != "" {
		return c.AWS.DefaultRegion
	}
	return DefaultRegion
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
