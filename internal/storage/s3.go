package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"blobapi/internal/config"
	"blobapi/internal/errs"
)

// unsignedPayload is the payload hash S3 expects on presigned GET requests.
const unsignedPayload = "UNSIGNED-PAYLOAD"

// S3API is the subset of the S3 client used by S3Storage, including the multipart calls
// the upload manager issues.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// PresignGetObjectAPI presigns S3 GET requests; *s3.PresignClient satisfies it.
type PresignGetObjectAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ S3API               = (*s3.Client)(nil)
	_ PresignGetObjectAPI = (*s3.PresignClient)(nil)
)

// S3Storage implements Backend with the AWS SDK for Go v2.
// It is safe for concurrent use by multiple goroutines.
type S3Storage struct {
	client    S3API
	presigner PresignGetObjectAPI
	signer    *v4.Signer
	creds     aws.CredentialsProvider
	region    string
	bucket    string
}

// NewS3 builds an S3 client from validated configuration. The region is resolved from the
// bucket region, then the default region, then config.DefaultRegion. An endpoint override
// switches to path-style addressing for S3-compatible services.
func NewS3(ctx context.Context, cfg *config.AppConfig) (*S3Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		)),
		awsconfig.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return NewS3FromClient(client, s3.NewPresignClient(client), awsCfg.Credentials, region, cfg.S3.BucketName), nil
}

// NewS3FromClient wires an S3Storage around existing SDK clients.
func NewS3FromClient(client S3API, presigner PresignGetObjectAPI, creds aws.CredentialsProvider, region, bucket string) *S3Storage {
	return &S3Storage{
		client:    client,
		presigner: presigner,
		signer: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
		creds:  creds,
		region: region,
		bucket: bucket,
	}
}

func (s *S3Storage) Bucket() string { return s.bucket }

// Upload streams body through the SDK upload manager, which splits it into parts of
// opts.PartSize with at most opts.Concurrency in flight. Each request carries a CRC32C checksum.
func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, size int64, opts UploadOptions, progress ProgressFunc) (UploadResult, error) {
	opts = opts.withDefaults()
	tracker := newProgressTracker(progress)
	defer tracker.finish()

	var client manager.UploadAPIClient = s.client
	if tracker != nil {
		client = &progressClient{UploadAPIClient: s.client, t: tracker}
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = opts.PartSize
		u.Concurrency = opts.Concurrency
		u.LeavePartsOnError = opts.LeavePartsOnError
	})

	input := &s3.PutObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		Body:              body,
		ChecksumAlgorithm: types.ChecksumAlgorithmCrc32c,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	out, err := uploader.Upload(ctx, input)
	if err != nil {
		return UploadResult{}, err
	}

	res := UploadResult{
		Key:       key,
		Location:  out.Location,
		ETag:      aws.ToString(out.ETag),
		VersionID: aws.ToString(out.VersionID),
		UploadID:  out.UploadID,
	}
	if out.Key != nil {
		res.Key = *out.Key
	}
	return res, nil
}

// List pages through ListObjectsV2 until the listing is exhausted, or stops after the
// first page when singlePage is set.
func (s *S3Storage) List(ctx context.Context, prefix string, singlePage bool) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if singlePage {
			break
		}
	}
	return objects, nil
}

// Get downloads an object content as a ReadCloser along with basic info.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ObjectInfo{}, errs.ErrNotFound
		}
		return nil, ObjectInfo{}, err
	}

	body := out.Body
	if body == nil {
		body = http.NoBody
	}
	return body, ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
	}, nil
}

// Delete removes an object by key. S3 acknowledges deletes of missing keys.
func (s *S3Storage) Delete(ctx context.Context, key string) (DeleteResult, error) {
	out, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return DeleteResult{Key: key}, nil
		}
		return DeleteResult{}, err
	}
	return DeleteResult{
		Key:          key,
		VersionID:    aws.ToString(out.VersionId),
		DeleteMarker: aws.ToBool(out.DeleteMarker),
	}, nil
}

// PresignGet generates a pre-signed URL for GET with the specified expiry.
func (s *S3Storage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignURL signs a GET request for an absolute object URL with the client's credentials
// and region.
func (s *S3Storage) PresignURL(ctx context.Context, rawURL string, expiry time.Duration) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", errs.Validation("presignUrl", rawURL, "url must be an absolute object url")
	}

	// A previously signed URL carries its own X-Amz-* parameters; sign the bare object URL.
	q := u.Query()
	for name := range q {
		if strings.HasPrefix(strings.ToLower(name), "x-amz-") {
			q.Del(name)
		}
	}
	q.Set("X-Amz-Expires", strconv.FormatInt(int64(expiry/time.Second), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieve credentials: %w", err)
	}

	signed, _, err := s.signer.PresignHTTP(ctx, creds, req, unsignedPayload, "s3", s.region, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Ping checks that the bucket exists and is accessible.
func (s *S3Storage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

// progressClient reports each part to the tracker once S3 has accepted it.
type progressClient struct {
	manager.UploadAPIClient
	t *progressTracker
}

func (c *progressClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	n := requestBodySize(params.ContentLength, params.Body)
	out, err := c.UploadAPIClient.PutObject(ctx, params, optFns...)
	if err == nil {
		c.t.add(n)
	}
	return out, err
}

func (c *progressClient) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	n := requestBodySize(params.ContentLength, params.Body)
	out, err := c.UploadAPIClient.UploadPart(ctx, params, optFns...)
	if err == nil {
		c.t.add(n)
	}
	return out, err
}

// requestBodySize returns the bytes a request will send, from its content length or by
// seeking the body. The uploader hands parts over as seekable readers.
func requestBodySize(contentLength *int64, body io.Reader) int64 {
	if contentLength != nil {
		return *contentLength
	}
	seeker, ok := body.(io.Seeker)
	if !ok {
		return 0
	}
	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0
	}
	if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
		return 0
	}
	return end - cur
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
