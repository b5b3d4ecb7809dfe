package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blobapi/internal/codec"
	"blobapi/internal/errs"
	"blobapi/internal/logger"
	"blobapi/internal/storage"
)

const (
	// DefaultSignedURLExpiry applies when a caller passes a zero expiry.
	DefaultSignedURLExpiry = time.Hour
	// MaxSignedURLExpiry is the longest validity SigV4 presigning accepts.
	MaxSignedURLExpiry = 7 * 24 * time.Hour
)

const component = "ObjectService"

// CreateInput describes a single upload.
type CreateInput struct {
	// Location is the object key.
	Location string
	Payload  codec.Payload
	// Upload overrides the service's default upload options when set. Zero Concurrency and
	// PartSize take the defaults.
	Upload *storage.UploadOptions
	// Progress receives running byte counts while the upload is in flight.
	Progress storage.ProgressFunc
}

// ObjectService is the facade over a single bucket.
type ObjectService interface {
	// Create encodes the payload and uploads it under the input location.
	Create(ctx context.Context, in CreateInput) (*storage.UploadResult, error)

	// FindAll returns the names under prefix, relative to it. Listing is paginated to completion.
	FindAll(ctx context.Context, prefix string) ([]string, error)

	// FindAllPage is FindAll limited to the first page the backend returns.
	FindAllPage(ctx context.Context, prefix string) ([]string, error)

	// FindOne fetches and decodes the object at location.
	// A missing key yields errs.ErrNotFound; an empty body decodes to the format's empty value.
	FindOne(ctx context.Context, location string, format codec.Format) (codec.Payload, error)

	// GetSignedURL returns a time-limited download URL for location. A zero expiry means one hour.
	GetSignedURL(ctx context.Context, location string, expiresIn time.Duration) (string, error)

	// GetSignedURLForURL signs a previously returned absolute object URL.
	GetSignedURLForURL(ctx context.Context, rawURL string, expiresIn time.Duration) (string, error)

	// Remove deletes the object at location and returns the backend's acknowledgement.
	// Removing a missing key succeeds.
	Remove(ctx context.Context, location string) (*storage.DeleteResult, error)

	// Ping reports whether the bucket is reachable.
	Ping(ctx context.Context) error
}

// Option configures an ObjectService.
type Option func(*objectService)

// WithUploadDefaults sets the options used when CreateInput.Upload is nil.
func WithUploadDefaults(opts storage.UploadOptions) Option {
	return func(s *objectService) { s.defaults = opts }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *objectService) { s.tracer = t }
}

type objectService struct {
	store    storage.Backend
	log      *slog.Logger
	tracer   trace.Tracer
	defaults storage.UploadOptions
}

// NewObjectService constructs an ObjectService over store. A nil logger discards output.
func NewObjectService(store storage.Backend, log *slog.Logger, opts ...Option) ObjectService {
	if log == nil {
		log = logger.Nop()
	}
	s := &objectService{
		store:    store,
		log:      log,
		tracer:   otel.Tracer("blobapi/internal/service"),
		defaults: storage.DefaultUploadOptions(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *objectService) start(ctx context.Context, op, location string) (context.Context, trace.Span) {
	s.log.DebugContext(ctx, op,
		logger.Context(component, op),
		slog.Group("params", slog.String("location", location)),
	)
	return s.tracer.Start(ctx, component+"."+op, trace.WithAttributes(
		attribute.String("blob.bucket", s.store.Bucket()),
		attribute.String("blob.location", location),
	))
}

// fail records err on the span and logs it with the operation and location.
func (s *objectService) fail(ctx context.Context, span trace.Span, op, location string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	level := slog.LevelError
	if errs.IsNotFound(err) || errs.IsValidation(err) {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, op+" failed",
		logger.Context(component, op),
		slog.Group("params", slog.String("location", location)),
		slog.String("error", err.Error()),
	)
	return err
}

func (s *objectService) Create(ctx context.Context, in CreateInput) (*storage.UploadResult, error) {
	const op = "create"
	ctx, span := s.start(ctx, op, in.Location)
	defer span.End()

	if err := validateLocation(op, in.Location); err != nil {
		return nil, s.fail(ctx, span, op, in.Location, err)
	}

	opts := s.uploadOptions(in.Upload)
	if err := validateUploadOptions(op, in.Location, opts); err != nil {
		return nil, s.fail(ctx, span, op, in.Location, err)
	}

	body, size, err := codec.Encode(in.Payload)
	if err != nil {
		return nil, s.fail(ctx, span, op, in.Location, withLocation(err, op, in.Location))
	}
	if opts.ContentType == "" {
		opts.ContentType = contentType(in.Payload)
	}

	res, err := s.store.Upload(ctx, in.Location, body, size, opts, s.progress(ctx, in.Location, in.Progress))
	if err != nil {
		if errs.IsValidation(err) {
			return nil, s.fail(ctx, span, op, in.Location, err)
		}
		return nil, s.fail(ctx, span, op, in.Location, errs.Store(op, in.Location, err))
	}

	span.SetAttributes(attribute.String("blob.etag", res.ETag))
	return &res, nil
}

// uploadOptions merges an override onto the service defaults. Only zero Concurrency and
// PartSize are filled; explicit values are left for validation.
func (s *objectService) uploadOptions(override *storage.UploadOptions) storage.UploadOptions {
	if override == nil {
		return s.defaults
	}
	opts := *override
	if opts.Concurrency == 0 {
		opts.Concurrency = s.defaults.Concurrency
	}
	if opts.PartSize == 0 {
		opts.PartSize = s.defaults.PartSize
	}
	return opts
}

// progress logs each event at debug level and forwards it to fn.
func (s *objectService) progress(ctx context.Context, location string, fn storage.ProgressFunc) storage.ProgressFunc {
	if fn == nil && !s.log.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	return func(n int64) {
		s.log.DebugContext(ctx, "upload progress",
			logger.Context(component, "create", "progress"),
			slog.Group("params", slog.String("location", location), slog.Int64("loaded", n)),
		)
		if fn != nil {
			fn(n)
		}
	}
}

func (s *objectService) FindAll(ctx context.Context, prefix string) ([]string, error) {
	return s.findAll(ctx, "findAll", prefix, false)
}

func (s *objectService) FindAllPage(ctx context.Context, prefix string) ([]string, error) {
	return s.findAll(ctx, "findAllPage", prefix, true)
}

func (s *objectService) findAll(ctx context.Context, op, prefix string, singlePage bool) ([]string, error) {
	ctx, span := s.start(ctx, op, prefix)
	defer span.End()

	objects, err := s.store.List(ctx, prefix, singlePage)
	if err != nil {
		return nil, s.fail(ctx, span, op, prefix, errs.Store(op, prefix, err))
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == "" {
			s.log.WarnContext(ctx, "listed object has no key",
				logger.Context(component, op),
				slog.Group("params", slog.String("prefix", prefix)),
			)
			continue
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	span.SetAttributes(attribute.Int("blob.count", len(names)))
	return names, nil
}

func (s *objectService) FindOne(ctx context.Context, location string, format codec.Format) (codec.Payload, error) {
	const op = "findOne"
	ctx, span := s.start(ctx, op, location)
	defer span.End()

	if err := validateLocation(op, location); err != nil {
		return nil, s.fail(ctx, span, op, location, err)
	}

	rc, _, err := s.store.Get(ctx, location)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, s.fail(ctx, span, op, location, errs.NotFound(op, location, nil))
		}
		return nil, s.fail(ctx, span, op, location, errs.Store(op, location, err))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, s.fail(ctx, span, op, location, errs.Store(op, location, fmt.Errorf("read body: %w", err)))
	}

	p, err := codec.Decode(data, format, location)
	if err != nil {
		return nil, s.fail(ctx, span, op, location, err)
	}
	return p, nil
}

func (s *objectService) GetSignedURL(ctx context.Context, location string, expiresIn time.Duration) (string, error) {
	const op = "getSignedUrl"
	ctx, span := s.start(ctx, op, location)
	defer span.End()

	if err := validateLocation(op, location); err != nil {
		return "", s.fail(ctx, span, op, location, err)
	}
	expiry, err := resolveExpiry(op, location, expiresIn)
	if err != nil {
		return "", s.fail(ctx, span, op, location, err)
	}

	u, err := s.store.PresignGet(ctx, location, expiry)
	if err != nil {
		return "", s.fail(ctx, span, op, location, errs.Store(op, location, err))
	}
	return u, nil
}

func (s *objectService) GetSignedURLForURL(ctx context.Context, rawURL string, expiresIn time.Duration) (string, error) {
	const op = "getSignedUrlForUrl"
	ctx, span := s.start(ctx, op, rawURL)
	defer span.End()

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", s.fail(ctx, span, op, rawURL, errs.Validation(op, rawURL, "url must be an absolute http(s) url"))
	}
	expiry, err := resolveExpiry(op, rawURL, expiresIn)
	if err != nil {
		return "", s.fail(ctx, span, op, rawURL, err)
	}

	signed, err := s.store.PresignURL(ctx, rawURL, expiry)
	if err != nil {
		if errs.IsValidation(err) {
			return "", s.fail(ctx, span, op, rawURL, err)
		}
		return "", s.fail(ctx, span, op, rawURL, errs.Store(op, rawURL, err))
	}
	return signed, nil
}

func (s *objectService) Remove(ctx context.Context, location string) (*storage.DeleteResult, error) {
	const op = "remove"
	ctx, span := s.start(ctx, op, location)
	defer span.End()

	if err := validateLocation(op, location); err != nil {
		return nil, s.fail(ctx, span, op, location, err)
	}
	res, err := s.store.Delete(ctx, location)
	if err != nil {
		return nil, s.fail(ctx, span, op, location, errs.Store(op, location, err))
	}
	if res.VersionID != "" {
		span.SetAttributes(attribute.String("blob.version_id", res.VersionID))
	}
	return &res, nil
}

func (s *objectService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return errs.Store("ping", "", err)
	}
	return nil
}

// FindOneJSON fetches location and unmarshals its JSON body into a T.
func FindOneJSON[T any](ctx context.Context, svc ObjectService, location string) (T, error) {
	var v T
	p, err := svc.FindOne(ctx, location, codec.FormatRaw)
	if err != nil {
		return v, err
	}
	raw, _ := p.(codec.Raw)
	if len(raw) == 0 {
		return v, nil
	}
	if err := codec.DecodeInto(raw, &v, location); err != nil {
		return v, err
	}
	return v, nil
}

func validateLocation(op, location string) error {
	if strings.TrimSpace(location) == "" {
		return errs.Validation(op, location, "location is required")
	}
	return nil
}

func validateUploadOptions(op, location string, o storage.UploadOptions) error {
	switch {
	case o.Concurrency < 1:
		return errs.Validation(op, location, fmt.Sprintf("concurrency must be at least 1, got %d", o.Concurrency))
	case o.PartSize < storage.MinPartSize:
		return errs.Validation(op, location, fmt.Sprintf("part size must be at least %d bytes, got %d", storage.MinPartSize, o.PartSize))
	}
	return nil
}

func resolveExpiry(op, location string, d time.Duration) (time.Duration, error) {
	switch {
	case d == 0:
		return DefaultSignedURLExpiry, nil
	case d < 0:
		return 0, errs.Validation(op, location, "expiry must be positive")
	case d < time.Second:
		return 0, errs.Validation(op, location, fmt.Sprintf("expiry must be at least 1s, got %s", d))
	case d > MaxSignedURLExpiry:
		return 0, errs.Validation(op, location, fmt.Sprintf("expiry must be at most %s, got %s", MaxSignedURLExpiry, d))
	case d%time.Second != 0:
		// Signed URLs carry whole seconds.
		return d.Truncate(time.Second) + time.Second, nil
	}
	return d, nil
}

// withLocation attaches op and location to an encoder error that carries neither.
func withLocation(err error, op, location string) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return &errs.Error{Kind: e.Kind, Op: op, Location: location, Err: e.Err}
	}
	return err
}

func contentType(p codec.Payload) string {
	switch v := p.(type) {
	case codec.JSON:
		return "application/json"
	case *codec.NamedFile:
		if v != nil && v.MimeType != "" {
			return v.MimeType
		}
	}
	return codec.DefaultMimeType
}
