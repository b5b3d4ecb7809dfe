package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"blobapi/internal/errs"
)

const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Instrumented decorates a Backend with per-operation counters and latency histograms.
type Instrumented struct {
	next     Backend
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewInstrumented registers the storage metrics on reg and wraps next.
func NewInstrumented(next Backend, reg prometheus.Registerer) (*Instrumented, error) {
	i := &Instrumented{
		next: next,
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_operations_total",
				Help: "Total number of object store operations.",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_operation_duration_seconds",
				Help:    "Latency of object store operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{i.ops, i.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	outcome := outcomeOK
	switch {
	case errors.Is(err, errs.ErrNotFound):
		outcome = outcomeNotFound
	case err != nil:
		outcome = outcomeError
	}
	i.ops.WithLabelValues(op, outcome).Inc()
	i.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (i *Instrumented) Bucket() string { return i.next.Bucket() }

func (i *Instrumented) Upload(ctx context.Context, key string, body io.Reader, size int64, opts UploadOptions, progress ProgressFunc) (res UploadResult, err error) {
	defer func(start time.Time) { i.observe("upload", start, err) }(time.Now())
	return i.next.Upload(ctx, key, body, size, opts, progress)
}

func (i *Instrumented) List(ctx context.Context, prefix string, singlePage bool) (objs []ObjectInfo, err error) {
	defer func(start time.Time) { i.observe("list", start, err) }(time.Now())
	return i.next.List(ctx, prefix, singlePage)
}

func (i *Instrumented) Get(ctx context.Context, key string) (rc io.ReadCloser, info ObjectInfo, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, key)
}

func (i *Instrumented) Delete(ctx context.Context, key string) (res DeleteResult, err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, key)
}

func (i *Instrumented) PresignGet(ctx context.Context, key string, expiry time.Duration) (u string, err error) {
	defer func(start time.Time) { i.observe("presign", start, err) }(time.Now())
	return i.next.PresignGet(ctx, key, expiry)
}

func (i *Instrumented) PresignURL(ctx context.Context, rawURL string, expiry time.Duration) (u string, err error) {
	defer func(start time.Time) { i.observe("presign_url", start, err) }(time.Now())
	return i.next.PresignURL(ctx, rawURL, expiry)
}

func (i *Instrumented) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { i.observe("ping", start, err) }(time.Now())
	return i.next.Ping(ctx)
}
