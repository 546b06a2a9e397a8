package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
)

const (
	defaultReadAttempts = 4
	// objects larger than this are rejected before they are buffered in memory
	defaultMaxObjectBytes = 8 << 20
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("storage reader: object not found")

// OpenFunc opens an object for reading.
type OpenFunc func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// ObjectReader reads whole Cloud Storage objects with retry and backoff on transient failures.
type ObjectReader struct {
	open        OpenFunc
	backoff     gax.Backoff
	maxAttempts int
	maxBytes    int64
	sleep       func(ctx context.Context, d time.Duration) error
	retryable   func(err error) bool
}

// ReaderOption customises ObjectReader behaviour.
type ReaderOption func(*ObjectReader)

// WithBackoff overrides the retry backoff policy.
func WithBackoff(backoff gax.Backoff) ReaderOption {
	return func(r *ObjectReader) {
		r.backoff = backoff
	}
}

// WithMaxAttempts overrides the number of read attempts.
func WithMaxAttempts(attempts int) ReaderOption {
	return func(r *ObjectReader) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
	}
}

// WithMaxObjectBytes overrides the largest object size accepted.
func WithMaxObjectBytes(limit int64) ReaderOption {
	return func(r *ObjectReader) {
		if limit > 0 {
			r.maxBytes = limit
		}
	}
}

// WithOpenFunc replaces the Cloud Storage client, primarily for tests.
func WithOpenFunc(open OpenFunc) ReaderOption {
	return func(r *ObjectReader) {
		if open != nil {
			r.open = open
		}
	}
}

// WithSleep injects the wait between attempts (useful for tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ReaderOption {
	return func(r *ObjectReader) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewObjectReader constructs an ObjectReader backed by the provided Cloud Storage client.
// The client may be nil when WithOpenFunc is supplied.
func NewObjectReader(client *gcs.Client, opts ...ReaderOption) (*ObjectReader, error) {
	reader := &ObjectReader{
		backoff: gax.Backoff{
			Initial:    200 * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2,
		},
		maxAttempts: defaultReadAttempts,
		maxBytes:    defaultMaxObjectBytes,
		sleep:       gax.Sleep,
		retryable:   gcs.ShouldRetry,
	}
	if client != nil {
		reader.open = func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
			return client.Bucket(bucket).Object(object).NewReader(ctx)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reader)
		}
	}
	if reader.open == nil {
		return nil, errors.New("storage reader: client is required")
	}
	return reader, nil
}

// ReadObject returns the full contents of bucket/object.
func (r *ObjectReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if r == nil || r.open == nil {
		return nil, errors.New("storage reader: reader is not initialised")
	}
	bucket = strings.TrimSpace(bucket)
	object = strings.TrimSpace(object)
	if bucket == "" || object == "" {
		return nil, errors.New("storage reader: bucket and object must be provided")
	}

	backoff := r.backoff
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		data, err := r.readOnce(ctx, bucket, object)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, object)
		}
		lastErr = err
		if attempt == r.maxAttempts || !r.retryable(err) {
			break
		}
		if sleepErr := r.sleep(ctx, backoff.Pause()); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, fmt.Errorf("storage reader: read gs://%s/%s: %w", bucket, object, lastErr)
}

func (r *ObjectReader) readOnce(ctx context.Context, bucket, object string) ([]byte, error) {
	rc, err := r.open(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, r.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("storage reader: object exceeds %d bytes", r.maxBytes)
	}
	return data, nil
}
